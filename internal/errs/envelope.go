package errs

// Envelope is the fixed JSON shape returned for every handled failure.
//
// Exception is either a plain string or an *ExceptionDetail.
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data"`
	Meta       map[string]any `json:"meta"`
	Exception  any            `json:"exception"`
	Traceback  []string       `json:"traceback"`
}

// ExceptionDetail is the structured form of Envelope.Exception.
// Action and Override are only set for framework HTTP errors.
type ExceptionDetail struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	StatusCode int          `json:"status_code"`
	Errors     []FieldError `json:"errors"`
	Action     *Action      `json:"action,omitempty"`
	Override   bool         `json:"override,omitempty"`
}

// NewEnvelope builds an envelope for err. data and meta are always empty objects
// and the traceback is always a JSON array.
func NewEnvelope(status int, message string, exception any, err error) Envelope {
	return Envelope{
		StatusCode: status,
		Message:    message,
		Data:       map[string]any{},
		Meta:       map[string]any{},
		Exception:  exception,
		Traceback:  Traceback(err),
	}
}

// NewExceptionDetail builds the structured exception object. errors is never nil.
func NewExceptionDetail(code, message string, status int, errors []FieldError) *ExceptionDetail {
	if errors == nil {
		errors = []FieldError{}
	}
	return &ExceptionDetail{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Errors:     errors,
	}
}

// Detail renders the error as the structured exception of an envelope.
func (e *HTTPError) Detail() *ExceptionDetail {
	detail := NewExceptionDetail(e.Code, e.Message, e.Status, e.Errors)
	detail.Action = e.Action
	detail.Override = e.Override
	return detail
}
