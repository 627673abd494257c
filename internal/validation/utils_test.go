package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRuleRequest struct {
	Key     string   `json:"key" validate:"required"`
	Name    string   `json:"name" validate:"max=5"`
	Routes  []string `json:"routes" validate:"min=1"`
	Auth    string   `json:"auth" validate:"omitempty,oneof=public user"`
	OwnerID string   `json:"owner_id" validate:"omitempty,uuid"`
}

func (r *createRuleRequest) Validate() error {
	return Struct(r)
}

type reservedKeyRequest struct {
	Key string `json:"key"`
}

func (r *reservedKeyRequest) Validate() error {
	if r.Key == "admin" {
		return CustomValidationErrors{{Field: "key", Message: "key is reserved"}}
	}
	return nil
}

func bindJSON(t *testing.T, body string, payload Validatable) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	return BindAndValidate(c, payload)
}

func TestBindAndValidate_Valid(t *testing.T) {
	req := &createRuleRequest{}
	err := bindJSON(t, `{"key": "orders", "routes": ["/orders"], "auth": "user"}`, req)

	require.NoError(t, err)
	assert.Equal(t, "orders", req.Key)
}

func TestBindAndValidate_FieldErrors(t *testing.T) {
	err := bindJSON(t, `{"name": "too long", "routes": [], "auth": "root", "owner_id": "x"}`, &createRuleRequest{})

	var reqErr *errs.RequestValidationError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, []string{
		"key is required",
		"name must not exceed 5 characters",
		"routes must contain at least 1 items",
		"auth must be one of: public user",
		"ownerid must be a valid UUID",
	}, reqErr.Messages())
	assert.Equal(t, "required", reqErr.Errors[0].Type)
}

func TestBindAndValidate_CustomErrors(t *testing.T) {
	err := bindJSON(t, `{"key": "admin"}`, &reservedKeyRequest{})

	var reqErr *errs.RequestValidationError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Errors, 1)
	assert.Equal(t, errs.FieldError{Field: "key", Error: "key is reserved", Type: "custom"}, reqErr.Errors[0])
}

func TestBindAndValidate_UnreadableBody(t *testing.T) {
	err := bindJSON(t, `{"key": `, &createRuleRequest{})

	var reqErr *errs.RequestValidationError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Errors, 1)
	assert.Equal(t, "body", reqErr.Errors[0].Field)
	assert.Equal(t, "bind", reqErr.Errors[0].Type)
}
