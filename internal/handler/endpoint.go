package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/deppfellow/endpoint-bridge/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// EndpointKey is the Echo context key holding the *endpoint.Endpoint being served.
const EndpointKey = "endpoint"

// CurrentEndpoint returns the endpoint the request was routed to.
func CurrentEndpoint(c echo.Context) *endpoint.Endpoint {
	ep, _ := c.Get(EndpointKey).(*endpoint.Endpoint)
	return ep
}

// EndpointHandlers are the handlers registry endpoints can route to, by name.
type EndpointHandlers struct {
	Handler
	registry endpoint.Registry
	byName   map[string]echo.HandlerFunc
}

func NewEndpointHandlers(s *server.Server, registry endpoint.Registry) *EndpointHandlers {
	h := &EndpointHandlers{
		Handler:  NewHandler(s),
		registry: registry,
	}
	h.byName = map[string]echo.HandlerFunc{
		"ping":  h.Ping,
		"echo":  Handle(h.Handler, h.Echo, http.StatusOK, &EchoRequest{}),
		"rules": h.Rules,
	}
	return h
}

// Lookup returns the handler registered under name.
func (h *EndpointHandlers) Lookup(name string) (echo.HandlerFunc, bool) {
	fn, ok := h.byName[name]
	return fn, ok
}

// Names lists the registered handler names.
func (h *EndpointHandlers) Names() []string {
	names := make([]string, 0, len(h.byName))
	for name := range h.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing answers requests routed to a handler name nobody registered.
func (h *EndpointHandlers) Missing(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return errs.NewMissingError("endpoint handler %q is not registered", name)
	}
}

func (h *EndpointHandlers) Ping(c echo.Context) error {
	res := map[string]any{"pong": true}
	if ep := CurrentEndpoint(c); ep != nil {
		res["endpoint"] = ep.Name
	}
	return c.JSON(http.StatusOK, res)
}

type EchoRequest struct {
	Message string `json:"message" query:"message" validate:"required,max=1024"`
	Repeat  int    `json:"repeat" query:"repeat" validate:"gte=0,lte=10"`
}

func (r *EchoRequest) Validate() error {
	return validation.Struct(r)
}

type EchoResponse struct {
	Endpoint string   `json:"endpoint"`
	Method   string   `json:"method"`
	Messages []string `json:"messages"`
	Params   []string `json:"params"`
}

// maxEchoBytes bounds the total size of the echoed messages.
const maxEchoBytes = 4096

// Echo sends the message back, Repeat times (at least once), with the
// path parameters of the route.
func (h *EndpointHandlers) Echo(c echo.Context, req *EchoRequest) (*EchoResponse, error) {
	n := max(req.Repeat, 1)

	if strings.TrimSpace(req.Message) == "" {
		return nil, errs.NewValidationError("message must not be blank")
	}
	if size := n * len(req.Message); size > maxEchoBytes {
		return nil, errs.NewUserError("echo of %d bytes exceeds the %d byte limit", size, maxEchoBytes)
	}

	res := &EchoResponse{
		Method:   c.Request().Method,
		Messages: make([]string, 0, n),
		Params:   make([]string, 0, len(c.ParamNames())),
	}
	if ep := CurrentEndpoint(c); ep != nil {
		res.Endpoint = ep.Name
	}
	for i := 0; i < n; i++ {
		res.Messages = append(res.Messages, req.Message)
	}
	for _, name := range c.ParamNames() {
		res.Params = append(res.Params, name+"="+c.Param(name))
	}
	return res, nil
}

type RuleResponse struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Routes  []string `json:"routes"`
	Methods []string `json:"methods"`
	Auth    string   `json:"auth"`
	Handler string   `json:"handler"`
}

// rulesRole is the organization role allowed to list the registry through
// an authenticated endpoint.
const rulesRole = "org:admin"

// Rules lists the registry rules.
func (h *EndpointHandlers) Rules(c echo.Context) error {
	if ep := CurrentEndpoint(c); ep != nil && ep.Auth != endpoint.AuthPublic {
		if role, _ := c.Get(middleware.UserRoleKey).(string); role != rulesRole {
			return errs.NewAccessError("listing endpoint rules requires the %s role", rulesRole)
		}
	}

	rules, err := h.registry.Rules(c.Request().Context())
	if err != nil {
		return errors.Wrap(err, "list endpoint rules")
	}

	res := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		if rule.Endpoint == nil {
			continue
		}
		res = append(res, RuleResponse{
			Key:     rule.Key,
			Name:    rule.Endpoint.Name,
			Routes:  rule.Routes,
			Methods: rule.Endpoint.Methods(),
			Auth:    string(rule.Endpoint.Auth),
			Handler: rule.Endpoint.Handler,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"rules": res})
}
