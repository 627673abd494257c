package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// OpenAPIHandler documents the registry routes this instance serves.
type OpenAPIHandler struct {
	Handler
	table *routing.RoutingTable
}

func NewOpenAPIHandler(s *server.Server, table *routing.RoutingTable) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
		table:   table,
	}
}

// ServeOpenAPISpec writes an OpenAPI 3 document built from the routing table.
func (h *OpenAPIHandler) ServeOpenAPISpec(c echo.Context) error {
	doc := BuildOpenAPI(h.server.Config.Primary.Env, h.table.LastVersion(), h.table.Routes())
	if err := doc.Validate(c.Request().Context()); err != nil {
		return errors.Wrap(err, "invalid openapi document")
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.JSON(http.StatusOK, doc)
}

const bearerScheme = "bearer"

// BuildOpenAPI describes routes as an OpenAPI 3 document.
func BuildOpenAPI(env string, version int64, routes []routing.Route) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "endpoint-bridge (" + env + ")",
			Version: strconv.FormatInt(version, 10),
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}

	operationIDs := map[string]int{}

	for _, r := range routes {
		path, params := openAPIPath(r.Pattern)

		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}

		methods := r.Endpoint.Methods()
		sort.Strings(methods)
		for _, m := range methods {
			if !documentedMethods[m] {
				continue
			}

			id := r.Endpoint.Name + "_" + strings.ToLower(m)
			if n := operationIDs[id]; n > 0 {
				operationIDs[id]++
				id = fmt.Sprintf("%s_%d", id, n+1)
			} else {
				operationIDs[id] = 1
			}

			op := &openapi3.Operation{
				OperationID: id,
				Tags:        []string{r.Endpoint.Handler},
				Parameters:  params,
				Responses:   openapi3.NewResponses(),
			}
			op.Responses.Set("200", &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("success")})
			op.Responses.Set("default", &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("error envelope")})

			if r.Endpoint.Auth != endpoint.AuthPublic {
				op.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme))
			}
			item.SetOperation(m, op)
		}
	}

	return doc
}

// documentedMethods are the methods an OpenAPI path item can hold.
var documentedMethods = map[string]bool{
	http.MethodConnect: true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPatch:   true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodTrace:   true,
}

// openAPIPath converts an Echo pattern like /users/:id into /users/{id}.
func openAPIPath(pattern string) (string, openapi3.Parameters) {
	segments := strings.Split(pattern, "/")
	var params openapi3.Parameters

	for i, seg := range segments {
		name := ""
		switch {
		case strings.HasPrefix(seg, ":"):
			name = seg[1:]
		case seg == "*":
			name = "wildcard"
		default:
			continue
		}
		segments[i] = "{" + name + "}"
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
		})
	}

	return strings.Join(segments, "/"), params
}
