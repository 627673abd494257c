// Package endpoint defines endpoint rules, the descriptors they route to, and
// the registry contract the router reads them from.
package endpoint

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// AuthType names the auth method an endpoint runs before its handler.
type AuthType string

const (
	AuthPublic       AuthType = "public"
	AuthUser         AuthType = "user"
	AuthUserEndpoint AuthType = "user_endpoint"
)

// Endpoint describes what a rule routes to.
//
// Endpoints are shared: the same *Endpoint may be returned by the registry on
// every pass, so its method allow-list is only changed through EnsureMethod.
type Endpoint struct {
	Name        string
	Auth        AuthType
	Handler     string
	ContentType string

	mu      sync.RWMutex
	methods []string
}

// New creates an Endpoint. Methods are upper-cased; an empty auth means user_endpoint.
func New(name string, methods []string, auth AuthType, handler string) *Endpoint {
	if auth == "" {
		auth = AuthUserEndpoint
	}
	e := &Endpoint{
		Name:        name,
		Auth:        auth,
		Handler:     handler,
		ContentType: "application/json",
	}
	for _, m := range methods {
		e.addMethod(strings.ToUpper(m))
	}
	return e
}

// Methods returns a copy of the allow-list.
func (e *Endpoint) Methods() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.methods)
}

// Allows reports whether method is in the allow-list.
func (e *Endpoint) Allows(method string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Contains(e.methods, strings.ToUpper(method))
}

// EnsureMethod appends method to the allow-list unless it is already there.
// It reports whether the list changed.
func (e *Endpoint) EnsureMethod(method string) bool {
	method = strings.ToUpper(method)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addMethod(method)
}

func (e *Endpoint) addMethod(method string) bool {
	if method == "" || slices.Contains(e.methods, method) {
		return false
	}
	e.methods = append(e.methods, method)
	return true
}

// Rule binds URL patterns to an endpoint.
type Rule struct {
	Key      string
	Routes   []string
	Endpoint *Endpoint
}

func (r *Rule) String() string {
	return r.Key + " " + strings.Join(r.Routes, ",") + " -> " + r.Endpoint.Name
}

// Registry is the external owner of endpoint rules.
type Registry interface {
	// Rules returns the active rules in a stable order.
	Rules(ctx context.Context) ([]*Rule, error)

	// LastVersion returns a counter that grows whenever the rule set changes.
	LastVersion(ctx context.Context) (int64, error)
}
