package endpoint

import (
	"context"
	"sync"

	"github.com/deppfellow/endpoint-bridge/internal/config"
)

// MemoryRegistry keeps rules in process. Every change bumps its version.
type MemoryRegistry struct {
	mu      sync.RWMutex
	keys    []string
	rules   map[string]*Rule
	version int64
}

// NewMemoryRegistry creates a registry holding rules, in order.
func NewMemoryRegistry(rules ...*Rule) *MemoryRegistry {
	r := &MemoryRegistry{rules: make(map[string]*Rule)}
	for _, rule := range rules {
		r.Put(rule)
	}
	return r
}

// FromConfig builds a registry from the static rules of the config file.
func FromConfig(static []config.StaticRule) *MemoryRegistry {
	r := NewMemoryRegistry()
	for _, s := range static {
		name := s.Name
		if name == "" {
			name = s.Key
		}
		r.Put(&Rule{
			Key:      s.Key,
			Routes:   s.Routes,
			Endpoint: New(name, s.Methods, AuthType(s.Auth), s.Handler),
		})
	}
	return r
}

// Put adds or replaces the rule with the same key.
func (r *MemoryRegistry) Put(rule *Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.Key]; !ok {
		r.keys = append(r.keys, rule.Key)
	}
	r.rules[rule.Key] = rule
	r.version++
}

// Delete removes the rule with key, if present.
func (r *MemoryRegistry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[key]; !ok {
		return
	}
	delete(r.rules, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	r.version++
}

// Rules implements Registry.
func (r *MemoryRegistry) Rules(_ context.Context) ([]*Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Rule, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.rules[k])
	}
	return out, nil
}

// LastVersion implements Registry.
func (r *MemoryRegistry) LastVersion(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version, nil
}

// Chain serves the rules of several registries, in order.
// Its version is the sum of theirs, so it grows whenever any of them does.
type Chain []Registry

// Rules implements Registry.
func (c Chain) Rules(ctx context.Context) ([]*Rule, error) {
	var out []*Rule
	for _, r := range c {
		rules, err := r.Rules(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, rules...)
	}
	return out, nil
}

// LastVersion implements Registry.
func (c Chain) LastVersion(ctx context.Context) (int64, error) {
	var total int64
	for _, r := range c {
		v, err := r.LastVersion(ctx)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
