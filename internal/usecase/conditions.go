package usecase

import (
	"reflect"
	"sync"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// ConditionFunc evaluates one predicate against the evaluation context.
// Implementations must not panic; returning false denies.
type ConditionFunc func(args any, evalCtx map[string]any) bool

// ConditionRegistry maps predicate names to evaluators. A condition document
// whose predicate has no registered evaluator fails closed.
type ConditionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]ConditionFunc
}

// NewConditionRegistry constructs a registry seeded with the built-in
// equals, not_equals, and in predicates.
func NewConditionRegistry() *ConditionRegistry {
	r := &ConditionRegistry{funcs: make(map[string]ConditionFunc)}
	r.Register("equals", evalEquals)
	r.Register("not_equals", evalNotEquals)
	r.Register("in", evalIn)
	return r
}

// Register installs or replaces the evaluator for the named predicate.
func (r *ConditionRegistry) Register(name string, fn ConditionFunc) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Evaluate reports whether every predicate in the document passes. An empty
// document passes; an unrecognized predicate fails the whole document.
func (r *ConditionRegistry) Evaluate(conditions domain.Conditions, evalCtx map[string]any) bool {
	if len(conditions) == 0 {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, args := range conditions {
		fn, ok := r.funcs[name]
		if !ok {
			return false
		}
		if !fn(args, evalCtx) {
			return false
		}
	}

	return true
}

func evalEquals(args any, evalCtx map[string]any) bool {
	fields, ok := args.(map[string]any)
	if !ok {
		return false
	}
	for field, want := range fields {
		if !reflect.DeepEqual(evalCtx[field], want) {
			return false
		}
	}
	return true
}

func evalNotEquals(args any, evalCtx map[string]any) bool {
	fields, ok := args.(map[string]any)
	if !ok {
		return false
	}
	for field, want := range fields {
		if reflect.DeepEqual(evalCtx[field], want) {
			return false
		}
	}
	return true
}

func evalIn(args any, evalCtx map[string]any) bool {
	fields, ok := args.(map[string]any)
	if !ok {
		return false
	}
	for field, raw := range fields {
		allowed, ok := raw.([]any)
		if !ok {
			return false
		}
		found := false
		for _, candidate := range allowed {
			if reflect.DeepEqual(evalCtx[field], candidate) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
