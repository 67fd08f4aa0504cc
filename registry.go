package redirect

import (
	"iter"
	"slices"
	"sync"
)

// RuleID identifies a scoped redirect. IDs increase in registration order.
type RuleID uint64

// ScopedRedirect replaces calls to Original with calls to Replacement, but
// only inside Caller.
type ScopedRedirect struct {
	ID          RuleID
	Caller      MethodRef
	Original    MethodRef
	Replacement MethodRef
}

// GlobalRedirect replaces the body of Original with a call to Replacement.
type GlobalRedirect struct {
	Original    MethodRef
	Replacement MethodRef
}

// Registry holds redirect rules. It's safe for concurrent use. Rules are only
// ever added.
type Registry struct {
	mu     sync.RWMutex
	nextID RuleID

	scoped      map[methodKey][]ScopedRedirect
	scopedOrder []MethodRef
	scopedCount int

	global      map[methodKey]GlobalRedirect
	globalOrder []MethodRef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		scoped: map[methodKey][]ScopedRedirect{},
		global: map[methodKey]GlobalRedirect{},
	}
}

// RegisterScoped redirects calls to original made from caller. An error
// matching ErrSignatureMismatch is returned, and nothing is registered, if
// replacement can't take original's place.
func (r *Registry) RegisterScoped(caller, original, replacement MethodRef) (RuleID, error) {
	if err := checkSignatures(original, replacement); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rule := ScopedRedirect{
		ID:          r.nextID,
		Caller:      caller,
		Original:    original,
		Replacement: replacement,
	}

	k := caller.key()
	rules, ok := r.scoped[k]
	if !ok {
		r.scopedOrder = append(r.scopedOrder, caller)
	}
	r.scoped[k] = append(rules, rule)
	r.scopedCount++

	return rule.ID, nil
}

// RegisterGlobal replaces original everywhere with replacement. Only one
// global redirect may exist for an original; later attempts fail with an
// error matching ErrDuplicateRedirect and leave the first in place.
func (r *Registry) RegisterGlobal(original, replacement MethodRef) error {
	if err := checkSignatures(original, replacement); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := original.key()
	if existing, ok := r.global[k]; ok {
		return &DuplicateRedirectError{
			Original: original,
			Existing: existing.Replacement,
			Rejected: replacement,
		}
	}

	r.global[k] = GlobalRedirect{Original: original, Replacement: replacement}
	r.globalOrder = append(r.globalOrder, original)
	return nil
}

// TargetedMethods yields every method that needs rewriting once: callers
// with scoped redirects, then originals of global redirects. The sequence is
// a snapshot taken when iteration starts.
func (r *Registry) TargetedMethods() iter.Seq[MethodRef] {
	return func(yield func(MethodRef) bool) {
		r.mu.RLock()
		targets := make([]MethodRef, 0, len(r.scopedOrder)+len(r.globalOrder))
		targets = append(targets, r.scopedOrder...)
		for _, m := range r.globalOrder {
			// Scoped rules take precedence, see RulesFor.
			if _, ok := r.scoped[m.key()]; !ok {
				targets = append(targets, m)
			}
		}
		r.mu.RUnlock()

		for _, m := range targets {
			if !yield(m) {
				return
			}
		}
	}
}

// Rules is the set of rules that apply to one method. At most one of the
// fields is set.
type Rules struct {
	// Scoped lists the method's scoped redirects in registration order.
	Scoped []ScopedRedirect

	Global *GlobalRedirect
}

// Empty reports whether no rule applies.
func (r Rules) Empty() bool {
	return len(r.Scoped) == 0 && r.Global == nil
}

// RulesFor returns a copy of the rules that apply when rewriting method. A
// method with scoped redirects is treated as a caller even if it's also the
// original of a global redirect.
func (r *Registry) RulesFor(method MethodRef) Rules {
	k := method.key()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rules, ok := r.scoped[k]; ok {
		return Rules{Scoped: slices.Clone(rules)}
	}
	if g, ok := r.global[k]; ok {
		return Rules{Global: &g}
	}
	return Rules{}
}

// GlobalFor returns the replacement registered for original.
func (r *Registry) GlobalFor(original MethodRef) (MethodRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.global[original.key()]
	return g.Replacement, ok
}

// RedirectCount returns the number of registered rules of both kinds.
func (r *Registry) RedirectCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scopedCount + len(r.global)
}
