package redirect

import (
	"errors"
	"iter"

	"go.uber.org/zap"
)

// RuleKind is the kind of rewrite applied to a method.
type RuleKind uint8

const (
	KindNone RuleKind = iota
	KindScoped
	KindGlobal
)

func (k RuleKind) String() string {
	switch k {
	case KindScoped:
		return "scoped"
	case KindGlobal:
		return "global"
	}
	return "none"
}

// Report describes one rewrite pass.
type Report struct {
	Method MethodRef
	Kind   RuleKind

	// Matched lists scoped rules that replaced at least one call.
	Matched []RuleID

	// Unmatched lists scoped rules whose original was never called.
	Unmatched []ScopedRedirect
}

// Err returns an error matching ErrUnmatchedRule for each unmatched rule, or
// nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Unmatched))
	for i, rule := range r.Unmatched {
		errs[i] = &UnmatchedRuleError{Rule: rule}
	}
	return errors.Join(errs...)
}

// Rewriter rewrites method bodies according to the rules in a Registry.
type Rewriter struct {
	reg     *Registry
	log     *zap.Logger
	workers int
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger used for rewrite diagnostics. The default
// discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(rw *Rewriter) {
		if log != nil {
			rw.log = log
		}
	}
}

// WithWorkers limits how many methods Apply rewrites at once.
func WithWorkers(n int) Option {
	return func(rw *Rewriter) {
		if n > 0 {
			rw.workers = n
		}
	}
}

// NewRewriter returns a Rewriter for the rules in reg.
func NewRewriter(reg *Registry, opts ...Option) *Rewriter {
	rw := &Rewriter{
		reg:     reg,
		log:     zap.NewNop(),
		workers: 4,
	}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

// TargetMethods is the enumeration hook for the instrumentation layer.
func (rw *Rewriter) TargetMethods() iter.Seq[MethodRef] {
	return rw.reg.TargetedMethods()
}

// Transpile is the body rewrite hook for the instrumentation layer. Unmatched
// rules are logged.
func (rw *Rewriter) Transpile(method MethodRef, body []Instruction) []Instruction {
	out, _ := rw.Rewrite(method, body)
	return out
}

// Rewrite returns the body to install for method. Methods without rules get
// body back untouched. The input slice is never modified.
func (rw *Rewriter) Rewrite(method MethodRef, body []Instruction) ([]Instruction, *Report) {
	rules := rw.reg.RulesFor(method)
	report := &Report{Method: method}

	switch {
	case len(rules.Scoped) > 0:
		report.Kind = KindScoped
		out := rw.rewriteScoped(method, body, rules.Scoped, report)
		return out, report
	case rules.Global != nil:
		report.Kind = KindGlobal
		return forwardingBody(method, rules.Global.Replacement), report
	}

	return body, report
}

func (rw *Rewriter) rewriteScoped(method MethodRef, body []Instruction, rules []ScopedRedirect, report *Report) []Instruction {
	found := make([]bool, len(rules))
	out := make([]Instruction, len(body))

	for i, in := range body {
		out[i] = in

		callee, ok := in.Callee()
		if !ok {
			continue
		}
		for j, rule := range rules {
			if callee.Equal(rule.Original) {
				out[i] = in.retarget(rule.Replacement)
				found[j] = true
				break
			}
		}
	}

	for j, rule := range rules {
		if found[j] {
			report.Matched = append(report.Matched, rule.ID)
			continue
		}
		report.Unmatched = append(report.Unmatched, rule)
		rw.log.Warn("no matching call for redirect",
			zap.Stringer("original", rule.Original),
			zap.Stringer("caller", method),
			zap.Uint64("rule", uint64(rule.ID)),
		)
	}

	return out
}

// forwardingBody loads every effective argument of method in order and
// passes them to replacement.
func forwardingBody(method, replacement MethodRef) []Instruction {
	n := len(method.EffectiveParams())
	body := make([]Instruction, 0, n+2)
	for i := range n {
		body = append(body, LoadArg(i))
	}
	return append(body, Call(replacement), Return())
}
