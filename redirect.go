package redirect

import (
	"context"
	"errors"
	"fmt"
)

var (
	defaultRegistry = NewRegistry()
	defaultHost     = NewNativeHost()
)

// Scoped redirects calls to original that are made from caller. All three
// must be functions or method expressions, and original and replacement must
// have the same signature once the receiver is counted as the first
// argument. Nothing changes until Apply is called.
//
// For example, to make one function see a different clock:
//
//	redirect.Scoped(report, time.Now, fakeNow)
func Scoped(caller, original, replacement any) error {
	refs, err := addFuncs(caller, original, replacement)
	if err != nil {
		return err
	}
	_, err = defaultRegistry.RegisterScoped(refs[0], refs[1], refs[2])
	return err
}

// Global replaces original with replacement everywhere. An original can only
// be replaced once. Nothing changes until Apply is called.
func Global(original, replacement any) error {
	refs, err := addFuncs(original, replacement)
	if err != nil {
		return err
	}
	return defaultRegistry.RegisterGlobal(refs[0], refs[1])
}

// Count returns the number of redirects registered with Scoped and Global.
func Count() int {
	return defaultRegistry.RedirectCount()
}

// Apply patches the machine code of every function named by Scoped and
// Global. Redirects that found no call to replace are returned as an error
// matching ErrUnmatchedRule, but the other redirects still take effect.
//
// Call Apply once, after every redirect is registered. A second call finds
// the scoped calls already redirected and reports them as unmatched.
func Apply(ctx context.Context, opts ...Option) error {
	reports, err := NewRewriter(defaultRegistry, opts...).Apply(ctx, defaultHost)
	if err != nil {
		return err
	}

	errs := make([]error, 0, len(reports))
	for _, r := range reports {
		errs = append(errs, r.Err())
	}
	return errors.Join(errs...)
}

func addFuncs(fns ...any) ([]MethodRef, error) {
	refs := make([]MethodRef, len(fns))
	for i, fn := range fns {
		m, err := defaultHost.Add(fn)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		refs[i] = m
	}
	return refs, nil
}
