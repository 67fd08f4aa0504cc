package redirect

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureMismatch is matched by every *SignatureMismatchError.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrDuplicateRedirect is matched by every *DuplicateRedirectError.
	ErrDuplicateRedirect = errors.New("duplicate redirect")

	// ErrUnmatchedRule is matched by every *UnmatchedRuleError.
	ErrUnmatchedRule = errors.New("unmatched redirect rule")

	// ErrUnknownMethod is returned by a Host for a method it has no body
	// for.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrUnsupportedArch is returned by NativeHost on architectures it
	// can't patch.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// Position names where a signature check failed.
type Position int

const (
	// PositionParam is an effective parameter, receiver included.
	PositionParam Position = iota

	// PositionResult is a result.
	PositionResult
)

func (p Position) String() string {
	if p == PositionResult {
		return "result"
	}
	return "argument"
}

// SignatureMismatchError is returned at registration time when the original
// and the replacement can't be swapped without corrupting the caller's
// arguments or results.
type SignatureMismatchError struct {
	Original    MethodRef
	Replacement MethodRef

	// Differences lists every position that failed. The first one is the
	// primary failure.
	Differences []TypeDifference
}

// TypeDifference is one failed position. A missing type on either side is
// the empty Type.
type TypeDifference struct {
	Position    Position
	Index       int
	Original    Type
	Replacement Type
}

func (d TypeDifference) Error() string {
	switch {
	case d.Original == "":
		return fmt.Sprintf("%s %d: replacement has extra %s", d.Position, d.Index, d.Replacement)
	case d.Replacement == "":
		return fmt.Sprintf("%s %d: replacement is missing %s", d.Position, d.Index, d.Original)
	}
	return fmt.Sprintf("%s %d: %s != %s", d.Position, d.Index, d.Original, d.Replacement)
}

func (e *SignatureMismatchError) Error() string {
	errs := make([]error, 0, len(e.Differences)+1)
	errs = append(errs, fmt.Errorf("cannot redirect %v to %v: function signatures do not match", e.Original, e.Replacement))
	for _, d := range e.Differences {
		errs = append(errs, d)
	}
	return errors.Join(errs...).Error()
}

func (e *SignatureMismatchError) Is(target error) bool {
	return target == ErrSignatureMismatch
}

// DuplicateRedirectError is returned when a second global redirect is
// registered for the same original.
type DuplicateRedirectError struct {
	Original MethodRef
	Existing MethodRef
	Rejected MethodRef
}

func (e *DuplicateRedirectError) Error() string {
	return fmt.Sprintf("%v is already redirected to %v, cannot redirect to %v", e.Original, e.Existing, e.Rejected)
}

func (e *DuplicateRedirectError) Is(target error) bool {
	return target == ErrDuplicateRedirect
}

// UnmatchedRuleError describes a scoped redirect whose original was never
// called from its caller. It is a warning: the caller's body is still
// installed.
type UnmatchedRuleError struct {
	Rule ScopedRedirect
}

func (e *UnmatchedRuleError) Error() string {
	return fmt.Sprintf("no matching call to %v found in %v", e.Rule.Original, e.Rule.Caller)
}

func (e *UnmatchedRuleError) Is(target error) bool {
	return target == ErrUnmatchedRule
}
