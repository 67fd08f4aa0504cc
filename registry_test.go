package redirect

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func staticFunc(name string, params []Type, results ...Type) MethodRef {
	return MethodRef{Owner: "pkg", Name: name, Params: params, Results: results, Static: true}
}

func instanceMethod(owner Type, name string, params []Type, results ...Type) MethodRef {
	return MethodRef{Owner: owner, Name: name, Params: params, Results: results}
}

var (
	testCaller = staticFunc("caller", nil)
	testOrig   = staticFunc("orig", []Type{"int", "string"}, "bool")
	testRepl   = staticFunc("repl", []Type{"int", "string"}, "bool")
)

func TestRegistry_RegisterScoped(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := NewRegistry()
	id, err := reg.RegisterScoped(testCaller, testOrig, testRepl)
	require.NoError(err)
	assert.NotZero(id)

	assert.Equal([]MethodRef{testCaller}, slices.Collect(reg.TargetedMethods()))
	assert.Equal(1, reg.RedirectCount())

	rules := reg.RulesFor(testCaller)
	assert.Nil(rules.Global)
	assert.Equal([]ScopedRedirect{{
		ID:          id,
		Caller:      testCaller,
		Original:    testOrig,
		Replacement: testRepl,
	}}, rules.Scoped)

	assert.True(reg.RulesFor(testOrig).Empty())

	// Changing the returned rules leaves the registry alone.
	rules.Scoped[0].Original = testCaller
	assert.Equal(testOrig, reg.RulesFor(testCaller).Scoped[0].Original)
}

func TestRegistry_RegisterGlobal(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := NewRegistry()
	require.NoError(reg.RegisterGlobal(testOrig, testRepl))

	assert.Equal([]MethodRef{testOrig}, slices.Collect(reg.TargetedMethods()))
	assert.Equal(1, reg.RedirectCount())

	rules := reg.RulesFor(testOrig)
	assert.Empty(rules.Scoped)
	if assert.NotNil(rules.Global) {
		assert.Equal(testRepl, rules.Global.Replacement)
	}

	repl, ok := reg.GlobalFor(testOrig)
	assert.True(ok)
	assert.Equal(testRepl, repl)
}

func TestRegistry_InstanceToStatic(t *testing.T) {
	inc := instanceMethod("*pkg.Counter", "Inc", []Type{"int"})
	double := staticFunc("double", []Type{"*pkg.Counter", "int"})

	reg := NewRegistry()
	assert.NoError(t, reg.RegisterGlobal(inc, double))
	_, err := reg.RegisterScoped(testCaller, double, inc)
	assert.NoError(t, err)
}

func TestRegistry_SignatureMismatch(t *testing.T) {
	cases := map[string]struct {
		orig, repl MethodRef
		want       TypeDifference
	}{
		"different parameter type": {
			orig: testOrig,
			repl: staticFunc("repl", []Type{"int", "int"}, "bool"),
			want: TypeDifference{Position: PositionParam, Index: 1, Original: "string", Replacement: "int"},
		},
		"swapped parameters": {
			orig: testOrig,
			repl: staticFunc("repl", []Type{"string", "int"}, "bool"),
			want: TypeDifference{Position: PositionParam, Index: 0, Original: "int", Replacement: "string"},
		},
		"extra parameter": {
			orig: testOrig,
			repl: staticFunc("repl", []Type{"int", "string", "error"}, "bool"),
			want: TypeDifference{Position: PositionParam, Index: 2, Replacement: "error"},
		},
		"missing parameter": {
			orig: testOrig,
			repl: staticFunc("repl", []Type{"int"}, "bool"),
			want: TypeDifference{Position: PositionParam, Index: 1, Original: "string"},
		},
		"different result": {
			orig: testOrig,
			repl: staticFunc("repl", []Type{"int", "string"}, "int"),
			want: TypeDifference{Position: PositionResult, Index: 0, Original: "bool", Replacement: "int"},
		},
		"result is not widened": {
			orig: staticFunc("orig", nil, "int64"),
			repl: staticFunc("repl", nil, "int32"),
			want: TypeDifference{Position: PositionResult, Index: 0, Original: "int64", Replacement: "int32"},
		},
		"missing receiver": {
			orig: instanceMethod("*pkg.T", "M", []Type{"int"}),
			repl: staticFunc("repl", []Type{"int"}),
			want: TypeDifference{Position: PositionParam, Index: 0, Original: "*pkg.T", Replacement: "int"},
		},
		"different receiver": {
			orig: instanceMethod("*pkg.T", "M", nil),
			repl: instanceMethod("*pkg.U", "M", nil),
			want: TypeDifference{Position: PositionParam, Index: 0, Original: "*pkg.T", Replacement: "*pkg.U"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry()

			_, err := reg.RegisterScoped(testCaller, tc.orig, tc.repl)
			require.ErrorIs(t, err, ErrSignatureMismatch)

			var mismatch *SignatureMismatchError
			require.ErrorAs(t, err, &mismatch)
			require.NotEmpty(t, mismatch.Differences)
			assert.Equal(t, tc.want, mismatch.Differences[0])
			assert.Contains(t, err.Error(), "function signatures do not match")

			err = reg.RegisterGlobal(tc.orig, tc.repl)
			assert.ErrorIs(t, err, ErrSignatureMismatch)

			assert.Zero(t, reg.RedirectCount())
			assert.Empty(t, slices.Collect(reg.TargetedMethods()))
			assert.True(t, reg.RulesFor(testCaller).Empty())

			// The registry still takes a corrected registration.
			fixed := tc.orig
			fixed.Name = "fixed"
			_, err = reg.RegisterScoped(testCaller, tc.orig, fixed)
			assert.NoError(t, err)
			assert.Equal(t, 1, reg.RedirectCount())
		})
	}
}

func TestRegistry_DuplicateGlobal(t *testing.T) {
	assert := assert.New(t)

	other := staticFunc("other", []Type{"int", "string"}, "bool")

	reg := NewRegistry()
	assert.NoError(reg.RegisterGlobal(testOrig, testRepl))

	err := reg.RegisterGlobal(testOrig, other)
	assert.ErrorIs(err, ErrDuplicateRedirect)

	var dup *DuplicateRedirectError
	if assert.ErrorAs(err, &dup) {
		assert.Equal(testRepl, dup.Existing)
		assert.Equal(other, dup.Rejected)
	}

	repl, ok := reg.GlobalFor(testOrig)
	assert.True(ok)
	assert.Equal(testRepl, repl)
	assert.Equal(1, reg.RedirectCount())
}

func TestRegistry_ScopedAppends(t *testing.T) {
	assert := assert.New(t)

	reg := NewRegistry()
	first, err := reg.RegisterScoped(testCaller, testOrig, testRepl)
	assert.NoError(err)
	second, err := reg.RegisterScoped(testCaller, testOrig, testRepl)
	assert.NoError(err)
	assert.Greater(second, first)

	rules := reg.RulesFor(testCaller).Scoped
	if assert.Len(rules, 2) {
		assert.Equal(first, rules[0].ID)
		assert.Equal(second, rules[1].ID)
	}

	// Still one caller to rewrite, but two rules.
	assert.Len(slices.Collect(reg.TargetedMethods()), 1)
	assert.Equal(2, reg.RedirectCount())
}

func TestRegistry_ScopedBeforeGlobal(t *testing.T) {
	assert := assert.New(t)

	reg := NewRegistry()
	assert.NoError(reg.RegisterGlobal(testOrig, testRepl))
	_, err := reg.RegisterScoped(testOrig, testRepl, testOrig)
	assert.NoError(err)

	rules := reg.RulesFor(testOrig)
	assert.Len(rules.Scoped, 1)
	assert.Nil(rules.Global)

	// Rewritten once, as a caller.
	assert.Equal([]MethodRef{testOrig}, slices.Collect(reg.TargetedMethods()))
	assert.Equal(2, reg.RedirectCount())
}

func TestRegistry_TargetedMethodsSnapshot(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.RegisterScoped(testCaller, testOrig, testRepl)
	require.NoError(t, err)

	var seen []MethodRef
	for m := range reg.TargetedMethods() {
		seen = append(seen, m)
		// Registering while iterating must neither deadlock nor show up.
		require.NoError(t, reg.RegisterGlobal(testOrig, testRepl))
	}
	assert.Equal(t, []MethodRef{testCaller}, seen)
	assert.Len(t, slices.Collect(reg.TargetedMethods()), 2)
}

func TestRegistry_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		callers   = 8
		perCaller = 50
		originals = 40
	)

	reg := NewRegistry()

	var g errgroup.Group
	for c := range callers {
		caller := staticFunc(fmt.Sprintf("caller%d", c), nil)
		for range perCaller {
			g.Go(func() error {
				_, err := reg.RegisterScoped(caller, testOrig, testRepl)
				return err
			})
		}
	}

	// Every original is registered twice concurrently. Exactly one of
	// each pair may win.
	dupes := make(chan error, originals*2)
	for o := range originals {
		orig := staticFunc(fmt.Sprintf("orig%d", o), []Type{"int"})
		repl := staticFunc(fmt.Sprintf("repl%d", o), []Type{"int"})
		for range 2 {
			g.Go(func() error {
				dupes <- reg.RegisterGlobal(orig, repl)
				return nil
			})
		}
	}

	// Interleave reads with the writes.
	for range 10 {
		g.Go(func() error {
			n := reg.RedirectCount()
			if n < 0 || n > callers*perCaller+originals {
				return fmt.Errorf("impossible count %d", n)
			}
			for range reg.TargetedMethods() {
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	close(dupes)

	var failed int
	for err := range dupes {
		if err != nil {
			assert.ErrorIs(t, err, ErrDuplicateRedirect)
			failed++
		}
	}
	assert.Equal(t, originals, failed)

	assert.Equal(t, callers*perCaller+originals, reg.RedirectCount())
	for c := range callers {
		rules := reg.RulesFor(staticFunc(fmt.Sprintf("caller%d", c), nil)).Scoped
		assert.Len(t, rules, perCaller)
	}
	assert.Len(t, slices.Collect(reg.TargetedMethods()), callers+originals)
}
