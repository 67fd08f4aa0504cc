package redirect

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

//go:noinline
func (c *counter) Inc() {
	c.n++
}

func (c counter) Value() int {
	return c.n
}

func doubleCounter(c *counter) {
	c.n *= 2
}

func addInts(a, b int) int {
	return a + b
}

const pkgPath = "github.com/pboyd/redirect"

func TestMethodOf(t *testing.T) {
	t.Run("function", func(t *testing.T) {
		m, err := MethodOf(addInts)
		require.NoError(t, err)
		assert.Equal(t, MethodRef{
			Owner:   pkgPath,
			Name:    "addInts",
			Params:  []Type{"int", "int"},
			Results: []Type{"int"},
			Static:  true,
		}, m)
	})

	t.Run("pointer method expression", func(t *testing.T) {
		m, err := MethodOf((*counter).Inc)
		require.NoError(t, err)
		assert.Equal(t, MethodRef{
			Owner:   "*" + pkgPath + ".counter",
			Name:    "Inc",
			Params:  []Type{},
			Results: []Type{},
		}, m)
	})

	t.Run("value method expression", func(t *testing.T) {
		m, err := MethodOf(counter.Value)
		require.NoError(t, err)
		assert.False(t, m.Static)
		assert.Equal(t, Type(pkgPath+".counter"), m.Owner)
		assert.Equal(t, "Value", m.Name)
		assert.Equal(t, []Type{"int"}, m.Results)
	})

	t.Run("other package", func(t *testing.T) {
		m, err := MethodOf((*bytes.Buffer).WriteString)
		require.NoError(t, err)
		assert.Equal(t, Type("*bytes.Buffer"), m.Owner)
		assert.Equal(t, []Type{"string"}, m.Params)
		assert.Equal(t, []Type{"int", "error"}, m.Results)
	})

	t.Run("closure", func(t *testing.T) {
		fn := func(s string) bool { return s == "" }
		m, err := MethodOf(fn)
		require.NoError(t, err)
		assert.True(t, m.Static)
		assert.Equal(t, Type(pkgPath), m.Owner)
		assert.Contains(t, m.Name, "TestMethodOf")
	})

	t.Run("receiver counts as a parameter", func(t *testing.T) {
		inc, err := MethodOf((*counter).Inc)
		require.NoError(t, err)
		double, err := MethodOf(doubleCounter)
		require.NoError(t, err)
		assert.Equal(t, inc.EffectiveParams(), double.EffectiveParams())
	})

	t.Run("not a function", func(t *testing.T) {
		_, err := MethodOf("not a function")
		assert.ErrorContains(t, err, "not a function")

		_, err = MethodOf(nil)
		assert.Error(t, err)

		var fn func()
		_, err = MethodOf(fn)
		assert.Error(t, err)
	})
}

func TestSplitFuncName(t *testing.T) {
	cases := map[string][3]string{
		"time.Now":                          {"time", "", "Now"},
		"net.(*Resolver).LookupHost":        {"net", "(*Resolver)", "LookupHost"},
		"example.com/a/b.T.M":               {"example.com/a/b", "T", "M"},
		"example.com/a.F.func1":             {"example.com/a", "F", "func1"},
		"example.com/a.Map[go.shape.int].M": {"example.com/a", "Map", "M"},
		"main":                              {"", "", "main"},
		"gopkg.in/yaml%2ev3.Marshal":        {"gopkg.in/yaml.v3", "", "Marshal"},
		"gopkg.in/yaml%2ev3.(*Node).Decode": {"gopkg.in/yaml.v3", "(*Node)", "Decode"},
	}

	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			pkg, recv, fn := splitFuncName(name)
			assert.Equal(t, want, [3]string{pkg, recv, fn})
		})
	}
}

func TestMethodRef(t *testing.T) {
	static := MethodRef{Owner: "pkg", Name: "F", Params: []Type{"int", "string"}, Results: []Type{"bool"}, Static: true}
	instance := MethodRef{Owner: "*pkg.T", Name: "M", Params: []Type{"int"}, Results: []Type{"int", "error"}}

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "pkg.F(int, string) bool", static.String())
		assert.Equal(t, "(*pkg.T).M(int) (int, error)", instance.String())
		assert.Equal(t, "G()", MethodRef{Name: "G", Static: true}.String())
	})

	t.Run("EffectiveParams", func(t *testing.T) {
		assert.Equal(t, []Type{"int", "string"}, static.EffectiveParams())
		assert.Equal(t, []Type{"*pkg.T", "int"}, instance.EffectiveParams())
		// The receiver must not leak into the original slice.
		assert.Equal(t, []Type{"int"}, instance.Params)
	})

	t.Run("Equal", func(t *testing.T) {
		same := MethodRef{Owner: "pkg", Name: "F", Params: []Type{"int", "string"}, Results: []Type{"bool"}, Static: true}
		assert.True(t, static.Equal(same))

		asInstance := same
		asInstance.Static = false
		assert.False(t, static.Equal(asInstance))

		// Joining types must not make different lists collide.
		a := MethodRef{Name: "F", Params: []Type{"func(int, int)"}}
		b := MethodRef{Name: "F", Params: []Type{"func(int", "int)"}}
		assert.False(t, a.Equal(b))
	})
}
