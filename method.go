package redirect

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Type names a type. Any naming scheme works as long as it is used
// consistently, since types are only ever compared for equality.
type Type string

// MethodRef identifies a callable unit.
//
// Owner is the declaring type for methods (the receiver type for instance
// methods) or the package path for plain functions.
type MethodRef struct {
	Owner   Type
	Name    string
	Params  []Type
	Results []Type
	Static  bool
}

// EffectiveParams returns the parameter list as the callee sees it on entry:
// instance methods get their receiver type prepended.
func (m MethodRef) EffectiveParams() []Type {
	if m.Static {
		return m.Params
	}
	params := make([]Type, 0, len(m.Params)+1)
	params = append(params, m.Owner)
	return append(params, m.Params...)
}

// Equal reports whether m and o refer to the same method.
func (m MethodRef) Equal(o MethodRef) bool {
	return m.key() == o.key()
}

func (m MethodRef) String() string {
	var sb strings.Builder
	if m.Static {
		if m.Owner != "" {
			sb.WriteString(string(m.Owner))
			sb.WriteByte('.')
		}
	} else {
		fmt.Fprintf(&sb, "(%s).", m.Owner)
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	writeTypes(&sb, m.Params)
	sb.WriteByte(')')

	switch len(m.Results) {
	case 0:
	case 1:
		sb.WriteByte(' ')
		sb.WriteString(string(m.Results[0]))
	default:
		sb.WriteString(" (")
		writeTypes(&sb, m.Results)
		sb.WriteByte(')')
	}
	return sb.String()
}

func writeTypes(sb *strings.Builder, types []Type) {
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(t))
	}
}

// methodKey is the comparable form of a MethodRef.
type methodKey struct {
	owner   Type
	name    string
	params  string
	results string
	static  bool
}

func (m MethodRef) key() methodKey {
	return methodKey{
		owner:   m.Owner,
		name:    m.Name,
		params:  joinTypes(m.Params),
		results: joinTypes(m.Results),
		static:  m.Static,
	}
}

func joinTypes(types []Type) string {
	// NUL can't appear in a type name, so the joined form is unambiguous
	// even for func types that contain commas.
	var sb strings.Builder
	for _, t := range types {
		sb.WriteString(string(t))
		sb.WriteByte(0)
	}
	return sb.String()
}

// MethodOf returns the MethodRef for a Go function or method expression.
//
// Method expressions such as (*bytes.Buffer).Len are reported as instance
// methods owned by the receiver type. Everything else, including closures, is
// reported as a static function owned by its package.
func MethodOf(fn any) (MethodRef, error) {
	fnv := reflect.ValueOf(fn)
	if fnv.Kind() != reflect.Func {
		return MethodRef{}, fmt.Errorf("not a function, kind: %v", fnv.Kind())
	}
	if fnv.IsNil() {
		return MethodRef{}, fmt.Errorf("nil function")
	}

	rf := runtime.FuncForPC(fnv.Pointer())
	if rf == nil {
		return MethodRef{}, fmt.Errorf("no symbol for function at 0x%x", fnv.Pointer())
	}

	ft := fnv.Type()
	pkg, recv, name := splitFuncName(rf.Name())

	m := MethodRef{
		Owner:   Type(pkg),
		Name:    name,
		Static:  true,
		Results: make([]Type, ft.NumOut()),
	}
	for i := range ft.NumOut() {
		m.Results[i] = typeName(ft.Out(i))
	}

	first := 0
	if recv != "" && ft.NumIn() > 0 && receiverMatches(recv, ft.In(0)) {
		m.Owner = typeName(ft.In(0))
		m.Static = false
		first = 1
	} else if recv != "" {
		// Closures and nested functions look like methods by name alone.
		m.Name = recv + "." + name
	}

	m.Params = make([]Type, 0, ft.NumIn()-first)
	for i := first; i < ft.NumIn(); i++ {
		m.Params = append(m.Params, typeName(ft.In(i)))
	}

	return m, nil
}

// splitFuncName breaks a runtime symbol name like
// "example.com/pkg.(*T).Method" into package path, receiver and name.
func splitFuncName(full string) (pkg, recv, name string) {
	// Generic instantiations carry a bracketed shape that may contain dots
	// and slashes.
	if i := strings.IndexByte(full, '['); i >= 0 {
		if j := strings.LastIndexByte(full, ']'); j > i {
			full = full[:i] + full[j+1:]
		}
	}

	slash := strings.LastIndexByte(full, '/')
	dot := strings.IndexByte(full[slash+1:], '.')
	if dot < 0 {
		return "", "", full
	}
	dot += slash + 1
	pkg, rest := full[:dot], full[dot+1:]

	// The linker escapes dots in the last element of the import path.
	pkg = strings.ReplaceAll(pkg, "%2e", ".")

	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		return pkg, rest[:i], rest[i+1:]
	}
	return pkg, "", rest
}

func receiverMatches(recv string, t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return recv == "(*"+t.Elem().Name()+")"
	}
	return recv == t.Name()
}

// typeName names t with named types qualified by their full package path so
// that two packages with the same name don't collide.
func typeName(t reflect.Type) Type {
	if t.Name() != "" && t.PkgPath() != "" {
		return Type(t.PkgPath() + "." + t.Name())
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeName(t.Elem())
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	case reflect.Array:
		return Type(fmt.Sprintf("[%d]%s", t.Len(), typeName(t.Elem())))
	case reflect.Map:
		return Type(fmt.Sprintf("map[%s]%s", typeName(t.Key()), typeName(t.Elem())))
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + typeName(t.Elem())
		case reflect.SendDir:
			return "chan<- " + typeName(t.Elem())
		}
		return "chan " + typeName(t.Elem())
	}

	return Type(t.String())
}
