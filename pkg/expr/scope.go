package expr

// Scope resolves the top-level names of an expression.
type Scope interface {
	Lookup(name string) (any, bool)
}

// Vars is a Scope backed by a plain map, as decoded from YAML or JSON.
type Vars map[string]any

func (v Vars) Lookup(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

type binding struct {
	parent Scope
	name   string
	value  any
}

// Bind returns a scope in which name resolves to value and every other name
// resolves through parent. The parent is not modified.
func Bind(parent Scope, name string, value any) Scope {
	return binding{parent: parent, name: name, value: value}
}

func (b binding) Lookup(name string) (any, bool) {
	if name == b.name {
		return b.value, true
	}
	if b.parent == nil {
		return nil, false
	}
	return b.parent.Lookup(name)
}
