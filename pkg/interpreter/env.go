package interpreter

import (
	"sort"

	"github.com/zurustar/tinyscript/pkg/compiler/ast"
	"github.com/zurustar/tinyscript/pkg/value"
)

// Closure is a function declaration paired with the environment it was
// declared in. Calls run in a child of Env, not of the caller's environment.
type Closure struct {
	Decl *ast.FunctionDeclaration
	Env  *Environment
}

// Arity returns the number of declared parameters.
func (c *Closure) Arity() int { return len(c.Decl.Params) }

// Environment is one frame of the scope chain. Variables and functions are
// kept in separate namespaces.
//
// Frames are shared by pointer: a closure keeps its defining frame alive
// and sees later assignments made to it.
type Environment struct {
	vars   map[string]value.Value
	funcs  map[string]*Closure
	parent *Environment
}

// NewEnvironment creates a root environment.
func NewEnvironment() *Environment {
	return newEnvironment(nil)
}

func newEnvironment(parent *Environment) *Environment {
	return &Environment{
		vars:   make(map[string]value.Value),
		funcs:  make(map[string]*Closure),
		parent: parent,
	}
}

// Child creates a new frame whose parent is e.
func (e *Environment) Child() *Environment {
	return newEnvironment(e)
}

// Parent returns the enclosing frame, or nil for the root.
func (e *Environment) Parent() *Environment { return e.parent }

// Get looks name up in e and then in each parent.
func (e *Environment) Get(name string) (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Set assigns to the nearest frame that already binds name. If no frame
// does, name is created in e.
func (e *Environment) Set(name string, v value.Value) {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}

// SetLocal binds name in e, shadowing any binding in a parent. Used for
// function parameters.
func (e *Environment) SetLocal(name string, v value.Value) {
	e.vars[name] = v
}

// Has reports whether name is bound in e or a parent.
func (e *Environment) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// HasLocal reports whether name is bound in e itself.
func (e *Environment) HasLocal(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// DeclareFunction registers decl in e's function namespace, closing over e.
func (e *Environment) DeclareFunction(decl *ast.FunctionDeclaration) *Closure {
	c := &Closure{Decl: decl, Env: e}
	e.funcs[decl.Name] = c
	return c
}

// LookupFunction finds the nearest function named name.
func (e *Environment) LookupFunction(name string) (*Closure, bool) {
	for env := e; env != nil; env = env.parent {
		if c, ok := env.funcs[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// Names returns the variable names bound in e itself, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
