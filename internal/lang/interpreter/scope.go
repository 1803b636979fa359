package interpreter

import "github.com/rxtech-lab/argo-script/pkg/errors"

// Scope is the variable bindings for one execution: a single flat mapping
// per run with no back-references. Created per run, mutated by assignments,
// discarded at run end.
type Scope struct {
	bindings map[string]Value
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[string]Value)}
}

// Get returns the bound value for a name.
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.bindings[name]

	return v, ok
}

// Declare binds a new name, as done by `let`. Redeclaring is allowed and
// overwrites: scripts are short and rerun per window.
func (s *Scope) Declare(name string, v Value) {
	s.bindings[name] = v
}

// Assign rebinds an existing name, faulting when it was never declared.
func (s *Scope) Assign(name string, v Value) error {
	if _, ok := s.bindings[name]; !ok {
		return errors.Newf(errors.ErrCodeUnknownIdentifier, "cannot assign to undeclared variable %q", name)
	}

	s.bindings[name] = v

	return nil
}

// Snapshot returns a copy of the current bindings.
func (s *Scope) Snapshot() map[string]Value {
	out := make(map[string]Value, len(s.bindings))
	for name, v := range s.bindings {
		out[name] = v
	}

	return out
}
