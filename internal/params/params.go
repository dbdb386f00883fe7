// Package params holds node parameters whose mutability depends on the
// node's lifecycle state.
package params

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bft-labs/modeswitch/internal/app"
	"github.com/bft-labs/modeswitch/internal/domain"
)

// AccessRights lists the lifecycle states in which a parameter may be set.
type AccessRights struct {
	Unconfigured bool
	Inactive     bool
	Active       bool
	Finalized    bool
}

// Allows reports whether a parameter with these rights may change in state.
func (a AccessRights) Allows(state app.State) bool {
	switch state {
	case app.StateUnconfigured:
		return a.Unconfigured
	case app.StateInactive:
		return a.Inactive
	case app.StateActive:
		return a.Active
	case app.StateFinalized:
		return a.Finalized
	default:
		return false
	}
}

// Settable is the untyped view of a Parameter used by Set.
type Settable interface {
	Name() string
	SetString(state app.State, value string) error
	String() string
}

// Parameter is a typed value guarded by lifecycle access rights.
type Parameter[T comparable] struct {
	mu       sync.Mutex
	name     string
	value    T
	rights   AccessRights
	parse    func(string) (T, error)
	onChange func(old, new T) error
}

// New declares a parameter. onChange runs before the new value is stored;
// if it fails the value is left unchanged. onChange may be nil.
func New[T comparable](name string, initial T, rights AccessRights, parse func(string) (T, error), onChange func(old, new T) error) *Parameter[T] {
	return &Parameter[T]{
		name:     name,
		value:    initial,
		rights:   rights,
		parse:    parse,
		onChange: onChange,
	}
}

// Name returns the parameter name.
func (p *Parameter[T]) Name() string {
	return p.name
}

// Get returns the current value.
func (p *Parameter[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set changes the value if state allows it. Setting the current value is a
// no-op and never calls onChange.
func (p *Parameter[T]) Set(state app.State, v T) error {
	if !p.rights.Allows(state) {
		return fmt.Errorf("%w: %s while %s", domain.ErrParameterLocked, p.name, state)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v == p.value {
		return nil
	}
	if p.onChange != nil {
		if err := p.onChange(p.value, v); err != nil {
			return fmt.Errorf("parameter %s: %w", p.name, err)
		}
	}
	p.value = v
	return nil
}

// Store records v regardless of access rights and without calling
// onChange. It is for values the owner has already applied by other means.
func (p *Parameter[T]) Store(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
}

// SetString parses value and sets it.
func (p *Parameter[T]) SetString(state app.State, value string) error {
	v, err := p.parse(value)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", p.name, err)
	}
	return p.Set(state, v)
}

// String formats the current value.
func (p *Parameter[T]) String() string {
	return fmt.Sprint(p.Get())
}

// Set is a named collection of parameters.
type Set struct {
	params map[string]Settable
}

// NewSet builds a set. Later parameters replace earlier ones with the same name.
func NewSet(params ...Settable) *Set {
	s := &Set{params: make(map[string]Settable, len(params))}
	for _, p := range params {
		s.params[p.Name()] = p
	}
	return s
}

// Set parses and applies value to the named parameter.
func (s *Set) Set(state app.State, name, value string) error {
	p, ok := s.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownParameter, name)
	}
	return p.SetString(state, value)
}

// Get returns the formatted value of the named parameter.
func (s *Set) Get(name string) (string, bool) {
	p, ok := s.params[name]
	if !ok {
		return "", false
	}
	return p.String(), true
}

// Names returns the declared parameter names, sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.params))
	for name := range s.params {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
