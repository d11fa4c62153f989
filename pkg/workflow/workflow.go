// Package workflow implements the small status machines used for staff
// availability and appointment status: a closed set of states with legacy
// spellings folded onto canonical ones.
package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Machine is a status machine over states of type S. Any known state may
// follow any other.
type Machine[S ~string] struct {
	name    string
	states  map[S]bool
	aliases map[string]S
}

// New returns a machine named name (used in error messages) over states.
func New[S ~string](name string, states ...S) *Machine[S] {
	m := &Machine[S]{
		name:    name,
		states:  make(map[S]bool, len(states)),
		aliases: make(map[string]S),
	}
	for _, s := range states {
		m.states[s] = true
		m.aliases[fold(string(s))] = s
	}
	return m
}

// WithAliases registers legacy spellings that parse to a canonical state.
func (m *Machine[S]) WithAliases(aliases map[string]S) *Machine[S] {
	for raw, s := range aliases {
		if !m.states[s] {
			panic(fmt.Sprintf("workflow %s: alias %q targets unknown state %q", m.name, raw, s))
		}
		m.aliases[fold(raw)] = s
	}
	return m
}

// Parse maps raw input, including registered aliases, onto a canonical state.
func (m *Machine[S]) Parse(raw string) (S, error) {
	if s, ok := m.aliases[fold(raw)]; ok {
		return s, nil
	}
	var zero S
	return zero, apperr.Validation("invalid %s %q (want one of %s)", m.name, raw, strings.Join(m.States(), ", "))
}

// Transition validates moving from -> to and returns the new state. Only the
// target is checked; from is carried for the error message.
func (m *Machine[S]) Transition(from, to S) (S, error) {
	if !m.states[to] {
		var zero S
		return zero, apperr.Validation("%s cannot change from %q to unknown state %q", m.name, from, to)
	}
	return to, nil
}

// States lists the canonical states in lexical order.
func (m *Machine[S]) States() []string {
	out := make([]string, 0, len(m.states))
	for s := range m.states {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
