// Package normalization resolves loosely written names onto closed sets of
// string-typed values.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// KeyFunc folds raw input into the key used for lookups.
type KeyFunc func(string) string

// Lowercase trims surrounding whitespace and lowercases.
func Lowercase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var separators = strings.NewReplacer("-", "_", " ", "_")

// Identifier is Lowercase with '-' and ' ' folded into '_', so that
// "apache-commons", "Apache Commons" and "APACHE_COMMONS" share a key.
func Identifier(s string) string {
	return separators.Replace(Lowercase(s))
}

// Set is an ordered, closed set of values. Declaration order is kept so
// callers can list and sort members deterministically.
type Set[T ~string] struct {
	name     string
	key      KeyFunc
	members  []T
	index    map[string]T
	fallback T
}

// Members creates a set whose members are addressed by their own spelling.
// fallback is returned by Normalize for unknown input.
func Members[T ~string](name string, key KeyFunc, fallback T, members ...T) *Set[T] {
	s := &Set[T]{
		name:     name,
		key:      key,
		members:  slices.Clone(members),
		index:    make(map[string]T, len(members)),
		fallback: fallback,
	}
	for _, m := range members {
		s.index[key(string(m))] = m
	}
	return s
}

// Alias adds another spelling for an existing member.
func (s *Set[T]) Alias(spelling string, member T) *Set[T] {
	if s.Index(member) < 0 {
		panic(fmt.Sprintf("normalization: alias %q targets unknown %s %q", spelling, s.name, member))
	}
	s.index[s.key(spelling)] = member
	return s
}

// Lookup reports whether raw names a member.
func (s *Set[T]) Lookup(raw string) (T, bool) {
	v, ok := s.index[s.key(raw)]
	return v, ok
}

// Normalize returns the member named by raw, or the fallback.
func (s *Set[T]) Normalize(raw string) T {
	if v, ok := s.Lookup(raw); ok {
		return v
	}
	return s.fallback
}

// Parse is Lookup with an error naming the accepted values.
func (s *Set[T]) Parse(raw string) (T, error) {
	if v, ok := s.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %s", s.name, raw, strings.Join(s.Names(), ", "))
}

// Values returns the members in declaration order.
func (s *Set[T]) Values() []T { return slices.Clone(s.members) }

// Names returns the members' spellings in declaration order.
func (s *Set[T]) Names() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = string(m)
	}
	return out
}

// Index returns the declaration position of v, or -1.
func (s *Set[T]) Index(v T) int { return slices.Index(s.members, v) }
