// Package selection holds the set of packages shown on the dashboard.
package selection

import (
	"sort"
	"strings"
)

// DefaultMaxPackages bounds the selection size when no limit is configured.
const DefaultMaxPackages = 6

// Set is a sorted list of package identifiers without duplicates or empty
// members. Values are never mutated in place; Add and Remove return new sets.
type Set []string

// Add returns current with id added. It returns current unchanged when id is
// not a valid identifier, already present, or the set already holds limit
// members. A non-positive limit falls back to DefaultMaxPackages.
func Add(current Set, id string, limit int) Set {
	id = strings.TrimSpace(id)
	if !ValidID(id) || current.Contains(id) {
		return current
	}
	if limit <= 0 {
		limit = DefaultMaxPackages
	}
	if len(current) >= limit {
		return current
	}
	next := make(Set, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, id)
	sort.Strings(next)
	return next
}

// ValidID reports whether id can be a member. Identifiers must be non-blank
// and must not contain the route characters "+" or "/", so that every set
// survives encoding as a route.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, slugSeparator+"/")
}

// Remove returns current without id.
func Remove(current Set, id string) Set {
	if !current.Contains(id) {
		return current
	}
	next := make(Set, 0, len(current)-1)
	for _, member := range current {
		if member != id {
			next = append(next, member)
		}
	}
	return next
}

// Contains reports whether id is a member.
func (s Set) Contains(id string) bool {
	i := sort.SearchStrings(s, id)
	return i < len(s) && s[i] == id
}

// Strings returns a copy of the members.
func (s Set) Strings() []string {
	return append([]string(nil), s...)
}

// From builds a set from arbitrary identifiers by adding them one at a time,
// so blanks, duplicates and anything past limit are dropped.
func From(ids []string, limit int) Set {
	set := Set{}
	for _, id := range ids {
		set = Add(set, id, limit)
	}
	return set
}
