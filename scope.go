package accesscontrol

import "fmt"

// Scope qualifies how broadly a permission applies. Scopes form a fixed
// total order; every comparison in the engine goes through this type.
type Scope string

const (
	ScopeNone            Scope = "none"
	ScopeAssignedOnly    Scope = "assigned_only"
	ScopeStation         Scope = "station"
	ScopeProcessArea     Scope = "process_area"
	ScopeDepartment      Scope = "department"
	ScopeCrossDepartment Scope = "cross_department"
	ScopeAll             Scope = "all"
)

var scopeRanks = map[Scope]int{
	ScopeNone:            1,
	ScopeAssignedOnly:    2,
	ScopeStation:         3,
	ScopeProcessArea:     4,
	ScopeDepartment:      5,
	ScopeCrossDepartment: 6,
	ScopeAll:             7,
}

// ParseScope converts a stored string into a Scope.
func ParseScope(s string) (Scope, error) {
	scope := Scope(s)
	if !scope.Valid() {
		return ScopeNone, fmt.Errorf("unknown scope %q: %w", s, ErrInvalidInput)
	}
	return scope, nil
}

// Valid reports whether the scope is one of the known qualifiers.
func (s Scope) Valid() bool {
	_, ok := scopeRanks[s]
	return ok
}

// Rank returns the scope's position in the lattice. Unknown scopes rank
// below none so they can never win a comparison.
func (s Scope) Rank() int {
	return scopeRanks[s]
}

// AtLeast reports whether s is equal to or broader than other.
func (s Scope) AtLeast(other Scope) bool {
	return s.Rank() >= other.Rank()
}

// MostPermissive returns the broader of the two scopes.
func MostPermissive(a, b Scope) Scope {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// narrowest returns the narrower of the two scopes.
func narrowest(a, b Scope) Scope {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}
