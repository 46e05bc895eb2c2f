// Package supervisor implements the dynamic lifecycle supervisor
// (SPEC_FULL.md §4.7): it starts and stops Agent actors on demand, keyed by
// scope, and evicts idle ones based on observed viewer presence.
package supervisor

import "fmt"

// ScopeKind names the entity a ScopeKey addresses.
type ScopeKind string

const (
	ScopeUser    ScopeKind = "user"
	ScopeProject ScopeKind = "project"
	ScopeAgent   ScopeKind = "agent"
)

// ScopeKey identifies one supervised actor, e.g. {user, "alice"} or
// {project, "proj-42"}. It is the sum-type scope tuple spec.md §4.7
// describes, represented as a small closed struct rather than an
// interface{} so it stays comparable and usable as a map key.
type ScopeKey struct {
	Kind ScopeKind
	ID   string
}

func (k ScopeKey) String() string { return fmt.Sprintf("%s:%s", k.Kind, k.ID) }
