package reactor

import (
	"fmt"
	"sort"
	"strings"
)

// ArtifactID identifies one module of the reactor by its group and name.
// It is a comparable value type and is used as a map key throughout.
type ArtifactID struct {
	Group string
	Name  string
}

func (id ArtifactID) String() string {
	return id.Group + ":" + id.Name
}

// IsZero reports whether either coordinate is missing.
func (id ArtifactID) IsZero() bool {
	return id.Group == "" || id.Name == ""
}

// ParseArtifactID parses the canonical "group:name" form.
func ParseArtifactID(s string) (ArtifactID, error) {
	group, name, ok := strings.Cut(s, ":")
	if !ok || group == "" || name == "" {
		return ArtifactID{}, fmt.Errorf("invalid artifact id %q: want group:name", s)
	}
	return ArtifactID{Group: group, Name: name}, nil
}

// Scope is the closed set of artifacts considered together in one run.
type Scope map[ArtifactID]struct{}

func NewScope(ids ...ArtifactID) Scope {
	s := make(Scope, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Scope) Contains(id ArtifactID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the scope members ordered by canonical string form,
// used wherever a deterministic processing order helps log readability.
func (s Scope) Sorted() []ArtifactID {
	ids := make([]ArtifactID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
