package graph

import (
	"bumpcast/internal/manifest"
	"bumpcast/internal/reactor"
)

// Graph is the dependency structure of one reactor run, derived from the
// manifest index in a single pass. References whose target is not a reactor
// artifact are inert and never enter the graph.
type Graph struct {
	// forwardRefs lists the reference cells inside an artifact's own
	// manifest that point at other reactor artifacts.
	forwardRefs map[reactor.ArtifactID][]*manifest.Ref

	// refsTo lists the reference cells in *other* manifests that point at
	// an artifact, i.e. the cells to rewrite when it bumps.
	refsTo map[reactor.ArtifactID][]*manifest.Ref

	// dependents lists the artifacts whose manifest references an
	// artifact, i.e. the artifacts to re-examine when it bumps.
	dependents map[reactor.ArtifactID][]reactor.ArtifactID
}

// Build scans every manifest's references once, O(total reference count).
// Invariant: dependents[a] contains b iff forwardRefs[b] holds a reference
// targeting a.
func Build(idx *manifest.Index) *Graph {
	g := &Graph{
		forwardRefs: make(map[reactor.ArtifactID][]*manifest.Ref),
		refsTo:      make(map[reactor.ArtifactID][]*manifest.Ref),
		dependents:  make(map[reactor.ArtifactID][]reactor.ArtifactID),
	}

	scope := idx.Scope()
	for _, id := range scope.Sorted() {
		m := idx.Get(id)
		for _, ref := range m.Refs {
			if !scope.Contains(ref.Target) {
				continue
			}
			g.forwardRefs[id] = append(g.forwardRefs[id], ref)
			g.refsTo[ref.Target] = append(g.refsTo[ref.Target], ref)
			g.dependents[ref.Target] = append(g.dependents[ref.Target], id)
		}
	}
	return g
}

// ForwardRefs returns the internal references declared by an artifact.
func (g *Graph) ForwardRefs(id reactor.ArtifactID) []*manifest.Ref {
	return g.forwardRefs[id]
}

// RefsTo returns every reference cell pointing at an artifact.
func (g *Graph) RefsTo(id reactor.ArtifactID) []*manifest.Ref {
	return g.refsTo[id]
}

// Dependents returns the artifacts that must be re-examined when the given
// artifact bumps. The input data may contain cycles; callers guard against
// revisiting.
func (g *Graph) Dependents(id reactor.ArtifactID) []reactor.ArtifactID {
	return g.dependents[id]
}

// EdgeCount returns the number of internal dependency edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, refs := range g.forwardRefs {
		n += len(refs)
	}
	return n
}
