package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bumpcast/internal/reactor"
)

// Index holds every manifest of the reactor, keyed by artifact identity.
// It is rebuilt fresh each run; nothing is cached across runs.
type Index struct {
	byID map[reactor.ArtifactID]*Manifest
}

// Scanner discovers pom.xml files under the reactor root.
type Scanner struct {
	ignored []string
}

func NewScanner() *Scanner {
	return &Scanner{
		ignored: []string{".git", "target", "node_modules", "vendor", ".bumps"},
	}
}

// Scan walks root and parses every manifest it finds. Two manifests
// claiming the same coordinates make the reactor ambiguous and fail the
// scan.
func (s *Scanner) Scan(root string) (*Index, error) {
	idx := &Index{byID: make(map[reactor.ArtifactID]*Manifest)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, ign := range s.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if d.Name() != "pom.xml" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("manifest: read %s: %w", path, err)
		}
		m, err := Parse(path, data)
		if err != nil {
			return err
		}
		if existing, ok := idx.byID[m.ID]; ok {
			return fmt.Errorf("manifest: %s declared by both %s and %s", m.ID, existing.Path, m.Path)
		}
		idx.byID[m.ID] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Get returns the manifest for an artifact, nil when it is not in scope.
func (i *Index) Get(id reactor.ArtifactID) *Manifest {
	return i.byID[id]
}

// Scope returns the closed set of artifacts this index covers.
func (i *Index) Scope() reactor.Scope {
	scope := make(reactor.Scope, len(i.byID))
	for id := range i.byID {
		scope[id] = struct{}{}
	}
	return scope
}

// Len returns the number of manifests in the index.
func (i *Index) Len() int {
	return len(i.byID)
}

// SaveDirty flushes every mutated manifest and returns the paths written.
func (i *Index) SaveDirty(backup bool) ([]string, error) {
	var written []string
	for _, id := range i.Scope().Sorted() {
		m := i.byID[id]
		if !m.Dirty() {
			continue
		}
		if err := m.Save(backup); err != nil {
			return written, err
		}
		written = append(written, m.Path)
	}
	return written, nil
}
