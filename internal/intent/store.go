package intent

import (
	"fmt"

	"bumpcast/internal/reactor"
	"bumpcast/internal/semver"
)

// ChangeNote is one record's prose attributed to one artifact, tagged with
// the severity that record declared for that artifact. The same record may
// contribute notes of different severities to different artifacts.
type ChangeNote struct {
	Artifact reactor.ArtifactID
	Severity semver.Bump
	Body     string
}

// UnknownArtifactError reports an intent record that names an artifact
// outside the current reactor scope. It aborts the run before any mutation.
type UnknownArtifactError struct {
	Artifact reactor.ArtifactID
	Path     string
}

func (e *UnknownArtifactError) Error() string {
	return fmt.Sprintf("intent record %s names unknown artifact %s", e.Path, e.Artifact)
}

// Store aggregates intent records into the shape the engine consumes:
// the strongest declared bump per artifact and every note mentioning it.
type Store struct {
	records []*Record
	bumps   map[reactor.ArtifactID]semver.Bump
	notes   map[reactor.ArtifactID][]ChangeNote
}

// NewStore folds records in input order. Two records bumping the same
// artifact do not conflict: the stronger severity wins, both notes survive.
func NewStore(records []*Record) *Store {
	s := &Store{
		records: records,
		bumps:   make(map[reactor.ArtifactID]semver.Bump),
		notes:   make(map[reactor.ArtifactID][]ChangeNote),
	}
	for _, rec := range records {
		for id, bump := range rec.Bumps {
			s.bumps[id] = semver.Max(s.bumps[id], bump)
			s.notes[id] = append(s.notes[id], ChangeNote{
				Artifact: id,
				Severity: bump,
				Body:     rec.Body,
			})
		}
	}
	return s
}

// Validate fails fast when any record targets an artifact outside scope,
// guarding against stale intent files surviving a module rename.
func (s *Store) Validate(scope reactor.Scope) error {
	for _, rec := range s.records {
		for id := range rec.Bumps {
			if !scope.Contains(id) {
				return &UnknownArtifactError{Artifact: id, Path: rec.Path}
			}
		}
	}
	return nil
}

// BumpFor returns the folded severity for an artifact, None when no record
// mentions it.
func (s *Store) BumpFor(id reactor.ArtifactID) semver.Bump {
	return s.bumps[id]
}

// NotesFor returns the notes mentioning an artifact in record input order.
func (s *Store) NotesFor(id reactor.ArtifactID) []ChangeNote {
	return s.notes[id]
}

// Records returns the underlying records, e.g. so apply can delete the
// consumed files after a successful run.
func (s *Store) Records() []*Record {
	return s.records
}

// Empty reports whether no record declared any bump.
func (s *Store) Empty() bool {
	return len(s.bumps) == 0
}
