package intent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bumpcast/internal/reactor"
	"bumpcast/internal/semver"
)

var (
	coreID = reactor.ArtifactID{Group: "com.acme", Name: "core"}
	utilID = reactor.ArtifactID{Group: "com.acme", Name: "util"}
)

func TestParseRecord(t *testing.T) {
	content := []byte(`---
"com.acme:core": minor
"com.acme:util": patch
---
Added streaming support to the core API.
`)

	rec, err := ParseRecord("a.md", content)
	require.NoError(t, err)
	assert.Equal(t, semver.Minor, rec.Bumps[coreID])
	assert.Equal(t, semver.Patch, rec.Bumps[utilID])
	assert.Equal(t, "Added streaming support to the core API.", rec.Body)
}

func TestParseRecord_Invalid(t *testing.T) {
	t.Run("missing frontmatter", func(t *testing.T) {
		_, err := ParseRecord("a.md", []byte("just text"))
		assert.ErrorIs(t, err, ErrMissingFrontMatter)
	})

	t.Run("unterminated fence", func(t *testing.T) {
		_, err := ParseRecord("a.md", []byte("---\n\"com.acme:core\": minor\n"))
		assert.ErrorIs(t, err, ErrMalformedFrontMatter)
	})

	t.Run("no artifacts", func(t *testing.T) {
		_, err := ParseRecord("a.md", []byte("---\n\n---\nbody\n"))
		assert.ErrorIs(t, err, ErrMalformedFrontMatter)
	})

	t.Run("bad severity", func(t *testing.T) {
		_, err := ParseRecord("a.md", []byte("---\n\"com.acme:core\": huge\n---\nbody\n"))
		assert.Error(t, err)
	})

	t.Run("bad artifact id", func(t *testing.T) {
		_, err := ParseRecord("a.md", []byte("---\ncore: minor\n---\nbody\n"))
		assert.Error(t, err)
	})
}

func TestStore_MaxReduction(t *testing.T) {
	// Two records bumping the same artifact do not conflict: the stronger
	// severity wins, and both notes survive under their own severity.
	recA, err := ParseRecord("a.md", []byte("---\n\"com.acme:core\": patch\n---\nFixed a leak.\n"))
	require.NoError(t, err)
	recB, err := ParseRecord("b.md", []byte("---\n\"com.acme:core\": major\n---\nRemoved the v1 API.\n"))
	require.NoError(t, err)

	store := NewStore([]*Record{recA, recB})
	assert.Equal(t, semver.Major, store.BumpFor(coreID))

	notes := store.NotesFor(coreID)
	require.Len(t, notes, 2)
	assert.Equal(t, semver.Patch, notes[0].Severity)
	assert.Equal(t, "Fixed a leak.", notes[0].Body)
	assert.Equal(t, semver.Major, notes[1].Severity)
	assert.Equal(t, "Removed the v1 API.", notes[1].Body)
}

func TestStore_PerArtifactSeverityInSameRecord(t *testing.T) {
	rec, err := ParseRecord("a.md", []byte("---\n\"com.acme:core\": major\n\"com.acme:util\": patch\n---\nSplit the util package out of core.\n"))
	require.NoError(t, err)

	store := NewStore([]*Record{rec})
	assert.Equal(t, semver.Major, store.NotesFor(coreID)[0].Severity)
	assert.Equal(t, semver.Patch, store.NotesFor(utilID)[0].Severity)
}

func TestStore_BumpForDefaultsToNone(t *testing.T) {
	store := NewStore(nil)
	assert.True(t, store.Empty())
	assert.Equal(t, semver.None, store.BumpFor(coreID))
	assert.Empty(t, store.NotesFor(coreID))
}

func TestStore_Validate(t *testing.T) {
	rec, err := ParseRecord("stale.md", []byte("---\n\"com.acme:renamed\": minor\n---\nbody\n"))
	require.NoError(t, err)
	store := NewStore([]*Record{rec})

	scope := reactor.NewScope(coreID, utilID)
	err = store.Validate(scope)
	require.Error(t, err)

	var unknown *UnknownArtifactError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "com.acme:renamed", unknown.Artifact.String())
	assert.Equal(t, "stale.md", unknown.Path)

	// In-scope records validate cleanly.
	ok, err2 := ParseRecord("ok.md", []byte("---\n\"com.acme:core\": minor\n---\nbody\n"))
	require.NoError(t, err2)
	assert.NoError(t, NewStore([]*Record{ok}).Validate(scope))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\n\"com.acme:util\": patch\n---\nsecond\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\n\"com.acme:core\": minor\n---\nfirst\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	records, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Sorted filename order keeps record folding deterministic.
	assert.Equal(t, "first", records[0].Body)
	assert.Equal(t, "second", records[1].Body)
}

func TestLoadDir_Missing(t *testing.T) {
	records, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, records)
}
