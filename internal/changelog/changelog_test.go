package changelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bumpcast/internal/intent"
	"bumpcast/internal/semver"
)

const existing = `# Changelog

All notable changes to this module are documented here.

## 1.0.0 - 2025-12-01

### Patch changes

Fixed the flaky startup check.
`

func newTestMerger() *Merger {
	m := NewMerger(DefaultOptions())
	m.SetClock(func() time.Time {
		return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	})
	return m
}

func note(severity semver.Bump, body string) intent.ChangeNote {
	return intent.ChangeNote{Severity: severity, Body: body}
}

func TestMerge_SectionOrderIsFixed(t *testing.T) {
	doc := ParseDocument([]byte(existing), "Changelog")
	m := newTestMerger()

	// Input order deliberately scrambled; output order is always
	// major, minor, patch, other.
	m.Merge(doc, "2.0.0", []intent.ChangeNote{
		note(semver.Patch, "Patched the cache."),
		note(semver.Major, "Dropped the v1 endpoints."),
		note(semver.Minor, "Added retry support."),
	}, false)

	out := doc.Render()
	majorAt := strings.Index(out, "### Major changes")
	minorAt := strings.Index(out, "### Minor changes")
	patchAt := strings.Index(out, "### Patch changes")
	require.Positive(t, majorAt)
	assert.Less(t, majorAt, minorAt)
	assert.Less(t, minorAt, patchAt)
	assert.NotContains(t, out, "### Other changes")
}

func TestMerge_NewSectionPrecedesExisting(t *testing.T) {
	doc := ParseDocument([]byte(existing), "Changelog")
	m := newTestMerger()
	m.Merge(doc, "1.1.0", []intent.ChangeNote{note(semver.Minor, "Added a thing.")}, false)

	out := doc.Render()
	newAt := strings.Index(out, "## 1.1.0 - 2026-08-25")
	oldAt := strings.Index(out, "## 1.0.0 - 2025-12-01")
	require.Positive(t, newAt)
	assert.Less(t, newAt, oldAt)

	// The intro prose and the pre-existing section survive untouched.
	assert.Contains(t, out, "All notable changes to this module are documented here.")
	assert.Contains(t, out, "Fixed the flaky startup check.")
	assert.Equal(t, 2, doc.SectionCount())
}

func TestMerge_CascadedSynthesizedNote(t *testing.T) {
	doc := ParseDocument([]byte(existing), "Changelog")
	m := newTestMerger()
	m.Merge(doc, "1.0.1", nil, true)

	out := doc.Render()
	assert.Contains(t, out, "## 1.0.1 - 2026-08-25")
	assert.Contains(t, out, "### Other changes")
	assert.Contains(t, out, "Dependency version update.")
	assert.NotContains(t, out, "### Major changes")
}

func TestMerge_NoteWithoutProperSeverityGoesToOther(t *testing.T) {
	doc := ParseDocument(nil, "Changelog")
	m := newTestMerger()
	m.Merge(doc, "1.0.1", []intent.ChangeNote{note(semver.None, "Housekeeping.")}, false)

	out := doc.Render()
	assert.Contains(t, out, "### Other changes")
	assert.Contains(t, out, "Housekeeping.")
}

func TestMerge_SameArtifactNotesInDifferentBuckets(t *testing.T) {
	// Two records bumped the same artifact at different severities; each
	// note lands under its own declared severity.
	doc := ParseDocument(nil, "Changelog")
	m := newTestMerger()
	m.Merge(doc, "2.0.0", []intent.ChangeNote{
		note(semver.Patch, "Fixed a leak."),
		note(semver.Major, "Removed the v1 API."),
	}, false)

	out := doc.Render()
	majorAt := strings.Index(out, "### Major changes")
	patchAt := strings.Index(out, "### Patch changes")
	leakAt := strings.Index(out, "Fixed a leak.")
	removedAt := strings.Index(out, "Removed the v1 API.")
	assert.Less(t, majorAt, removedAt)
	assert.Less(t, removedAt, patchAt)
	assert.Less(t, patchAt, leakAt)
}

func TestParseDocument_BootstrapsEmptyFile(t *testing.T) {
	doc := ParseDocument(nil, "Changelog")
	assert.Zero(t, doc.SectionCount())
	assert.Equal(t, "# Changelog\n", doc.Render())
}

func TestMergeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CHANGELOG.md")
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	m := newTestMerger()
	require.NoError(t, m.MergeFile(path, "1.1.0", []intent.ChangeNote{note(semver.Minor, "Added a thing.")}, false))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), "## 1.1.0 - 2026-08-25")
	assert.Contains(t, string(out), "## 1.0.0 - 2025-12-01")
}

func TestMergeFile_CreatesMissingChangelog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")

	m := newTestMerger()
	require.NoError(t, m.MergeFile(path, "1.0.1", nil, true))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# Changelog\n"))
	assert.Contains(t, string(out), "Dependency version update.")
}

func TestMerge_HeaderTemplate(t *testing.T) {
	opts := DefaultOptions()
	opts.HeaderTemplate = "v{version} ({date})"
	opts.DateLayout = "02.01.2006"
	m := NewMerger(opts)
	m.SetClock(func() time.Time {
		return time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	})

	doc := ParseDocument(nil, "Changelog")
	m.Merge(doc, "1.2.0", []intent.ChangeNote{note(semver.Minor, "x")}, false)
	assert.Contains(t, doc.Render(), "## v1.2.0 (25.08.2026)")
}
