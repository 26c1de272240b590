package changelog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bumpcast/internal/intent"
	"bumpcast/internal/semver"
)

// Labels are the configured section headings for each severity bucket.
type Labels struct {
	Major string
	Minor string
	Patch string
	Other string
}

// Options control how a merged version section is rendered.
type Options struct {
	// Title is the document title used when bootstrapping a changelog.
	Title string
	// HeaderTemplate renders the section heading; {version} and {date}
	// placeholders are substituted.
	HeaderTemplate string
	// DateLayout formats {date}.
	DateLayout string
	Labels     Labels
	// CascadeNote is the synthesized body for dependency-triggered bumps,
	// which carry no author text.
	CascadeNote string
}

// DefaultOptions mirror the common keep-a-changelog layout.
func DefaultOptions() Options {
	return Options{
		Title:          "Changelog",
		HeaderTemplate: "{version} - {date}",
		DateLayout:     "2006-01-02",
		Labels: Labels{
			Major: "Major changes",
			Minor: "Minor changes",
			Patch: "Patch changes",
			Other: "Other changes",
		},
		CascadeNote: "Dependency version update.",
	}
}

// Merger inserts version sections into changelog documents.
type Merger struct {
	opts Options
	now  func() time.Time
}

func NewMerger(opts Options) *Merger {
	return &Merger{opts: opts, now: time.Now}
}

// SetClock overrides the date source, for tests.
func (m *Merger) SetClock(now func() time.Time) {
	m.now = now
}

// Merge builds the section for one finalized artifact and prepends it.
// Buckets render in fixed order major, minor, patch, other; empty buckets
// are omitted. Cascaded updates contribute the synthesized note to the
// other bucket, as does any note without a proper severity.
func (m *Merger) Merge(doc *Document, newVersion string, notes []intent.ChangeNote, cascaded bool) {
	doc.PrependSection(m.buildSection(newVersion, notes, cascaded))
}

func (m *Merger) buildSection(newVersion string, notes []intent.ChangeNote, cascaded bool) string {
	buckets := make(map[semver.Bump][]string)
	for _, note := range notes {
		body := strings.TrimSpace(note.Body)
		if body == "" {
			continue
		}
		switch note.Severity {
		case semver.Major, semver.Minor, semver.Patch:
			buckets[note.Severity] = append(buckets[note.Severity], body)
		default:
			buckets[semver.None] = append(buckets[semver.None], body)
		}
	}
	if cascaded {
		buckets[semver.None] = append(buckets[semver.None], m.opts.CascadeNote)
	}

	header := strings.NewReplacer(
		"{version}", newVersion,
		"{date}", m.now().Format(m.opts.DateLayout),
	).Replace(m.opts.HeaderTemplate)

	var sb strings.Builder
	sb.WriteString("## " + header + "\n")

	order := []struct {
		severity semver.Bump
		label    string
	}{
		{semver.Major, m.opts.Labels.Major},
		{semver.Minor, m.opts.Labels.Minor},
		{semver.Patch, m.opts.Labels.Patch},
		{semver.None, m.opts.Labels.Other},
	}
	for _, bucket := range order {
		bodies := buckets[bucket.severity]
		if len(bodies) == 0 {
			continue
		}
		sb.WriteString("\n### " + bucket.label + "\n")
		for _, body := range bodies {
			sb.WriteString("\n" + body + "\n")
		}
	}
	return sb.String()
}

// MergeFile applies Merge to the changelog on disk, bootstrapping the file
// when it does not exist yet.
func (m *Merger) MergeFile(path, newVersion string, notes []intent.ChangeNote, cascaded bool) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("changelog: read %s: %w", path, err)
	}

	doc := ParseDocument(content, m.opts.Title)
	m.Merge(doc, newVersion, notes, cascaded)

	if err := os.WriteFile(path, []byte(doc.Render()), 0644); err != nil {
		return fmt.Errorf("changelog: write %s: %w", path, err)
	}
	return nil
}
