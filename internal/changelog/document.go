package changelog

import (
	"strings"
)

// Document is a light structural view of a changelog: a title block (title
// line plus any intro prose) and the top-level version sections, each kept
// as raw text. Untouched parts are re-emitted verbatim on Render, so
// merging never reflows or renumbers existing entries.
type Document struct {
	titleBlock string
	sections   []string
}

// ParseDocument splits content into the title block and its `## ` sections.
// A file without a title gets the default one so a fresh changelog can be
// bootstrapped from an empty file.
func ParseDocument(content []byte, defaultTitle string) *Document {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	lines := strings.SplitAfter(text, "\n")

	d := &Document{}
	title := &strings.Builder{}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			d.sections = append(d.sections, line)
			continue
		}
		if len(d.sections) > 0 {
			d.sections[len(d.sections)-1] += line
		} else {
			title.WriteString(line)
		}
	}

	d.titleBlock = title.String()
	if strings.TrimSpace(d.titleBlock) == "" {
		d.titleBlock = "# " + defaultTitle + "\n"
	}
	return d
}

// PrependSection inserts a new top-level section directly under the title
// block, ahead of every pre-existing section.
func (d *Document) PrependSection(section string) {
	d.sections = append([]string{section}, d.sections...)
}

// SectionCount returns the number of top-level version sections.
func (d *Document) SectionCount() int {
	return len(d.sections)
}

// Render reassembles the document, normalizing only the seams between
// blocks to a single blank line.
func (d *Document) Render() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(d.titleBlock, "\n"))
	sb.WriteString("\n")
	for _, section := range d.sections {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(section, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}
