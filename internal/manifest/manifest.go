package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"

	"bumpcast/internal/reactor"
)

// Manifest is the in-memory handle for one module's pom.xml. It owns the
// parsed document for the duration of a run; all mutation happens in place
// through the version cell and the reference cells.
type Manifest struct {
	Path string
	ID   reactor.ArtifactID
	Refs []*Ref

	doc       *etree.Document
	raw       []byte
	versionEl *etree.Element
	dirty     bool
}

// Ref is one dependency declaration inside a manifest that records another
// artifact's version. Declarations without a literal version (inherited or
// property-managed) produce no Ref.
type Ref struct {
	Target reactor.ArtifactID

	owner     *Manifest
	versionEl *etree.Element
}

func (r *Ref) Version() string {
	return strings.TrimSpace(r.versionEl.Text())
}

func (r *Ref) SetVersion(v string) {
	r.versionEl.SetText(v)
	r.owner.dirty = true
}

// Owner returns the manifest the reference lives in.
func (r *Ref) Owner() *Manifest {
	return r.owner
}

// Parse builds a Manifest from raw pom.xml bytes. The original bytes are
// retained so Save can drop a backup before overwriting.
func Parse(path string, data []byte) (*Manifest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	project := doc.Root()
	if project == nil || project.Tag != "project" {
		return nil, fmt.Errorf("manifest: %s: missing <project> root", path)
	}

	id, err := coordinates(project)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}

	versionEl := project.SelectElement("version")
	if versionEl == nil {
		return nil, fmt.Errorf("manifest: %s: artifact %s declares no <version>", path, id)
	}

	m := &Manifest{
		Path:      path,
		ID:        id,
		doc:       doc,
		raw:       data,
		versionEl: versionEl,
	}
	m.collectRefs(project)
	return m, nil
}

// coordinates reads groupId/artifactId, with groupId falling back to the
// parent block the way Maven resolves it.
func coordinates(project *etree.Element) (reactor.ArtifactID, error) {
	group := childText(project, "groupId")
	if group == "" {
		if parent := project.SelectElement("parent"); parent != nil {
			group = childText(parent, "groupId")
		}
	}
	name := childText(project, "artifactId")
	id := reactor.ArtifactID{Group: group, Name: name}
	if id.IsZero() {
		return reactor.ArtifactID{}, fmt.Errorf("missing groupId/artifactId coordinates")
	}
	return id, nil
}

func (m *Manifest) collectRefs(project *etree.Element) {
	deps := project.SelectElement("dependencies")
	if deps == nil {
		return
	}
	for _, dep := range deps.SelectElements("dependency") {
		target := reactor.ArtifactID{
			Group: childText(dep, "groupId"),
			Name:  childText(dep, "artifactId"),
		}
		versionEl := dep.SelectElement("version")
		if target.IsZero() || versionEl == nil {
			continue
		}
		// Property placeholders are managed elsewhere; only literal
		// versions are rewritable reference cells.
		if strings.Contains(versionEl.Text(), "${") {
			continue
		}
		m.Refs = append(m.Refs, &Ref{Target: target, owner: m, versionEl: versionEl})
	}
}

func childText(el *etree.Element, tag string) string {
	if child := el.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

// Version returns the artifact's currently declared version.
func (m *Manifest) Version() string {
	return strings.TrimSpace(m.versionEl.Text())
}

// SetVersion rewrites the version cell in place.
func (m *Manifest) SetVersion(v string) {
	m.versionEl.SetText(v)
	m.dirty = true
}

// Dirty reports whether any cell was mutated since Parse.
func (m *Manifest) Dirty() bool {
	return m.dirty
}

// Bytes serializes the document, preserving untouched content verbatim.
func (m *Manifest) Bytes() ([]byte, error) {
	return m.doc.WriteToBytes()
}

// Save writes the mutated document back to disk. When backup is set the
// original bytes are kept next to the manifest first. Saving a clean
// manifest is a no-op.
func (m *Manifest) Save(backup bool) error {
	if !m.dirty {
		return nil
	}
	if backup {
		if err := os.WriteFile(m.Path+".bak", m.raw, 0644); err != nil {
			return fmt.Errorf("manifest: backup %s: %w", m.Path, err)
		}
	}
	out, err := m.Bytes()
	if err != nil {
		return fmt.Errorf("manifest: serialize %s: %w", m.Path, err)
	}
	if err := os.WriteFile(m.Path, out, 0644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", m.Path, err)
	}
	return nil
}
