package intent

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bumpcast/internal/reactor"
	"bumpcast/internal/semver"
)

var (
	// ErrMissingFrontMatter indicates the record did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("intent: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("intent: malformed frontmatter")
)

// Record is one author-supplied intent file: a set of severity assertions
// plus a free-text description shared by all artifacts it mentions.
type Record struct {
	Path  string
	Bumps map[reactor.ArtifactID]semver.Bump
	Body  string
}

// ParseRecord extracts the severity map and body from a record that starts
// with `---` YAML fences mapping "group:name" to a severity name.
func ParseRecord(path string, content []byte) (*Record, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return nil, ErrMalformedFrontMatter
	}

	var raw map[string]string
	if err := yaml.Unmarshal(parts[0], &raw); err != nil {
		return nil, fmt.Errorf("intent: parse frontmatter of %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s declares no artifacts", ErrMalformedFrontMatter, path)
	}

	bumps := make(map[reactor.ArtifactID]semver.Bump, len(raw))
	for key, value := range raw {
		id, err := reactor.ParseArtifactID(key)
		if err != nil {
			return nil, fmt.Errorf("intent: %s: %w", path, err)
		}
		bump, err := semver.ParseBump(value)
		if err != nil {
			return nil, fmt.Errorf("intent: %s: %w", path, err)
		}
		bumps[id] = bump
	}

	return &Record{
		Path:  path,
		Bumps: bumps,
		Body:  strings.TrimSpace(string(parts[1])),
	}, nil
}

// LoadDir reads every .md record under dir in sorted filename order.
// A missing directory is an empty intent set, not an error.
func LoadDir(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("intent: read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("intent: read %s: %w", path, err)
		}
		rec, err := ParseRecord(path, content)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
