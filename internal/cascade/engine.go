package cascade

import (
	"errors"
	"fmt"

	"bumpcast/internal/graph"
	"bumpcast/internal/intent"
	"bumpcast/internal/manifest"
	"bumpcast/internal/reactor"
	"bumpcast/internal/semver"
)

// Origin distinguishes why an artifact received its final bump.
type Origin int

const (
	// Explicit bumps come from intent records.
	Explicit Origin = iota
	// Cascaded bumps are synthesized because a dependency's version
	// changed; they are always patch-level.
	Cascaded
)

func (o Origin) String() string {
	if o == Cascaded {
		return "cascaded"
	}
	return "explicit"
}

// ErrAborted marks a run stopped by the abort-on-malformed policy.
// Mutations applied before the abort are reported in the Result; nothing
// has been flushed to disk yet when it is returned.
var ErrAborted = errors.New("cascade: run aborted")

// ArtifactError ties a failure to the artifact it concerns so callers can
// report "N of M artifacts failed" instead of one opaque error.
type ArtifactError struct {
	Artifact reactor.ArtifactID
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// Policy decides what a malformed version string mid-run does.
type Policy int

const (
	// AbortOnMalformed stops the run at the first malformed version.
	AbortOnMalformed Policy = iota
	// SkipOnMalformed records the failure against that artifact, does not
	// cascade from it, and keeps going.
	SkipOnMalformed
)

// VersionChange records one finalized artifact update.
type VersionChange struct {
	Before string
	After  string
	Origin Origin
}

// RefMismatch records a reference cell left untouched because its current
// text did not equal the dependency's pre-update version. Defensive no-op,
// not an error condition.
type RefMismatch struct {
	Owner  reactor.ArtifactID
	Target reactor.ArtifactID
	Found  string
	Want   string
}

// Result is the full per-artifact outcome of one run. Partial success is a
// supported outcome: some artifacts updated, some failed, the rest skipped.
type Result struct {
	Changes    map[reactor.ArtifactID]VersionChange
	Failed     map[reactor.ArtifactID]error
	Skipped    []reactor.ArtifactID
	Mismatches []RefMismatch
}

// Engine runs the bump cascade over one reactor. It owns the manifest
// index exclusively for the duration of Run and mutates it in place.
type Engine struct {
	intents *intent.Store
	graph   *graph.Graph
	index   *manifest.Index
	policy  Policy
	logf    func(format string, args ...any)
}

func New(intents *intent.Store, g *graph.Graph, idx *manifest.Index, policy Policy) *Engine {
	return &Engine{
		intents: intents,
		graph:   g,
		index:   idx,
		policy:  policy,
		logf:    func(string, ...any) {},
	}
}

// SetLogf installs a logger for non-fatal events such as reference
// mismatches.
func (e *Engine) SetLogf(logf func(format string, args ...any)) {
	if logf != nil {
		e.logf = logf
	}
}

// Run validates intents against the scope, then seeds explicit bumps and
// drains the cascade queue. Validation failure aborts before any mutation.
func (e *Engine) Run() (*Result, error) {
	scope := e.index.Scope()
	if err := e.intents.Validate(scope); err != nil {
		return nil, err
	}

	res := &Result{
		Changes: make(map[reactor.ArtifactID]VersionChange),
		Failed:  make(map[reactor.ArtifactID]error),
	}
	updated := make(map[reactor.ArtifactID]struct{})
	var queue []reactor.ArtifactID

	// Seed pass: every in-scope artifact contributes once. No explicit
	// bump (or explicit none) means no seed, but the artifact stays
	// eligible for cascading.
	for _, id := range scope.Sorted() {
		severity := e.intents.BumpFor(id)
		if severity == semver.None {
			continue
		}
		if err := e.finalize(id, severity, Explicit, res, updated, &queue); err != nil {
			return res, err
		}
	}

	// Cascade loop. An artifact can enter the queue many times (cycles
	// included) but is finalized at most once; updated only grows, so the
	// loop terminates after at most one step per artifact.
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, done := updated[id]; done {
			continue
		}
		if _, failed := res.Failed[id]; failed {
			continue
		}
		if err := e.finalize(id, semver.Patch, Cascaded, res, updated, &queue); err != nil {
			return res, err
		}
	}

	for _, id := range scope.Sorted() {
		if _, ok := updated[id]; ok {
			continue
		}
		if _, ok := res.Failed[id]; ok {
			continue
		}
		res.Skipped = append(res.Skipped, id)
	}
	return res, nil
}

// finalize applies the bump to one artifact: version cell, result entry,
// conditional rewrite of every reference pointing at it, and enqueueing of
// its dependents. Write-once: callers guarantee the artifact is not yet in
// updated.
func (e *Engine) finalize(id reactor.ArtifactID, severity semver.Bump, origin Origin, res *Result, updated map[reactor.ArtifactID]struct{}, queue *[]reactor.ArtifactID) error {
	m := e.index.Get(id)
	before := m.Version()
	after, err := semver.Increment(before, severity)
	if err != nil {
		artErr := &ArtifactError{Artifact: id, Err: err}
		res.Failed[id] = artErr
		if e.policy == AbortOnMalformed {
			return fmt.Errorf("%w: %w", ErrAborted, artErr)
		}
		e.logf("skipping %s: %v", id, err)
		return nil
	}

	m.SetVersion(after)
	updated[id] = struct{}{}
	res.Changes[id] = VersionChange{Before: before, After: after, Origin: origin}

	// Rewrite references pointing at this artifact, but only when the
	// cell still holds the pre-update version. Anything else was pinned
	// to an unrelated version on purpose and is left alone.
	for _, ref := range e.graph.RefsTo(id) {
		if ref.Version() != before {
			mismatch := RefMismatch{
				Owner:  ref.Owner().ID,
				Target: id,
				Found:  ref.Version(),
				Want:   before,
			}
			res.Mismatches = append(res.Mismatches, mismatch)
			e.logf("reference %s -> %s holds %q, expected %q; left unchanged",
				mismatch.Owner, id, mismatch.Found, mismatch.Want)
			continue
		}
		ref.SetVersion(after)
	}

	for _, dep := range e.graph.Dependents(id) {
		if _, done := updated[dep]; done {
			continue
		}
		*queue = append(*queue, dep)
	}
	return nil
}
