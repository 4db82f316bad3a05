// Package changeset decides which corpus documents a sync pass processes:
// the whole corpus, or the delta since the last recorded sync.
package changeset

import (
	"fmt"
	"sort"

	"github.com/starford/raido/internal/state"
	"github.com/starford/raido/internal/storage"
)

// Mode selects the resolution strategy.
type Mode int

const (
	// All enumerates every document in the corpus.
	All Mode = iota
	// Delta enumerates only documents changed since the last sync.
	Delta
)

func (m Mode) String() string {
	if m == Delta {
		return "delta"
	}
	return "all"
}

// Options carries the delta-mode inputs.
type Options struct {
	// Explicit is an externally supplied locator list (e.g. from CI).
	// When non-empty it overrides every other delta source.
	Explicit []string
}

// Set is the result of one resolution.
type Set struct {
	// Locators are the documents to reconcile, in lexicographic order.
	Locators []string
	// Removed are paths present in the sync state but gone from the
	// corpus; the runner drops their state rows. Remote records are
	// never deleted.
	Removed []string
}

// ResolutionError reports that the corpus itself could not be enumerated.
// An empty change set is a valid result, not an error.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("changeset: corpus enumeration failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver computes change sets from the corpus and the sync state.
type Resolver struct {
	corpus storage.Provider
	states state.Store
}

// New creates a Resolver over the given corpus and state store.
func New(corpus storage.Provider, states state.Store) *Resolver {
	return &Resolver{corpus: corpus, states: states}
}

// Resolve produces the set of locators to sync.
//
// In Delta mode the sources are tried in priority order: the explicit
// list, then a checksum diff against the recorded state. A fresh state
// database (no prior sync) falls back to All so no document is silently
// missed on a first run.
func (r *Resolver) Resolve(mode Mode, opts Options) (*Set, error) {
	// An explicit list needs no corpus enumeration; unreadable entries
	// surface per document when they are processed.
	if mode == Delta && len(opts.Explicit) > 0 {
		locs := append([]string(nil), opts.Explicit...)
		sort.Strings(locs)
		return &Set{Locators: locs}, nil
	}

	infos, err := r.corpus.List()
	if err != nil {
		return nil, &ResolutionError{Err: err}
	}

	recorded, err := r.states.Checksums()
	if err != nil {
		return nil, fmt.Errorf("changeset: read sync state: %w", err)
	}

	if mode == All || len(recorded) == 0 {
		return &Set{Locators: allPaths(infos), Removed: removed(infos, recorded)}, nil
	}

	var locs []string
	disk := make(map[string]struct{}, len(infos))
	for _, in := range infos {
		disk[in.Path] = struct{}{}
		if recorded[in.Path] != in.Checksum {
			locs = append(locs, in.Path)
		}
	}
	// infos is already lexicographically ordered, locs inherits that.
	return &Set{Locators: locs, Removed: removed(infos, recorded)}, nil
}

func allPaths(infos []storage.DocumentInfo) []string {
	out := make([]string, len(infos))
	for i, in := range infos {
		out[i] = in.Path
	}
	return out
}

func removed(infos []storage.DocumentInfo, recorded map[string]string) []string {
	disk := make(map[string]struct{}, len(infos))
	for _, in := range infos {
		disk[in.Path] = struct{}{}
	}
	var out []string
	for p := range recorded {
		if _, ok := disk[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
