package local

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase"
)

// ctxCheckEvery bounds how many lines are scanned between context checks
const ctxCheckEvery = 4096

// Searcher greps snapshots produced by Packer
type Searcher struct {
	store cache.Cache
}

// NewSearcher creates a searcher reading snapshots from store
func NewSearcher(store cache.Cache) *Searcher {
	return &Searcher{store: store}
}

// Grep returns every line of the snapshot matching pattern, with up to
// contextLines lines of the same file on each side. A match on a file path
// is reported with line 0.
func (s *Searcher) Grep(ctx context.Context, id codebase.SnapshotID, pattern string, contextLines int) ([]codebase.Match, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	blob, ok := s.store.Get(cache.SnapshotKey(string(id)))
	if !ok {
		return nil, fmt.Errorf("%w: %s", codebase.ErrSnapshotNotFound, id)
	}
	data, err := decode(blob)
	if err != nil {
		return nil, err
	}

	var matches []codebase.Match
	scanned := 0
	for _, f := range parseSnapshot(data) {
		if m := re.FindString(f.Path); m != "" {
			matches = append(matches, codebase.Match{
				File:        f.Path,
				Line:        0,
				MatchedText: m,
				LineText:    f.Path,
			})
		}

		for i, line := range f.Lines {
			scanned++
			if scanned%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			m := re.FindString(line)
			if m == "" {
				continue
			}
			matches = append(matches, codebase.Match{
				File:        f.Path,
				Line:        i + 1,
				MatchedText: m,
				LineText:    line,
				Context:     window(f.Lines, i, contextLines),
			})
		}
	}

	return matches, ctx.Err()
}

// window returns lines[i-n : i+n+1] clamped to the slice
func window(lines []string, i, n int) []string {
	if n <= 0 {
		return nil
	}
	lo, hi := i-n, i+n+1
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	out := make([]string, hi-lo)
	copy(out, lines[lo:hi])
	return out
}
