package local

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase"
)

// Packer packs a directory into a snapshot held in a cache
type Packer struct {
	store        cache.Cache
	maxFileBytes int64
}

// NewPacker creates a packer storing snapshots in store
func NewPacker(store cache.Cache, maxFileBytes int64) *Packer {
	return &Packer{store: store, maxFileBytes: maxFileBytes}
}

// Pack walks root and stores the rendered snapshot under a fresh id
func (p *Packer) Pack(ctx context.Context, root string, opts codebase.PackOptions) (*codebase.PackResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pack %s: not a directory", root)
	}

	var (
		files []snapshotFile
		stats []codebase.FileStat
		total int
	)
	filter := newFileFilter(opts.Include, opts.Exclude, p.maxFileBytes)
	err = walkFiles(ctx, root, filter, func(rel string, content []byte) error {
		files = append(files, snapshotFile{Path: rel, Lines: splitFileLines(content)})
		stats = append(stats, codebase.FileStat{Path: rel, Bytes: len(content)})
		total += len(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", root, err)
	}

	blob := renderSnapshot(files)
	if opts.Compress {
		if blob, err = compress(blob); err != nil {
			return nil, fmt.Errorf("pack %s: %w", root, err)
		}
	}

	id := codebase.SnapshotID(uuid.NewString())
	if err := p.store.Set(cache.SnapshotKey(string(id)), blob, cache.NoExpiration); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	return &codebase.PackResult{
		ID:         id,
		Root:       root,
		TotalFiles: len(files),
		TotalBytes: total,
		TopFiles:   topFiles(stats, opts.TopFilesLength),
	}, nil
}

// Release drops a snapshot from the store
func (p *Packer) Release(id codebase.SnapshotID) {
	_ = p.store.Delete(cache.SnapshotKey(string(id)))
}

// topFiles returns the n largest files, ties broken by path
func topFiles(stats []codebase.FileStat, n int) []codebase.FileStat {
	if n <= 0 {
		return nil
	}
	sorted := make([]codebase.FileStat, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Bytes != sorted[j].Bytes {
			return sorted[i].Bytes > sorted[j].Bytes
		}
		return sorted[i].Path < sorted[j].Path
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
