// Package local implements the codebase capabilities against the local
// filesystem: a packer producing repomix-style snapshots, a regexp searcher
// over those snapshots, and a project index backed by the symbols package.
package local

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// binarySniffLen is how much of a file is checked for NUL bytes
const binarySniffLen = 8000

// fileFilter decides which relative paths take part in a walk
type fileFilter struct {
	include      []string
	exclude      []string
	maxFileBytes int64
}

func newFileFilter(include, exclude []string, maxFileBytes int64) fileFilter {
	if len(include) == 0 {
		include = []string{"**/*"}
	}
	return fileFilter{include: include, exclude: exclude, maxFileBytes: maxFileBytes}
}

// selected reports whether a slash-separated relative file path is packed
func (f fileFilter) selected(rel string) bool {
	if matchAny(f.exclude, rel) {
		return false
	}
	return matchAny(f.include, rel)
}

// skipDir reports whether nothing below a directory can be selected
func (f fileFilter) skipDir(rel string) bool {
	return matchAny(f.exclude, rel) || matchAny(f.exclude, path.Join(rel, "_"))
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// walkFiles visits every selected, non-binary regular file under root in
// lexical order. Unreadable entries are skipped.
func walkFiles(ctx context.Context, root string, filter fileFilter, fn func(rel string, content []byte) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if filter.skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !filter.selected(rel) {
			return nil
		}

		if filter.maxFileBytes > 0 {
			info, err := d.Info()
			if err != nil || info.Size() > filter.maxFileBytes {
				return nil
			}
		}

		content, err := os.ReadFile(p)
		if err != nil || isBinary(content) {
			return nil
		}
		return fn(rel, content)
	})
}

func isBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}
