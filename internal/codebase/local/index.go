package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/todolens/internal/codebase"
)

// SymbolExtractor parses definitions out of one source file
type SymbolExtractor interface {
	Extract(ctx context.Context, file string, source []byte) (*codebase.FileSymbols, error)
}

// Index is a project index over registered directories
type Index struct {
	mu       sync.RWMutex
	projects map[codebase.ProjectID]string

	filter  fileFilter
	symbols SymbolExtractor
}

// NewIndex creates an index that walks files selected by include/exclude
func NewIndex(symbols SymbolExtractor, include, exclude []string, maxFileBytes int64) *Index {
	return &Index{
		projects: make(map[codebase.ProjectID]string),
		filter:   newFileFilter(include, exclude, maxFileBytes),
		symbols:  symbols,
	}
}

// Register records a project root and returns its id
func (x *Index) Register(ctx context.Context, path string) (codebase.ProjectID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("register %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("register %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("register %s: not a directory", path)
	}

	id := codebase.ProjectID(uuid.NewString())
	x.mu.Lock()
	x.projects[id] = abs
	x.mu.Unlock()
	return id, nil
}

func (x *Index) root(id codebase.ProjectID) (string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	root, ok := x.projects[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", codebase.ErrProjectNotFound, id)
	}
	return root, nil
}

// Search returns every occurrence of pattern with 1-based line and column
// and one line of context on each side
func (x *Index) Search(ctx context.Context, id codebase.ProjectID, pattern string) ([]codebase.SymbolMatch, error) {
	root, err := x.root(id)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	var matches []codebase.SymbolMatch
	err = walkFiles(ctx, root, x.filter, func(rel string, content []byte) error {
		lines := splitFileLines(content)
		for i, line := range lines {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				if loc[1] == loc[0] {
					continue
				}
				matches = append(matches, codebase.SymbolMatch{
					File:    rel,
					Line:    i + 1,
					Column:  loc[0] + 1,
					Text:    line[loc[0]:loc[1]],
					Context: window(lines, i, 1),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Symbols returns the definitions of one project file
func (x *Index) Symbols(ctx context.Context, id codebase.ProjectID, file string) (*codebase.FileSymbols, error) {
	root, err := x.root(id)
	if err != nil {
		return nil, err
	}
	if x.symbols == nil {
		return nil, errors.New("no symbol extractor configured")
	}

	clean := filepath.Clean(filepath.FromSlash(file))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("symbols %s: path outside project", file)
	}

	source, err := os.ReadFile(filepath.Join(root, clean))
	if err != nil {
		return nil, fmt.Errorf("symbols %s: %w", file, err)
	}
	return x.symbols.Extract(ctx, file, source)
}
