//go:build !cgo

package symbols

import (
	"context"

	"github.com/ppiankov/todolens/internal/codebase"
)

// Extractor extracts symbols from source files.
// Without cgo every language goes through the line scanner.
type Extractor struct{}

// NewExtractor creates a new symbol extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the function and class definitions of one file
func (e *Extractor) Extract(ctx context.Context, file string, source []byte) (*codebase.FileSymbols, error) {
	lang, ok := LanguageFromPath(file)
	if !ok {
		return &codebase.FileSymbols{File: file}, nil
	}
	return scanSymbols(file, lang, source), nil
}
