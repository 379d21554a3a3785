package local

import (
	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase"
	"github.com/ppiankov/todolens/internal/model"
	"github.com/ppiankov/todolens/internal/symbols"
)

// NewCapabilities wires the filesystem packer, searcher and index. Packer and
// searcher share store, so snapshots packed by one are visible to the other.
func NewCapabilities(cfg *model.Config, store cache.Cache) codebase.Capabilities {
	return codebase.Capabilities{
		Packer:   NewPacker(store, cfg.Codebase.MaxFileBytes),
		Searcher: NewSearcher(store),
		Index:    NewIndex(symbols.NewExtractor(), cfg.Codebase.Include, cfg.Codebase.Exclude, cfg.Codebase.MaxFileBytes),
	}
}
