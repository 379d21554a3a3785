// Package consolidate merges duplicate TodoRecords across sources.
package consolidate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/todolens/internal/classify"
	"github.com/ppiankov/todolens/internal/model"
)

// mergedSuffix is appended to the template id of a merged record
const mergedSuffix = "-merged"

// Result is the output of a consolidation pass
type Result struct {
	Todos   []model.TodoRecord
	Groups  []model.DuplicateGroup // Only clusters with two or more members
	Summary model.Summary
}

// NormalizeKey reduces content to its bag-of-words key: lowercase, every
// punctuation rune (underscores included) stripped, words sorted and
// single-space joined. Word order is ignored, so "remove user" and
// "user remove" collide.
func NormalizeKey(content string) string {
	words := strings.Fields(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, content))
	sort.Strings(words)
	return strings.Join(words, " ")
}

// Consolidate groups records by NormalizeKey and merges each group into one
// record. Group order and member order follow first appearance.
func Consolidate(todos []model.TodoRecord) Result {
	var keys []string
	groups := make(map[string][]model.TodoRecord)
	for _, t := range todos {
		key := NormalizeKey(t.Content)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}

	result := Result{
		Todos: make([]model.TodoRecord, 0, len(keys)),
	}

	for _, key := range keys {
		members := groups[key]
		if len(members) == 1 {
			rec := members[0]
			classify.RaiseOverride(&rec)
			result.Todos = append(result.Todos, rec)
			continue
		}

		result.Todos = append(result.Todos, merge(members))
		result.Groups = append(result.Groups, model.DuplicateGroup{
			NormalizedKey: key,
			Members:       members,
			Similarity:    similarity(members),
		})
	}

	result.Summary = model.Summarize(result.Todos)
	return result
}

// merge folds a group into a single record based on its first member
func merge(members []model.TodoRecord) model.TodoRecord {
	merged := members[0]

	ids := make([]string, 0, len(members))
	var (
		sources   []string
		locations []model.Location
	)
	seen := make(map[string]bool)
	for _, m := range members {
		ids = append(ids, m.ID)
		locations = append(locations, m.Locations()...)
		merged.Priority = model.MaxPriority(merged.Priority, m.Priority)
		for _, s := range m.Sources() {
			if !seen[s] {
				seen[s] = true
				sources = append(sources, s)
			}
		}
	}

	metadata := make(map[string]any, len(merged.Metadata)+1)
	for k, v := range merged.Metadata {
		metadata[k] = v
	}
	metadata[model.MetaMergedFrom] = ids
	if len(locations) > 0 {
		metadata[model.MetaLocations] = locations
	}

	merged.ID = members[0].ID + mergedSuffix
	merged.Source = strings.Join(sources, "+")
	merged.Metadata = metadata

	classify.RaiseOverride(&merged)
	return merged
}

// similarity is the mean Jaccard overlap between each member's word set and
// the primary's
func similarity(members []model.TodoRecord) float64 {
	if len(members) < 2 {
		return 1.0
	}

	primary := wordSet(members[0].Content)
	var total float64
	for _, m := range members[1:] {
		total += jaccard(primary, wordSet(m.Content))
	}
	return total / float64(len(members)-1)
}

func wordSet(content string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(NormalizeKey(content)) {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
