package cleanup

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/todolens/internal/model"
)

// Planner thresholds and per-item effort estimates
const (
	safeDeletionThreshold     = 0.85
	updateReferencesThreshold = 0.7
	minConsolidationMembers   = 3

	minutesPerDeletion      = 2.0
	minutesPerMerge         = 1.5
	minutesPerUpdate        = 3.0
	minutesPerInvestigation = 0.0
)

// Planner turns validation verdicts and duplicate groups into recommendations
type Planner struct{}

// NewPlanner creates a new planner
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan builds the cleanup report. Every recommendation carries the formula
// and inputs behind its estimate.
func (p *Planner) Plan(validations []model.ValidationResult, groups []model.DuplicateGroup) model.CleanupReport {
	var recs []model.CleanupRecommendation

	// 1. Safe deletions (completed or superseded, high confidence)
	if rec, ok := p.planSafeDeletion(validations); ok {
		recs = append(recs, rec)
	}

	// 2. Consolidation (large duplicate groups)
	if rec, ok := p.planConsolidation(groups); ok {
		recs = append(recs, rec)
	}

	// 3. Reference updates (stale or broken references)
	if rec, ok := p.planUpdateReferences(validations); ok {
		recs = append(recs, rec)
	}

	// 4. Investigation (anything unknown)
	if rec, ok := p.planInvestigate(validations); ok {
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Impact.Rank() != recs[j].Impact.Rank() {
			return recs[i].Impact.Rank() > recs[j].Impact.Rank()
		}
		return recs[i].EstimatedMinutes > recs[j].EstimatedMinutes
	})

	summary := model.CleanupSummary{}
	total := 0.0
	for _, r := range recs {
		switch r.Action {
		case model.ActionSafeDeletion:
			summary.SafeDeletions = len(r.TargetIDs)
		case model.ActionUpdateReferences:
			summary.UpdateSuggestions = len(r.TargetIDs)
		case model.ActionConsolidation:
			summary.ConsolidationOpportunities = dataInt(r.Data, "groups")
		}
		total += r.EstimatedMinutes
	}
	summary.TotalPotentialReduction = int(math.Round(total))

	if recs == nil {
		recs = []model.CleanupRecommendation{}
	}
	return model.CleanupReport{Recommendations: recs, Summary: summary}
}

// planSafeDeletion collects TODOs the codebase has already made redundant
func (p *Planner) planSafeDeletion(validations []model.ValidationResult) (model.CleanupRecommendation, bool) {
	var ids []string
	for _, v := range validations {
		if (v.Status == model.StatusCompleted || v.Status == model.StatusSuperseded) && v.Confidence > safeDeletionThreshold {
			ids = append(ids, v.TodoID)
		}
	}
	if len(ids) == 0 {
		return model.CleanupRecommendation{}, false
	}

	minutes := minutesPerDeletion * float64(len(ids))
	return model.CleanupRecommendation{
		Action:           model.ActionSafeDeletion,
		TargetIDs:        ids,
		Rationale:        fmt.Sprintf("%d TODOs are completed or superseded with confidence above %.2f", len(ids), safeDeletionThreshold),
		Impact:           model.ImpactHigh,
		EstimatedMinutes: minutes,
		Data: map[string]interface{}{
			"count":     len(ids),
			"threshold": safeDeletionThreshold,
			"minutes":   minutes,
			"formula":   "count * 2",
		},
	}, true
}

// planConsolidation merges every group large enough to be worth a pass.
// The first member is kept; the others are the targets.
func (p *Planner) planConsolidation(groups []model.DuplicateGroup) (model.CleanupRecommendation, bool) {
	var (
		ids     []string
		merged  int
		grouped int
	)
	for _, g := range groups {
		if len(g.Members) < minConsolidationMembers {
			continue
		}
		grouped++
		for _, m := range g.Members[1:] {
			ids = append(ids, m.ID)
		}
		merged += len(g.Members) - 1
	}
	if grouped == 0 {
		return model.CleanupRecommendation{}, false
	}

	minutes := minutesPerMerge * float64(merged)
	return model.CleanupRecommendation{
		Action:           model.ActionConsolidation,
		TargetIDs:        ids,
		Rationale:        fmt.Sprintf("%d duplicate groups of %d or more TODOs can be merged into their first entry", grouped, minConsolidationMembers),
		Impact:           model.ImpactMedium,
		EstimatedMinutes: minutes,
		Data: map[string]interface{}{
			"groups":  grouped,
			"merged":  merged,
			"minutes": minutes,
			"formula": "sum(members - 1) * 1.5",
		},
	}, true
}

// planUpdateReferences collects TODOs pointing at code that moved or vanished
func (p *Planner) planUpdateReferences(validations []model.ValidationResult) (model.CleanupRecommendation, bool) {
	var ids []string
	for _, v := range validations {
		if (v.Status == model.StatusStale || v.Status == model.StatusBrokenReference) && v.Confidence > updateReferencesThreshold {
			ids = append(ids, v.TodoID)
		}
	}
	if len(ids) == 0 {
		return model.CleanupRecommendation{}, false
	}

	minutes := minutesPerUpdate * float64(len(ids))
	return model.CleanupRecommendation{
		Action:           model.ActionUpdateReferences,
		TargetIDs:        ids,
		Rationale:        fmt.Sprintf("%d TODOs reference files or identifiers that no longer exist", len(ids)),
		Impact:           model.ImpactMedium,
		EstimatedMinutes: minutes,
		Data: map[string]interface{}{
			"count":     len(ids),
			"threshold": updateReferencesThreshold,
			"minutes":   minutes,
			"formula":   "count * 3",
		},
	}, true
}

// planInvestigate lists TODOs nothing could be concluded about.
// These are never acted on automatically.
func (p *Planner) planInvestigate(validations []model.ValidationResult) (model.CleanupRecommendation, bool) {
	var ids []string
	for _, v := range validations {
		if v.Status == model.StatusUnknown {
			ids = append(ids, v.TodoID)
		}
	}
	if len(ids) == 0 {
		return model.CleanupRecommendation{}, false
	}

	return model.CleanupRecommendation{
		Action:           model.ActionInvestigate,
		TargetIDs:        ids,
		Rationale:        fmt.Sprintf("%d TODOs could not be validated and need manual review", len(ids)),
		Impact:           model.ImpactLow,
		EstimatedMinutes: minutesPerInvestigation,
		Data: map[string]interface{}{
			"count":       len(ids),
			"minutes":     minutesPerInvestigation,
			"auto_action": false,
		},
	}, true
}

func dataInt(data map[string]interface{}, key string) int {
	if v, ok := data[key].(int); ok {
		return v
	}
	return 0
}
