package model

import "time"

// DuplicateGroup is a cluster of records judged to describe the same task
type DuplicateGroup struct {
	NormalizedKey string       `json:"normalized_key"`
	Members       []TodoRecord `json:"members"`    // First member is the primary
	Similarity    float64      `json:"similarity"` // Intra-group cohesion, 0..1
}

// CleanupRecommendation is an actionable unit of the cleanup report
type CleanupRecommendation struct {
	Action           CleanupAction  `json:"action"`
	TargetIDs        []string       `json:"target_ids"`
	Rationale        string         `json:"rationale"`
	Impact           Impact         `json:"impact"`
	EstimatedMinutes float64        `json:"estimated_minutes"`
	Data             map[string]any `json:"data,omitempty"` // Transparent formula and inputs
}

// CleanupAction names what the recommendation proposes
type CleanupAction string

const (
	ActionSafeDeletion     CleanupAction = "safe_deletion"
	ActionConsolidation    CleanupAction = "consolidation"
	ActionUpdateReferences CleanupAction = "update_references"
	ActionInvestigate      CleanupAction = "investigate"
)

// Impact of applying a recommendation
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Rank orders impacts: high > medium > low
func (i Impact) Rank() int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// CleanupSummary aggregates the numeric outcome of a cleanup plan
type CleanupSummary struct {
	SafeDeletions              int `json:"safe_deletions"`
	UpdateSuggestions          int `json:"update_suggestions"`
	ConsolidationOpportunities int `json:"consolidation_opportunities"`
	TotalPotentialReduction    int `json:"total_potential_reduction"` // Estimated minutes, rounded
}

// CleanupReport is the planner output
type CleanupReport struct {
	Recommendations []CleanupRecommendation `json:"recommendations"`
	Summary         CleanupSummary          `json:"summary"`
}

// Report is the serializable result of one pipeline run
type Report struct {
	Subject     string    `json:"subject"`                // Project path or "context"
	GeneratedAt time.Time `json:"generated_at"`
	Mode        string    `json:"mode"`                   // context, analyze, cleanup

	ContextTodos    []TodoRecord       `json:"context_todos"`
	CodebaseTodos   []TodoRecord       `json:"codebase_todos"`
	ValidatedTodos  []TodoRecord       `json:"validated_todos"`
	SupersededTodos []TodoRecord       `json:"superseded_todos"`
	Validations     []ValidationResult `json:"validations,omitempty"`
	Groups          []DuplicateGroup   `json:"duplicate_groups,omitempty"`
	Summary         Summary            `json:"summary"`

	Cleanup  *CleanupReport `json:"cleanup,omitempty"`
	Warnings []string       `json:"warnings,omitempty"` // Degraded phases, never fatal
}
