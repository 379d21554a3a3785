package model

// ValidationResult is the relevance verdict for one TodoRecord
type ValidationResult struct {
	TodoID     string           `json:"todo_id"`
	Status     ValidationStatus `json:"status"`
	Confidence float64          `json:"confidence"` // 0..1
	Evidence   []Evidence       `json:"evidence,omitempty"`
}

// ValidationStatus classifies whether a TODO still represents live work
type ValidationStatus string

const (
	StatusActive          ValidationStatus = "active"
	StatusCompleted       ValidationStatus = "completed"
	StatusSuperseded      ValidationStatus = "superseded"
	StatusStale           ValidationStatus = "stale"
	StatusBrokenReference ValidationStatus = "broken-reference"
	StatusUnknown         ValidationStatus = "unknown"
)

// Evidence is a single confidence-scored fact behind a verdict
type Evidence struct {
	Kind        EvidenceKind `json:"kind"`
	Description string       `json:"description"`
	Location    *Location    `json:"location,omitempty"`
	Confidence  float64      `json:"confidence"`
}

// EvidenceKind classifies the type of evidence
type EvidenceKind string

const (
	EvidenceFileExists          EvidenceKind = "file-exists"
	EvidenceFileMissing         EvidenceKind = "file-missing"
	EvidenceImplementationFound EvidenceKind = "implementation-found"
	EvidenceReferenceBroken     EvidenceKind = "reference-broken"
	EvidenceSemanticMatch       EvidenceKind = "semantic-match"
	EvidenceMarkedDone          EvidenceKind = "marked-done" // Checked box, done row or status emoji
)

// UnknownResult is the verdict used when nothing could be checked
func UnknownResult(todoID string, confidence float64) ValidationResult {
	return ValidationResult{
		TodoID:     todoID,
		Status:     StatusUnknown,
		Confidence: confidence,
	}
}
