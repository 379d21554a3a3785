package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase"
	"github.com/ppiankov/todolens/internal/model"
	"github.com/ppiankov/todolens/internal/worker"
)

// Verdict confidences
const (
	confSuperseded        = 0.9
	confCompleted         = 0.8
	confStale             = 0.8
	confBrokenReference   = 0.75
	confActive            = 0.6
	confQueriesFailed     = 0.3
	confNoReferences      = 0.2
	confFileExists        = 0.9
	confFileMissing       = 0.8
	confReferenceBroken   = 0.75
	confImplementation    = 0.6
	confImplementationEnd = 0.8
	confSemanticMatch     = 0.9
)

// retryBaseDelay is the first backoff step; it doubles per attempt
const retryBaseDelay = 250 * time.Millisecond

// validateSleepFunc is the sleep function used between retries (injectable for tests)
var validateSleepFunc = time.Sleep

// Options tunes a Validator
type Options struct {
	Workers          int
	QueryTimeout     time.Duration
	ContextLines     int
	WideContextLines int
	MaxRetries       int
	Limiter          *worker.Limiter // Optional, keyed by snapshot id
	Memo             cache.Cache     // Optional query result memo
	MemoTTL          time.Duration
	Logger           zerolog.Logger
}

// OptionsFromConfig maps the validation and concurrency config sections
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		Workers:          cfg.Concurrency.ValidationWorkers,
		QueryTimeout:     cfg.Validation.QueryTimeout,
		ContextLines:     cfg.Validation.ContextLines,
		WideContextLines: cfg.Validation.WideContextLines,
		MaxRetries:       cfg.Validation.MaxRetries,
		MemoTTL:          cfg.Cache.TTL,
		Logger:           zerolog.Nop(),
	}
}

// Validator checks TODOs against a packed codebase
type Validator struct {
	searcher codebase.Searcher
	snapshot codebase.SnapshotID
	opts     Options
}

// NewValidator creates a validator over one snapshot. A nil searcher or an
// empty snapshot id yields a validator that reports every TODO unknown.
func NewValidator(searcher codebase.Searcher, snapshot codebase.SnapshotID, opts Options) *Validator {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.WideContextLines < opts.ContextLines {
		opts.WideContextLines = opts.ContextLines
	}
	return &Validator{searcher: searcher, snapshot: snapshot, opts: opts}
}

// Enabled reports whether the validator can query a codebase
func (v *Validator) Enabled() bool {
	return v.searcher != nil && v.snapshot != ""
}

// Validate returns one result per TODO, in input order
func (v *Validator) Validate(ctx context.Context, todos []model.TodoRecord) []model.ValidationResult {
	results := make([]model.ValidationResult, len(todos))
	if len(todos) == 0 {
		return results
	}

	if !v.Enabled() {
		for i, t := range todos {
			results[i] = model.UnknownResult(t.ID, confQueriesFailed)
		}
		return results
	}

	var wg sync.WaitGroup

	// Create semaphore to limit concurrent validations
	semaphore := make(chan struct{}, v.opts.Workers)

	for i, todo := range todos {
		wg.Add(1)
		go func(idx int, t model.TodoRecord) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case <-ctx.Done():
				results[idx] = model.UnknownResult(t.ID, confQueriesFailed)
				return
			case semaphore <- struct{}{}:
			}

			// Release semaphore when done
			defer func() { <-semaphore }()

			results[idx] = v.validateSingle(ctx, t)
		}(i, todo)
	}

	// Wait for all validations to complete
	wg.Wait()

	return results
}

// checkOutcome is what one reference check contributed
type checkOutcome struct {
	evidence  *model.Evidence
	ok        bool // The query succeeded
	missing   bool // File missing or identifier not found
	completed bool // Implementation hit mentions completion
}

// validateSingle classifies one TODO
func (v *Validator) validateSingle(ctx context.Context, todo model.TodoRecord) model.ValidationResult {
	if todo.IsCompleted() {
		return model.ValidationResult{
			TodoID:     todo.ID,
			Status:     model.StatusCompleted,
			Confidence: confCompleted,
			Evidence: []model.Evidence{{
				Kind:        model.EvidenceMarkedDone,
				Description: "marked done where it was written",
				Location:    todo.Location,
				Confidence:  confCompleted,
			}},
		}
	}

	refs := ExtractReferences(todo.Content)
	if refs.Empty() {
		return model.UnknownResult(todo.ID, confNoReferences)
	}

	fileOutcomes := make([]checkOutcome, len(refs.Files))
	identOutcomes := make([]checkOutcome, len(refs.Identifiers))

	var wg sync.WaitGroup
	for i, f := range refs.Files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			fileOutcomes[idx] = v.checkFile(ctx, path)
		}(i, f)
	}
	for i, id := range refs.Identifiers {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			identOutcomes[idx] = v.checkIdentifier(ctx, name)
		}(i, id)
	}
	wg.Wait()

	// Supersession is sequential: the first matching keyword wins
	var semantic checkOutcome
	superseded := false
	for _, kw := range refs.Keywords {
		out, hit := v.checkSupersession(ctx, kw, todo.Locations())
		if out.ok {
			semantic.ok = true
		}
		if hit {
			semantic = out
			superseded = true
			break
		}
	}

	result := model.ValidationResult{TodoID: todo.ID}
	var (
		anyOK, completed  bool
		missingFiles      int
		brokenIdentifiers int
	)
	for _, out := range fileOutcomes {
		anyOK = anyOK || out.ok
		if out.missing {
			missingFiles++
		}
		if out.evidence != nil {
			result.Evidence = append(result.Evidence, *out.evidence)
		}
	}
	for _, out := range identOutcomes {
		anyOK = anyOK || out.ok
		completed = completed || out.completed
		if out.missing {
			brokenIdentifiers++
		}
		if out.evidence != nil {
			result.Evidence = append(result.Evidence, *out.evidence)
		}
	}
	anyOK = anyOK || semantic.ok
	if semantic.evidence != nil {
		result.Evidence = append(result.Evidence, *semantic.evidence)
	}

	switch {
	case superseded:
		result.Status, result.Confidence = model.StatusSuperseded, confSuperseded
	case completed:
		result.Status, result.Confidence = model.StatusCompleted, confCompleted
	case missingFiles > 0 && missingFiles >= brokenIdentifiers:
		result.Status, result.Confidence = model.StatusStale, confStale
	case brokenIdentifiers > 0:
		result.Status, result.Confidence = model.StatusBrokenReference, confBrokenReference
	case anyOK:
		result.Status, result.Confidence = model.StatusActive, confActive
	default:
		result.Status, result.Confidence = model.StatusUnknown, confQueriesFailed
	}

	return result
}

// checkFile greps for a referenced path
func (v *Validator) checkFile(ctx context.Context, path string) checkOutcome {
	matches, err := v.query(ctx, regexp.QuoteMeta(path), v.opts.ContextLines)
	if err != nil {
		return checkOutcome{}
	}
	if len(matches) == 0 {
		return checkOutcome{
			ok:      true,
			missing: true,
			evidence: &model.Evidence{
				Kind:        model.EvidenceFileMissing,
				Description: fmt.Sprintf("referenced file %s not found", path),
				Confidence:  confFileMissing,
			},
		}
	}
	return checkOutcome{
		ok: true,
		evidence: &model.Evidence{
			Kind:        model.EvidenceFileExists,
			Description: fmt.Sprintf("referenced file %s exists", path),
			Location:    matchLocation(matches[0]),
			Confidence:  confFileExists,
		},
	}
}

// checkIdentifier greps for a definition or call of name. Hits on marker
// comments do not count. Only a definition can mark the identifier complete.
func (v *Validator) checkIdentifier(ctx context.Context, name string) checkOutcome {
	q := regexp.QuoteMeta(name)
	decl := `(?:function|func|def|const|let|var|class)\s+` + q + `\b`
	pattern := decl + `|` + q + `\s*\(`

	matches, err := v.query(ctx, pattern, v.opts.ContextLines)
	if err != nil {
		return checkOutcome{}
	}
	matches = withoutMarkerLines(matches)
	if len(matches) == 0 {
		return checkOutcome{
			ok:      true,
			missing: true,
			evidence: &model.Evidence{
				Kind:        model.EvidenceReferenceBroken,
				Description: fmt.Sprintf("identifier %s not found in codebase", name),
				Confidence:  confReferenceBroken,
			},
		}
	}

	declRe := regexp.MustCompile(decl)
	for _, m := range matches {
		if !declRe.MatchString(m.LineText) && !declRe.MatchString(m.MatchedText) {
			continue
		}
		if completionRe.MatchString(matchText(m)) {
			return checkOutcome{
				ok:        true,
				completed: true,
				evidence: &model.Evidence{
					Kind:        model.EvidenceImplementationFound,
					Description: fmt.Sprintf("%s is implemented and marked complete", name),
					Location:    matchLocation(m),
					Confidence:  confImplementationEnd,
				},
			}
		}
	}

	return checkOutcome{
		ok: true,
		evidence: &model.Evidence{
			Kind:        model.EvidenceImplementationFound,
			Description: fmt.Sprintf("%s found in codebase", name),
			Location:    matchLocation(matches[0]),
			Confidence:  confImplementation,
		},
	}
}

// checkSupersession greps a keyword's stem with the wide window and reports
// whether any hit sits in a definition. Hits on marker comments and hits
// around any place the TODO was found are ignored.
func (v *Validator) checkSupersession(ctx context.Context, keyword string, self []model.Location) (checkOutcome, bool) {
	wordStem := stem(keyword)
	matches, err := v.query(ctx, `(?i)`+regexp.QuoteMeta(wordStem), v.opts.WideContextLines)
	if err != nil {
		return checkOutcome{}, false
	}

	for _, m := range withoutMarkerLines(matches) {
		if v.nearSelf(m, self) || !hasImplementationContext(matchText(m), wordStem) {
			continue
		}
		return checkOutcome{
			ok: true,
			evidence: &model.Evidence{
				Kind:        model.EvidenceSemanticMatch,
				Description: fmt.Sprintf("%q appears implemented: %s", keyword, strings.TrimSpace(m.LineText)),
				Location:    matchLocation(m),
				Confidence:  confSemanticMatch,
			},
		}, true
	}
	return checkOutcome{ok: true}, false
}

// nearSelf reports whether m falls within the wide window of any of the
// TODO's own locations
func (v *Validator) nearSelf(m codebase.Match, self []model.Location) bool {
	if m.Line == 0 {
		return false
	}
	for _, loc := range self {
		if loc.File != m.File {
			continue
		}
		d := m.Line - loc.Line
		if d < 0 {
			d = -d
		}
		if d <= v.opts.WideContextLines {
			return true
		}
	}
	return false
}

// query runs one grep through the memo, the limiter and the retry loop.
// Any error means the query produced no evidence.
func (v *Validator) query(ctx context.Context, pattern string, contextLines int) ([]codebase.Match, error) {
	key := cache.QueryKey(string(v.snapshot), pattern, contextLines)
	if v.opts.Memo != nil {
		if data, ok := v.opts.Memo.Get(key); ok {
			var matches []codebase.Match
			if err := json.Unmarshal(data, &matches); err == nil {
				return matches, nil
			}
		}
	}

	matches, err := v.queryWithRetry(ctx, pattern, contextLines)
	if err != nil {
		v.opts.Logger.Debug().Err(err).Str("pattern", pattern).Msg("code search query failed")
		return nil, err
	}

	if v.opts.Memo != nil {
		if data, err := json.Marshal(matches); err == nil {
			_ = v.opts.Memo.Set(key, data, v.opts.MemoTTL)
		}
	}
	return matches, nil
}

// queryWithRetry retries transient failures with exponential backoff
func (v *Validator) queryWithRetry(ctx context.Context, pattern string, contextLines int) ([]codebase.Match, error) {
	var (
		matches []codebase.Match
		err     error
	)
	for attempt := 0; attempt <= v.opts.MaxRetries; attempt++ {
		matches, err = v.queryOnce(ctx, pattern, contextLines)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return matches, err
		}
		if attempt < v.opts.MaxRetries {
			validateSleepFunc(retryBaseDelay << uint(attempt))
		}
	}
	return matches, err
}

// queryOnce performs a single rate-limited, time-bounded, validated grep
func (v *Validator) queryOnce(ctx context.Context, pattern string, contextLines int) ([]codebase.Match, error) {
	if v.opts.Limiter != nil {
		if err := v.opts.Limiter.Wait(ctx, string(v.snapshot)); err != nil {
			return nil, err
		}
	}

	qctx := ctx
	if v.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, v.opts.QueryTimeout)
		defer cancel()
	}

	matches, err := v.searcher.Grep(qctx, v.snapshot, pattern, contextLines)
	if err != nil {
		return nil, err
	}
	if err := codebase.ValidateMatches(matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// isRetryable returns true for errors that indicate transient failures
func isRetryable(err error) bool {
	return errors.Is(err, codebase.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// matchText joins everything a match shows about its surroundings, leaving
// out neighbouring marker comments
func matchText(m codebase.Match) string {
	parts := []string{m.MatchedText, m.LineText}
	for _, line := range m.Context {
		if !isMarkerLine(line) {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n")
}

// withoutMarkerLines drops matches whose line is itself a marker comment
func withoutMarkerLines(matches []codebase.Match) []codebase.Match {
	out := make([]codebase.Match, 0, len(matches))
	for _, m := range matches {
		if !isMarkerLine(m.LineText) {
			out = append(out, m)
		}
	}
	return out
}

func matchLocation(m codebase.Match) *model.Location {
	return &model.Location{File: m.File, Line: m.Line}
}
