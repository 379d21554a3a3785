// Package pipeline orchestrates extraction, consolidation, validation and
// cleanup planning over one context text and, optionally, one project.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/cleanup"
	"github.com/ppiankov/todolens/internal/codebase"
	"github.com/ppiankov/todolens/internal/consolidate"
	"github.com/ppiankov/todolens/internal/extract"
	"github.com/ppiankov/todolens/internal/model"
	"github.com/ppiankov/todolens/internal/validate"
	"github.com/ppiankov/todolens/internal/worker"
)

var (
	// ErrMissingContext is returned when the context text is empty
	ErrMissingContext = errors.New("context text is required")
	// ErrMissingProjectPath is returned when a project is required but not given
	ErrMissingProjectPath = errors.New("project path is required")
)

// Pipeline orchestrates one analysis run
type Pipeline struct {
	caps     codebase.Capabilities
	registry *extract.Registry
	planner  *cleanup.Planner
	renderer *Renderer
	limiter  *worker.Limiter
	memo     cache.Cache // Nil when the query memo is disabled
	config   *model.Config
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline over the given capabilities. Any capability
// may be nil; the stages depending on it are skipped with a warning.
func NewPipeline(cfg *model.Config, caps codebase.Capabilities, logger zerolog.Logger) *Pipeline {
	var memo cache.Cache
	if cfg.Cache.Enabled {
		memo = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.TTL)
	}

	return &Pipeline{
		caps:     caps,
		registry: extract.NewRegistry(),
		planner:  cleanup.NewPlanner(),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		limiter:  worker.NewLimiter(cfg.Validation.QueriesPerSecond, cfg.Validation.Burst),
		memo:     memo,
		config:   cfg,
		logger:   logger,
	}
}

// ContextAnalysis is the result of analyzing conversational text alone
type ContextAnalysis struct {
	Todos   []model.TodoRecord
	Groups  []model.DuplicateGroup
	Summary model.Summary

	extracted []model.TodoRecord // Before consolidation
}

// CompleteAnalysis is the result of analyzing text against a project
type CompleteAnalysis struct {
	ContextTodos    []model.TodoRecord
	CodebaseTodos   []model.TodoRecord
	ValidatedTodos  []model.TodoRecord // Consolidated records still representing live work
	SupersededTodos []model.TodoRecord // Completed or superseded by existing code
	Validations     []model.ValidationResult
	Groups          []model.DuplicateGroup
	Summary         model.Summary
	Warnings        []string
}

// CleanupAnalysis is a complete analysis plus its cleanup plan
type CleanupAnalysis struct {
	CompleteAnalysis
	Cleanup model.CleanupReport
}

// AnalyzeContext extracts and consolidates the TODOs in text
func (p *Pipeline) AnalyzeContext(ctx context.Context, text string) (*ContextAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingContext
	}

	records := p.registry.ExtractContext(text)
	result := consolidate.Consolidate(records)

	p.logger.Debug().
		Int("extracted", len(records)).
		Int("consolidated", len(result.Todos)).
		Msg("context analyzed")

	return &ContextAnalysis{
		Todos:     result.Todos,
		Groups:    result.Groups,
		Summary:   result.Summary,
		extracted: records,
	}, nil
}

// AnalyzeComplete analyzes text, discovers TODOs in the project and validates
// everything against the project's code. Failures of the code capabilities
// never fail the call: they become warnings and the affected source is empty.
func (p *Pipeline) AnalyzeComplete(ctx context.Context, text, projectPath string) (*CompleteAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingContext
	}
	if strings.TrimSpace(projectPath) == "" {
		return nil, ErrMissingProjectPath
	}

	contextResult, err := p.AnalyzeContext(ctx, text)
	if err != nil {
		return nil, err
	}

	run := &run{pipeline: p}
	analysis := run.analyze(ctx, contextResult, projectPath)
	return analysis, nil
}

// AnalyzeCleanup runs a complete analysis and plans the cleanup
func (p *Pipeline) AnalyzeCleanup(ctx context.Context, text, projectPath string) (*CleanupAnalysis, error) {
	analysis, err := p.AnalyzeComplete(ctx, text, projectPath)
	if err != nil {
		return nil, err
	}

	return &CleanupAnalysis{
		CompleteAnalysis: *analysis,
		Cleanup:          p.planner.Plan(analysis.Validations, analysis.Groups),
	}, nil
}

// run holds the state of one complete analysis
type run struct {
	pipeline *Pipeline
	mu       sync.Mutex
	warnings []string
}

// warn records a degraded phase
func (r *run) warn(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.pipeline.logger.Warn().Err(err).Msg(msg)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}

	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
}

// prepared is the outcome of the two independent setup calls
type prepared struct {
	snapshot *codebase.PackResult
	project  codebase.ProjectID
	packErr  error
	indexErr error
}

// prepare packs and registers the project concurrently. Either may fail
// without affecting the other.
func (r *run) prepare(ctx context.Context, projectPath string) prepared {
	var (
		out prepared
		wg  sync.WaitGroup
		cfg = r.pipeline.config
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if r.pipeline.caps.Packer == nil {
			out.packErr = errors.New("no packer configured")
			return
		}
		res, err := r.pipeline.caps.Packer.Pack(ctx, projectPath, codebase.PackOptions{
			Compress:       cfg.Codebase.Compress,
			Include:        cfg.Codebase.Include,
			Exclude:        cfg.Codebase.Exclude,
			TopFilesLength: cfg.Codebase.TopFilesLength,
		})
		if err == nil {
			err = res.Validate()
		}
		if err != nil {
			out.packErr = err
			return
		}
		out.snapshot = res
	}()
	go func() {
		defer wg.Done()
		if r.pipeline.caps.Index == nil {
			out.indexErr = errors.New("no project index configured")
			return
		}
		id, err := r.pipeline.caps.Index.Register(ctx, projectPath)
		if err != nil {
			out.indexErr = err
			return
		}
		out.project = id
	}()
	wg.Wait()

	return out
}

// analyze runs discovery, consolidation and validation for one project
func (r *run) analyze(ctx context.Context, contextResult *ContextAnalysis, projectPath string) *CompleteAnalysis {
	p := r.pipeline
	start := time.Now()

	prep := r.prepare(ctx, projectPath)
	if prep.packErr != nil {
		r.warn(prep.packErr, "codebase packing failed, using context-only results")
	}
	if prep.indexErr != nil {
		r.warn(prep.indexErr, "project registration failed, semantic discovery skipped")
	}
	if prep.snapshot != nil {
		defer p.release(prep.snapshot.ID)
	}

	var (
		snapshot     codebase.SnapshotID
		searcher     codebase.Searcher
		codebaseTodo []model.TodoRecord
	)
	if prep.snapshot != nil {
		snapshot = prep.snapshot.ID
		searcher = p.caps.Searcher
		if searcher == nil {
			r.warn(nil, "no code searcher configured, codebase discovery and validation skipped")
		} else {
			codebaseTodo = append(codebaseTodo, r.discoverCodebase(ctx, searcher, snapshot)...)
			codebaseTodo = append(codebaseTodo, r.discoverMarkdown(ctx, searcher, snapshot)...)
		}
	}
	if prep.indexErr == nil {
		codebaseTodo = append(codebaseTodo, r.discoverSemantic(ctx, p.caps.Index, prep.project)...)
	}
	if codebaseTodo == nil {
		codebaseTodo = []model.TodoRecord{}
	}

	// One pass over the raw records of both sources, so a cluster spanning
	// them forms a single group
	all := make([]model.TodoRecord, 0, len(contextResult.extracted)+len(codebaseTodo))
	all = append(all, contextResult.extracted...)
	all = append(all, codebaseTodo...)
	merged := consolidate.Consolidate(all)

	validations, ok := r.validate(ctx, searcher, snapshot, merged.Todos)
	if !ok {
		// Fall back to the context-only view
		return &CompleteAnalysis{
			ContextTodos:    contextResult.Todos,
			CodebaseTodos:   []model.TodoRecord{},
			ValidatedTodos:  contextResult.Todos,
			SupersededTodos: []model.TodoRecord{},
			Groups:          contextResult.Groups,
			Summary:         contextResult.Summary,
			Warnings:        r.warnings,
		}
	}

	validated, superseded := partition(merged.Todos, validations)

	p.logger.Info().
		Int("context", len(contextResult.Todos)).
		Int("codebase", len(codebaseTodo)).
		Int("validated", len(validated)).
		Int("superseded", len(superseded)).
		Dur("elapsed", time.Since(start)).
		Msg("project analyzed")

	return &CompleteAnalysis{
		ContextTodos:    contextResult.Todos,
		CodebaseTodos:   codebaseTodo,
		ValidatedTodos:  validated,
		SupersededTodos: superseded,
		Validations:     validations,
		Groups:          merged.Groups,
		Summary:         model.Summarize(validated),
		Warnings:        r.warnings,
	}
}

// validate runs the validator under the phase timeout. It reports false when
// the phase timed out.
func (r *run) validate(ctx context.Context, searcher codebase.Searcher, snapshot codebase.SnapshotID, todos []model.TodoRecord) ([]model.ValidationResult, bool) {
	p := r.pipeline

	opts := validate.OptionsFromConfig(p.config)
	opts.Limiter = p.limiter
	opts.Memo = p.memo
	opts.Logger = p.logger
	validator := validate.NewValidator(searcher, snapshot, opts)

	vctx := ctx
	if p.config.Validation.Timeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, p.config.Validation.Timeout)
		defer cancel()
	}

	results := validator.Validate(vctx, todos)
	if validator.Enabled() && errors.Is(vctx.Err(), context.DeadlineExceeded) {
		r.warn(vctx.Err(), "validation timed out after %s, using context-only results", p.config.Validation.Timeout)
		return nil, false
	}
	return results, true
}

// release frees a snapshot when the packer supports it
func (p *Pipeline) release(id codebase.SnapshotID) {
	if rel, ok := p.caps.Packer.(interface{ Release(codebase.SnapshotID) }); ok {
		rel.Release(id)
	}
}

// partition splits records into live work and work the codebase already covers
func partition(todos []model.TodoRecord, validations []model.ValidationResult) (validated, superseded []model.TodoRecord) {
	status := make(map[string]model.ValidationStatus, len(validations))
	for _, v := range validations {
		status[v.TodoID] = v.Status
	}

	validated = make([]model.TodoRecord, 0, len(todos))
	superseded = []model.TodoRecord{}
	for _, t := range todos {
		switch status[t.ID] {
		case model.StatusSuperseded, model.StatusCompleted:
			superseded = append(superseded, t)
		default:
			validated = append(validated, t)
		}
	}
	return validated, superseded
}

// ProjectAnalyzer runs cleanup analyses of many projects against one text
type ProjectAnalyzer struct {
	pipeline *Pipeline
	text     string
}

// ForContext binds the pipeline to a context text for batch use
func (p *Pipeline) ForContext(text string) *ProjectAnalyzer {
	return &ProjectAnalyzer{pipeline: p, text: text}
}

// AnalyzeProject runs a cleanup analysis of one project
func (a *ProjectAnalyzer) AnalyzeProject(ctx context.Context, project string) (*model.Report, error) {
	result, err := a.pipeline.AnalyzeCleanup(ctx, a.text, project)
	if err != nil {
		return nil, err
	}
	return result.Report(project), nil
}
