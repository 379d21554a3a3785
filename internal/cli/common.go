package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase/local"
	"github.com/ppiankov/todolens/internal/logging"
	"github.com/ppiankov/todolens/internal/model"
	"github.com/ppiankov/todolens/internal/pipeline"
)

// Flags shared by the analysis commands
var (
	outJSON  string
	outMD    string
	noFooter bool
	noCache  bool
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outJSON, "json", "report.json", `output JSON path ("-" for stdout, "" to skip)`)
	cmd.Flags().StringVar(&outMD, "md", "", `output Markdown path ("-" for stdout, optional)`)
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the code-search memo")
}

// session is one configured pipeline plus the logger it writes to
type session struct {
	config   *model.Config
	pipeline *pipeline.Pipeline
	logger   zerolog.Logger
	close    func()
}

// newSession loads configuration, applies command flags and builds a
// pipeline over the local filesystem capabilities.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if cmd.Flags().Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}

	level := cfg.Logging.Level
	if cfg.Output.Verbose && cfg.Logging.File == "" {
		level = "debug"
	}
	logger, closer, err := logging.New(level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log.Logger = logger

	store := cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.TTL)
	caps := local.NewCapabilities(cfg, store)

	return &session{
		config:   cfg,
		pipeline: pipeline.NewPipeline(cfg, caps, logging.Component("pipeline")),
		logger:   logger,
		close:    closer,
	}, nil
}

// readContext reads the context text from a file, or from stdin for "-"
func readContext(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read context: %w", err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", pipeline.ErrMissingContext
	}
	return text, nil
}

// commandContext returns the command's context, or a background one when
// the command was executed without one
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
