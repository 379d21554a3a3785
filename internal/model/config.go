package model

import "time"

// Config is the complete todolens configuration.
// Field tags serve both viper (mapstructure) and config show/init (yaml).
type Config struct {
	Codebase    CodebaseConfig    `yaml:"codebase" mapstructure:"codebase"`
	Validation  ValidationConfig  `yaml:"validation" mapstructure:"validation"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// CodebaseConfig controls how a project is packed for searching
type CodebaseConfig struct {
	Compress       bool     `yaml:"compress" mapstructure:"compress"`
	Include        []string `yaml:"include" mapstructure:"include"`
	Exclude        []string `yaml:"exclude" mapstructure:"exclude"`
	TopFilesLength int      `yaml:"top_files_length" mapstructure:"top_files_length"`
	MaxFileBytes   int64    `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
}

// ValidationConfig controls the relevance validator
type ValidationConfig struct {
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`             // Whole validation phase
	QueryTimeout     time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"` // Single code-search query
	ContextLines     int           `yaml:"context_lines" mapstructure:"context_lines"`
	WideContextLines int           `yaml:"wide_context_lines" mapstructure:"wide_context_lines"`
	MaxRetries       int           `yaml:"max_retries" mapstructure:"max_retries"`
	QueriesPerSecond float64       `yaml:"queries_per_second" mapstructure:"queries_per_second"` // 0 = unlimited
	Burst            int           `yaml:"burst" mapstructure:"burst"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	ValidationWorkers int `yaml:"validation_workers" mapstructure:"validation_workers"`
	Workers           int `yaml:"workers" mapstructure:"workers"` // Batch analysis
}

// CacheConfig controls the in-process query memo
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LoggingConfig controls the zerolog logger
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"` // Empty = stderr
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Codebase: CodebaseConfig{
			Compress: false,
			Include:  []string{"**/*"},
			Exclude: []string{
				".git/**", "**/.git/**",
				"node_modules/**", "**/node_modules/**",
				"vendor/**", "dist/**", "build/**",
				"**/*.min.js", "**/*.lock", "**/*.png", "**/*.jpg", "**/*.gif",
			},
			TopFilesLength: 5,
			MaxFileBytes:   1 << 20,
		},
		Validation: ValidationConfig{
			Timeout:          2 * time.Minute,
			QueryTimeout:     10 * time.Second,
			ContextLines:     2,
			WideContextLines: 5,
			MaxRetries:       2,
			QueriesPerSecond: 0,
			Burst:            10,
		},
		Concurrency: ConcurrencyConfig{
			ValidationWorkers: 8,
			Workers:           4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
