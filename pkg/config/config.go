/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for the modernizer. Every detection, parsing, inference and
segmentation threshold is a documented, tunable value loaded from config files, flags
or AS400_* environment variables through viper.
*/

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kleascm/as400-modernizer/pkg/detect"
	"github.com/kleascm/as400-modernizer/pkg/inference"
	"github.com/kleascm/as400-modernizer/pkg/logging"
	"github.com/kleascm/as400-modernizer/pkg/overlay"
	"github.com/kleascm/as400-modernizer/pkg/parsers"
	"github.com/kleascm/as400-modernizer/pkg/schema"
	"github.com/kleascm/as400-modernizer/pkg/segment"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix, e.g. AS400_WORKERS
const EnvPrefix = "AS400"

// Config holds the complete modernizer configuration
type Config struct {
	Workers      int                `mapstructure:"workers" json:"workers"` // Parallel per-input workers
	Detection    DetectionConfig    `mapstructure:"detection" json:"detection"`
	Parsing      ParsingConfig      `mapstructure:"parsing" json:"parsing"`
	Inference    InferenceConfig    `mapstructure:"inference" json:"inference"`
	Synthesis    SynthesisConfig    `mapstructure:"synthesis" json:"synthesis"`
	Segmentation SegmentationConfig `mapstructure:"segmentation" json:"segmentation"`
	Overlay      OverlayConfig      `mapstructure:"overlay" json:"overlay"`
	Logging      LoggingConfig      `mapstructure:"logging" json:"logging"`
}

// DetectionConfig tunes the format detector
type DetectionConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence"` // Below this the input is unrecognized
	SampleLines   int     `mapstructure:"sample_lines" json:"sample_lines"`     // Lines scored per signature
}

// ParsingConfig tunes the structural parsers
type ParsingConfig struct {
	SampleSize      int     `mapstructure:"sample_size" json:"sample_size"`             // Lines scanned for boundaries/delimiters
	ColumnTolerance float64 `mapstructure:"column_tolerance" json:"column_tolerance"`   // Share of ragged rows tolerated
	SingleRowGutter int     `mapstructure:"single_row_gutter" json:"single_row_gutter"` // Blank run needed with one sample row
}

// InferenceConfig tunes value-sampled type inference
type InferenceConfig struct {
	EnumRatio         float64 `mapstructure:"enum_ratio" json:"enum_ratio"`
	EnumMinSamples    int     `mapstructure:"enum_min_samples" json:"enum_min_samples"`
	EnumMaxCandidates int     `mapstructure:"enum_max_candidates" json:"enum_max_candidates"`
}

// SynthesisConfig tunes key detection and reference linking
type SynthesisConfig struct {
	KeySuffixes       []string `mapstructure:"key_suffixes" json:"key_suffixes"`
	ReferencePrefixes []string `mapstructure:"reference_prefixes" json:"reference_prefixes"`
	ReferenceSuffixes []string `mapstructure:"reference_suffixes" json:"reference_suffixes"`
}

// SegmentationConfig tunes service boundary proposals
type SegmentationConfig struct {
	MaxBoundarySize int     `mapstructure:"max_boundary_size" json:"max_boundary_size"`
	PrefixWeight    float64 `mapstructure:"prefix_weight" json:"prefix_weight"`
}

// OverlayConfig configures the optional advisory overlay
type OverlayConfig struct {
	Provider    string  `mapstructure:"provider" json:"provider"` // "", "openai" or "file"
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint"`
	Model       string  `mapstructure:"model" json:"model"`
	APIKey      string  `mapstructure:"api_key" json:"-"`
	File        string  `mapstructure:"file" json:"file"`
	Timeout     string  `mapstructure:"timeout" json:"timeout"` // e.g. "10s"
	RatePerSec  float64 `mapstructure:"rate_per_sec" json:"rate_per_sec"`
	Burst       int     `mapstructure:"burst" json:"burst"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
}

// LoggingConfig selects the log output
type LoggingConfig struct {
	Level     string `mapstructure:"level" json:"level"`
	Format    string `mapstructure:"format" json:"format"` // text, json or custom
	OutputDir string `mapstructure:"output_dir" json:"output_dir"`
	MaxFiles  int    `mapstructure:"max_files" json:"max_files"` // Log files kept in OutputDir
	Colors    bool   `mapstructure:"colors" json:"colors"`
}

// Default returns the documented defaults
func Default() *Config {
	return &Config{
		Workers: 4,
		Detection: DetectionConfig{
			MinConfidence: 0.5,
			SampleLines:   50,
		},
		Parsing: ParsingConfig{
			SampleSize:      50,
			ColumnTolerance: 0.1,
			SingleRowGutter: 2,
		},
		Inference: InferenceConfig{
			EnumRatio:         0.5,
			EnumMinSamples:    2,
			EnumMaxCandidates: 10,
		},
		Synthesis: SynthesisConfig{
			KeySuffixes:       []string{"ID", "NUM", "CODE"},
			ReferencePrefixes: []string{"FK", "REF"},
			ReferenceSuffixes: []string{"ID", "NUM", "NO", "NBR", "CODE", "KEY"},
		},
		Segmentation: SegmentationConfig{
			MaxBoundarySize: 8,
			PrefixWeight:    0.5,
		},
		Overlay: OverlayConfig{
			Provider:    "",
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Timeout:     "10s",
			RatePerSec:  2,
			Burst:       1,
			Temperature: 0.1,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			MaxFiles: 10,
			Colors:   true,
		},
	}
}

// SetDefaults registers the defaults on a viper instance so that config files and
// environment variables only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workers", d.Workers)
	v.SetDefault("detection.min_confidence", d.Detection.MinConfidence)
	v.SetDefault("detection.sample_lines", d.Detection.SampleLines)
	v.SetDefault("parsing.sample_size", d.Parsing.SampleSize)
	v.SetDefault("parsing.column_tolerance", d.Parsing.ColumnTolerance)
	v.SetDefault("parsing.single_row_gutter", d.Parsing.SingleRowGutter)
	v.SetDefault("inference.enum_ratio", d.Inference.EnumRatio)
	v.SetDefault("inference.enum_min_samples", d.Inference.EnumMinSamples)
	v.SetDefault("inference.enum_max_candidates", d.Inference.EnumMaxCandidates)
	v.SetDefault("synthesis.key_suffixes", d.Synthesis.KeySuffixes)
	v.SetDefault("synthesis.reference_prefixes", d.Synthesis.ReferencePrefixes)
	v.SetDefault("synthesis.reference_suffixes", d.Synthesis.ReferenceSuffixes)
	v.SetDefault("segmentation.max_boundary_size", d.Segmentation.MaxBoundarySize)
	v.SetDefault("segmentation.prefix_weight", d.Segmentation.PrefixWeight)
	v.SetDefault("overlay.provider", d.Overlay.Provider)
	v.SetDefault("overlay.endpoint", d.Overlay.Endpoint)
	v.SetDefault("overlay.model", d.Overlay.Model)
	v.SetDefault("overlay.api_key", "")
	v.SetDefault("overlay.file", "")
	v.SetDefault("overlay.timeout", d.Overlay.Timeout)
	v.SetDefault("overlay.rate_per_sec", d.Overlay.RatePerSec)
	v.SetDefault("overlay.burst", d.Overlay.Burst)
	v.SetDefault("overlay.temperature", d.Overlay.Temperature)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_dir", d.Logging.OutputDir)
	v.SetDefault("logging.max_files", d.Logging.MaxFiles)
	v.SetDefault("logging.colors", d.Logging.Colors)
}

// Load reads the optional config file, applies environment overrides and unmarshals
// into a validated Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every threshold is in range
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Detection.MinConfidence <= 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be in (0,1], got %v", c.Detection.MinConfidence)
	}
	if c.Parsing.SampleSize < 1 {
		return fmt.Errorf("parsing.sample_size must be positive, got %d", c.Parsing.SampleSize)
	}
	if c.Parsing.ColumnTolerance < 0 || c.Parsing.ColumnTolerance >= 1 {
		return fmt.Errorf("parsing.column_tolerance must be in [0,1), got %v", c.Parsing.ColumnTolerance)
	}
	if c.Parsing.SingleRowGutter < 1 {
		return fmt.Errorf("parsing.single_row_gutter must be positive, got %d", c.Parsing.SingleRowGutter)
	}
	if c.Inference.EnumRatio <= 0 || c.Inference.EnumRatio > 1 {
		return fmt.Errorf("inference.enum_ratio must be in (0,1], got %v", c.Inference.EnumRatio)
	}
	if c.Inference.EnumMinSamples < 1 || c.Inference.EnumMaxCandidates < 1 {
		return fmt.Errorf("inference enum sample and candidate limits must be positive")
	}
	if c.Segmentation.MaxBoundarySize < 1 {
		return fmt.Errorf("segmentation.max_boundary_size must be positive, got %d", c.Segmentation.MaxBoundarySize)
	}
	if c.Segmentation.PrefixWeight < 0 {
		return fmt.Errorf("segmentation.prefix_weight must not be negative")
	}
	switch c.Overlay.Provider {
	case "", overlay.ProviderOpenAI, overlay.ProviderFile:
	default:
		return fmt.Errorf("unknown overlay provider: %s", c.Overlay.Provider)
	}
	if c.Overlay.Provider == overlay.ProviderFile && c.Overlay.File == "" {
		return fmt.Errorf("overlay.file is required for the file provider")
	}
	if _, err := time.ParseDuration(c.Overlay.Timeout); err != nil {
		return fmt.Errorf("invalid overlay.timeout %q: %w", c.Overlay.Timeout, err)
	}
	if err := c.LoggerConfig().Validate(); err != nil {
		return fmt.Errorf("invalid logging section: %w", err)
	}
	return nil
}

// ParseTimeout parses the overlay timeout into a time.Duration
func (c *OverlayConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// DetectOptions converts the detection section
func (c *Config) DetectOptions() detect.Options {
	return detect.Options{
		MinConfidence: c.Detection.MinConfidence,
		SampleLines:   c.Detection.SampleLines,
	}
}

// ParseOptions converts the parsing section
func (c *Config) ParseOptions() parsers.Options {
	return parsers.Options{
		SampleSize:      c.Parsing.SampleSize,
		ColumnTolerance: c.Parsing.ColumnTolerance,
		SingleRowGutter: c.Parsing.SingleRowGutter,
	}
}

// InferenceOptions converts the inference section
func (c *Config) InferenceOptions() inference.Options {
	return inference.Options{
		EnumRatio:         c.Inference.EnumRatio,
		EnumMinSamples:    c.Inference.EnumMinSamples,
		EnumMaxCandidates: c.Inference.EnumMaxCandidates,
	}
}

// SchemaOptions converts the synthesis section
func (c *Config) SchemaOptions() schema.Options {
	return schema.Options{
		KeySuffixes:       c.Synthesis.KeySuffixes,
		ReferencePrefixes: c.Synthesis.ReferencePrefixes,
		ReferenceSuffixes: c.Synthesis.ReferenceSuffixes,
	}
}

// SegmentOptions converts the segmentation section
func (c *Config) SegmentOptions() segment.Options {
	return segment.Options{
		MaxBoundarySize: c.Segmentation.MaxBoundarySize,
		PrefixWeight:    c.Segmentation.PrefixWeight,
	}
}

// OverlayOptions converts the overlay section
func (c *Config) OverlayOptions() overlay.Options {
	return overlay.Options{
		Provider:    c.Overlay.Provider,
		Endpoint:    c.Overlay.Endpoint,
		Model:       c.Overlay.Model,
		APIKey:      c.Overlay.APIKey,
		File:        c.Overlay.File,
		Timeout:     c.Overlay.ParseTimeout(),
		RatePerSec:  c.Overlay.RatePerSec,
		Burst:       c.Overlay.Burst,
		Temperature: c.Overlay.Temperature,
	}
}

// LoggerConfig converts the logging section
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	return &logging.LoggerConfig{
		Level:     logging.LogLevel(strings.ToLower(c.Logging.Level)),
		Format:    logging.LogFormat(strings.ToLower(c.Logging.Format)),
		OutputDir: c.Logging.OutputDir,
		MaxFiles:  c.Logging.MaxFiles,
		Timestamp: true,
		Colors:    c.Logging.Colors,
	}
}
