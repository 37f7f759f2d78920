package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Katapult KatapultConfig `yaml:"katapult" mapstructure:"katapult"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// KatapultConfig holds the job-tracking API credentials and retry policy.
type KatapultConfig struct {
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey             string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMs       int     `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	RateLimitDelaySecs int     `yaml:"rate_limit_delay_secs" mapstructure:"rate_limit_delay_secs"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ExtractConfig configures which jobs are processed and how heights are matched.
type ExtractConfig struct {
	Concurrency int          `yaml:"concurrency" mapstructure:"concurrency"`
	Limit       int          `yaml:"limit" mapstructure:"limit"`
	JobIDs      []string     `yaml:"job_ids" mapstructure:"job_ids"`
	Height      HeightConfig `yaml:"height" mapstructure:"height"`
}

// HeightConfig holds the fixed business values a trace must carry for its
// measured height to be reported.
type HeightConfig struct {
	Company   string `yaml:"company" mapstructure:"company"`
	CableType string `yaml:"cable_type" mapstructure:"cable_type"`
}

// ExportConfig configures the master output files.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// StoreConfig configures the SQLite run log.
type StoreConfig struct {
	Path            string `yaml:"path" mapstructure:"path"`
	ArchivePayloads bool   `yaml:"archive_payloads" mapstructure:"archive_payloads"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Export formats understood by the extract and replay commands.
const (
	FormatShapefile = "shapefile"
	FormatXLSX      = "xlsx"
	FormatGeoJSON   = "geojson"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KATAPULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("katapult.base_url", "https://katapultpro.com/api/v2")
	v.SetDefault("katapult.api_key", "")
	v.SetDefault("katapult.timeout_secs", 60)
	v.SetDefault("katapult.max_attempts", 5)
	v.SetDefault("katapult.retry_delay_ms", 1000)
	v.SetDefault("katapult.rate_limit_delay_secs", 5)
	v.SetDefault("katapult.requests_per_second", 2.0)
	v.SetDefault("extract.concurrency", 1)
	v.SetDefault("extract.limit", 0)
	v.SetDefault("extract.job_ids", []string{})
	v.SetDefault("extract.height.company", "Deeply Digital")
	v.SetDefault("extract.height.cable_type", "Fiber Optic Com")
	v.SetDefault("export.dir", "./workspace")
	v.SetDefault("export.formats", []string{FormatShapefile, FormatXLSX})
	v.SetDefault("store.path", "katapult.db")
	v.SetDefault("store.archive_payloads", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by the given command mode:
// "fetch" (commands that call the API), "offline" (replay and runs).
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "fetch":
		if c.Katapult.APIKey == "" {
			problems = append(problems, "katapult.api_key is required")
		}
		if c.Katapult.BaseURL == "" {
			problems = append(problems, "katapult.base_url is required")
		}
		if c.Katapult.MaxAttempts < 1 {
			problems = append(problems, "katapult.max_attempts must be >= 1")
		}
		if c.Katapult.RequestsPerSecond <= 0 {
			problems = append(problems, "katapult.requests_per_second must be > 0")
		}
		if c.Extract.Concurrency < 1 || c.Extract.Concurrency > 16 {
			problems = append(problems, "extract.concurrency must be between 1 and 16")
		}
	case "offline":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Extract.Limit < 0 {
		problems = append(problems, "extract.limit must be >= 0")
	}
	for _, f := range c.Export.Formats {
		switch f {
		case FormatShapefile, FormatXLSX, FormatGeoJSON:
		default:
			problems = append(problems, "export.formats: unknown format "+f)
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy of the configuration safe to print.
func (c *Config) Redacted() Config {
	out := *c
	if out.Katapult.APIKey != "" {
		out.Katapult.APIKey = "****"
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
