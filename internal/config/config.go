package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Cluster ClusterConfig `yaml:"cluster" mapstructure:"cluster"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig selects where the startup tables are read from.
type DataConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // csv, sqlite or postgres
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	// IncidentsPath, when set, rebuilds the aggregate table from a raw
	// incident export instead of reading the precomputed one.
	IncidentsPath string   `yaml:"incidents_path" mapstructure:"incidents_path"`
	CrimeKeywords []string `yaml:"crime_keywords" mapstructure:"crime_keywords"`
	LoadRetries   int      `yaml:"load_retries" mapstructure:"load_retries"`
}

// ModelConfig configures the count estimator.
type ModelConfig struct {
	Kind             string  `yaml:"kind" mapstructure:"kind"` // linear or http
	ArtifactPath     string  `yaml:"artifact_path" mapstructure:"artifact_path"`
	URL              string  `yaml:"url" mapstructure:"url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst            int     `yaml:"burst" mapstructure:"burst"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ClusterConfig configures the cluster model. An empty path disables
// on-the-fly assignment.
type ClusterConfig struct {
	ModelPath string `yaml:"model_path" mapstructure:"model_path"`
}

// BatchConfig configures batch prediction.
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	Strict              bool     `yaml:"strict" mapstructure:"strict"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. With an empty path
// it looks for an optional config.yaml in the working directory; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("CRIMECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.driver", "csv")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.sqlite_path", "data/crimecast.db")
	v.SetDefault("data.database_url", "")
	v.SetDefault("data.max_conns", 4)
	v.SetDefault("data.incidents_path", "")
	v.SetDefault("data.crime_keywords", []string{"tráfico", "trafico", "trafficking"})
	v.SetDefault("data.load_retries", 3)
	v.SetDefault("model.kind", "linear")
	v.SetDefault("model.artifact_path", "models/linear.yaml")
	v.SetDefault("model.url", "")
	v.SetDefault("model.timeout_secs", 5)
	v.SetDefault("model.rate_per_sec", 20)
	v.SetDefault("model.burst", 5)
	v.SetDefault("model.breaker_failures", 5)
	v.SetDefault("model.breaker_reset_secs", 30)
	v.SetDefault("cluster.model_path", "")
	v.SetDefault("batch.max_concurrency", 8)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.strict", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Data.Driver {
	case "csv":
		if c.Data.Dir == "" && mode != "aggregate" {
			add("data.dir is required for the csv driver")
		}
	case "sqlite":
		if c.Data.SQLitePath == "" {
			add("data.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Data.DatabaseURL == "" {
			add("data.database_url is required for the postgres driver")
		}
	default:
		add("data.driver must be one of csv, sqlite, postgres (got %q)", c.Data.Driver)
	}
	if c.Data.LoadRetries < 1 {
		add("data.load_retries must be at least 1")
	}

	switch c.Model.Kind {
	case "linear":
		if c.Model.ArtifactPath == "" {
			add("model.artifact_path is required for the linear model")
		}
	case "http":
		if c.Model.URL == "" {
			add("model.url is required for the http model")
		}
		if c.Model.TimeoutSecs <= 0 {
			add("model.timeout_secs must be positive")
		}
	default:
		add("model.kind must be one of linear, http (got %q)", c.Model.Kind)
	}

	if c.Batch.MaxConcurrency < 1 || c.Batch.MaxConcurrency > 256 {
		add("batch.max_concurrency must be between 1 and 256")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		add("log.format must be json or console (got %q)", c.Log.Format)
	}

	switch mode {
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			add("server.port must be between 1 and 65535")
		}
	case "import":
		if c.Data.Driver == "csv" {
			add("data.driver must be sqlite or postgres to import")
		}
	case "", "predict", "batch", "rank", "aggregate":
	default:
		add("unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
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
