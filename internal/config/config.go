package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/brandintel/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`

	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string           `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// EngineConfig configures the external analysis engine client.
type EngineConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	AnalyzeDepth   int     `yaml:"analyze_depth" mapstructure:"analyze_depth"`
	RefreshWorkers int     `yaml:"refresh_workers" mapstructure:"refresh_workers"`
}

// ExtractConfig tunes the reconciliation fallback and the social extractor.
type ExtractConfig struct {
	ScalarConfidence float64 `yaml:"scalar_confidence" mapstructure:"scalar_confidence"`
	ListConfidence   float64 `yaml:"list_confidence" mapstructure:"list_confidence"`
	PlatformCatalog  string  `yaml:"platform_catalog" mapstructure:"platform_catalog"`
}

// MonitoringConfig configures the background health checker run by serve.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StuckProcessingMins  int     `yaml:"stuck_processing_mins" mapstructure:"stuck_processing_mins"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the fields required for the given run mode. Modes map to
// subcommands: "serve" needs a listen port, everything else only needs a
// reachable store and engine.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Engine.BaseURL == "" {
		problems = append(problems, "engine.base_url is required")
	}
	if c.Engine.RatePerSecond <= 0 {
		problems = append(problems, "engine.rate_per_second must be > 0")
	}
	if c.Extract.ScalarConfidence < 0 || c.Extract.ScalarConfidence > 1 {
		problems = append(problems, "extract.scalar_confidence must be in [0,1]")
	}
	if c.Extract.ListConfidence < 0 || c.Extract.ListConfidence > 1 {
		problems = append(problems, "extract.list_confidence must be in [0,1]")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "analyze", "poll", "jobs", "refresh", "migrate":
		// No extra requirements beyond the common set.
	default:
		problems = append(problems, "unknown mode "+mode)
	}

	if mode == "refresh" && (c.Engine.RefreshWorkers < 1 || c.Engine.RefreshWorkers > 32) {
		problems = append(problems, "engine.refresh_workers must be between 1 and 32")
	}

	if len(problems) > 0 {
		return eris.New("config invalid: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRANDINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "brandintel.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("engine.base_url", "http://localhost:8600")
	v.SetDefault("engine.timeout_secs", 30)
	v.SetDefault("engine.rate_per_second", 10)
	v.SetDefault("engine.analyze_depth", 2)
	v.SetDefault("engine.refresh_workers", 4)
	v.SetDefault("extract.scalar_confidence", 0.6)
	v.SetDefault("extract.list_confidence", 0.5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stuck_processing_mins", 60)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)

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
