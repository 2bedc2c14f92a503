// Package config loads the fabline configuration from file, environment,
// and defaults, and owns global logger setup.
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
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Quality   QualityConfig   `yaml:"quality" mapstructure:"quality"`
	Gen       GenConfig       `yaml:"gen" mapstructure:"gen"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the directory holding the five source CSVs.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// WarehouseConfig configures the artifact store.
type WarehouseConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QualityConfig overrides the quality engine's lookup data. An empty tool
// catalog means the built-in default catalog.
type QualityConfig struct {
	ToolCatalog     []string `yaml:"tool_catalog" mapstructure:"tool_catalog"`
	OutlierSigma    float64  `yaml:"outlier_sigma" mapstructure:"outlier_sigma"`
	MinCompleteness float64  `yaml:"min_completeness" mapstructure:"min_completeness"`
}

// GenConfig configures the synthetic data generator.
type GenConfig struct {
	Jobs            int     `yaml:"jobs" mapstructure:"jobs"`
	Seed            uint64  `yaml:"seed" mapstructure:"seed"`
	MissingRate     float64 `yaml:"missing_rate" mapstructure:"missing_rate"`
	UnknownToolRate float64 `yaml:"unknown_tool_rate" mapstructure:"unknown_tool_rate"`
}

// ServerConfig configures the feature query API.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml, FABLINE_* environment
// variables, and defaults, in that order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FABLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data.dir", "data")
	v.SetDefault("warehouse.driver", "sqlite")
	v.SetDefault("warehouse.dir", "warehouse")
	v.SetDefault("warehouse.path", "warehouse/fabline.db")
	v.SetDefault("quality.outlier_sigma", 3.0)
	v.SetDefault("quality.min_completeness", 95.0)
	v.SetDefault("gen.jobs", 60)
	v.SetDefault("gen.seed", 42)
	v.SetDefault("gen.missing_rate", 0.06)
	v.SetDefault("gen.unknown_tool_rate", 0.03)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
