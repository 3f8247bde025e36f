// Package config loads the application configuration from file and
// environment, and initializes the global logger.
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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Model  ModelConfig  `yaml:"model" mapstructure:"model"`
	Solver SolverConfig `yaml:"solver" mapstructure:"solver"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-catalog backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ModelConfig configures the travel-time model.
type ModelConfig struct {
	// Path points at a layered-velocity YAML file. When empty, a uniform
	// half-space with Vp/Vs below is used.
	Path string  `yaml:"path" mapstructure:"path"`
	Vp   float64 `yaml:"vp" mapstructure:"vp"`
	Vs   float64 `yaml:"vs" mapstructure:"vs"`
}

// SolverConfig configures the relocation solver. Fields mirror
// relocate.Options one to one so nothing is defaulted behind the
// caller's back.
type SolverConfig struct {
	Tolerance        float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations    int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Damping          float64 `yaml:"damping" mapstructure:"damping"`
	DampingFactor    float64 `yaml:"damping_factor" mapstructure:"damping_factor"`
	MaxDamping       float64 `yaml:"max_damping" mapstructure:"max_damping"`
	DivergenceLimit  int     `yaml:"divergence_limit" mapstructure:"divergence_limit"`
	MinStationDistKm float64 `yaml:"min_station_dist_km" mapstructure:"min_station_dist_km"`
	RejectOutliers   bool    `yaml:"reject_outliers" mapstructure:"reject_outliers"`
	OutlierThreshold float64 `yaml:"outlier_threshold" mapstructure:"outlier_threshold"`
}

// BatchConfig configures batch relocation.
type BatchConfig struct {
	MaxConcurrentDoublets int `yaml:"max_concurrent_doublets" mapstructure:"max_concurrent_doublets"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DDLOCATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ddlocate.db")
	v.SetDefault("model.vp", 6.0)
	v.SetDefault("model.vs", 3.5)
	v.SetDefault("solver.tolerance", 1e-6)
	v.SetDefault("solver.max_iterations", 30)
	v.SetDefault("solver.damping", 1e-4)
	v.SetDefault("solver.damping_factor", 10.0)
	v.SetDefault("solver.max_damping", 1e6)
	v.SetDefault("solver.divergence_limit", 2)
	v.SetDefault("solver.min_station_dist_km", 1.0)
	v.SetDefault("solver.reject_outliers", false)
	v.SetDefault("solver.outlier_threshold", 3.0)
	v.SetDefault("batch.max_concurrent_doublets", 4)
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
