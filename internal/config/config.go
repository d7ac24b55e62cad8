// Package config loads application configuration from a YAML file and the
// environment, and owns global logger setup.
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
	Map    MapConfig    `yaml:"map" mapstructure:"map"`
	Census CensusConfig `yaml:"census" mapstructure:"census"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the population database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// MapConfig configures the feature index: data files and the projection
// viewport screen queries run through.
type MapConfig struct {
	TractShapefile string  `yaml:"tract_shapefile" mapstructure:"tract_shapefile"`
	SampleFile     string  `yaml:"sample_file" mapstructure:"sample_file"`
	WindowsFile    string  `yaml:"windows_file" mapstructure:"windows_file"`
	CenterLng      float64 `yaml:"center_lng" mapstructure:"center_lng"`
	CenterLat      float64 `yaml:"center_lat" mapstructure:"center_lat"`
	Zoom           float64 `yaml:"zoom" mapstructure:"zoom"`
	Width          float64 `yaml:"width" mapstructure:"width"`
	Height         float64 `yaml:"height" mapstructure:"height"`
}

// CensusConfig configures population lookups.
type CensusConfig struct {
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// EngineConfig configures the analysis controller.
type EngineConfig struct {
	DebounceMillis int `yaml:"debounce_millis" mapstructure:"debounce_millis"`
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

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AIRSHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "airshed.db")
	v.SetDefault("map.windows_file", "windows.yaml")
	v.SetDefault("map.center_lng", -98.5795)
	v.SetDefault("map.center_lat", 39.8283)
	v.SetDefault("map.zoom", 4)
	v.SetDefault("map.width", 1024)
	v.SetDefault("map.height", 768)
	v.SetDefault("census.cache_ttl_hours", 24)
	v.SetDefault("engine.debounce_millis", 750)
	v.SetDefault("server.port", 8080)
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

// Validate checks the fields the given run mode depends on. Modes: analyze,
// serve, loadpop.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze", "serve":
		if c.Map.TractShapefile == "" {
			problems = append(problems, "map.tract_shapefile is required")
		}
		if c.Map.SampleFile == "" {
			problems = append(problems, "map.sample_file is required")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "loadpop":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if c.Census.CacheTTLHours <= 0 {
		problems = append(problems, "census.cache_ttl_hours must be > 0")
	}
	if c.Engine.DebounceMillis < 0 {
		problems = append(problems, "engine.debounce_millis must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
