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
	Edgar  EdgarConfig  `yaml:"edgar" mapstructure:"edgar"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Stitch StitchConfig `yaml:"stitch" mapstructure:"stitch"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// EdgarConfig holds the SEC identity used on outbound requests. EDGAR
// rejects anonymous clients, so Identity must carry a name and email.
type EdgarConfig struct {
	Identity string `yaml:"identity" mapstructure:"identity"`
}

// CacheConfig configures the on-disk submissions cache.
type CacheConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	MaxAgeHours int    `yaml:"max_age_hours" mapstructure:"max_age_hours"`
}

// SourceConfig configures local filing sources.
type SourceConfig struct {
	// TarDirs lists directories scanned for datamule tar archives.
	TarDirs []string `yaml:"tar_dirs" mapstructure:"tar_dirs"`
}

// StoreConfig configures the local accession index database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StitchConfig holds defaults for multi-filing statement stitching.
type StitchConfig struct {
	MaxPeriods     int  `yaml:"max_periods" mapstructure:"max_periods"`
	Standardize    bool `yaml:"standardize" mapstructure:"standardize"`
	OptimalPeriods bool `yaml:"optimal_periods" mapstructure:"optimal_periods"`
}

// FetchConfig configures HTTP download behavior.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
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
	v.SetEnvPrefix("EDGAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.dir", ".edgar-cache")
	v.SetDefault("cache.max_age_hours", 24)
	v.SetDefault("store.path", ".edgar-cache/index.db")
	v.SetDefault("stitch.max_periods", 8)
	v.SetDefault("stitch.standardize", true)
	v.SetDefault("stitch.optimal_periods", true)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
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

// Validate checks the settings a remote fetch requires. Local parsing works
// without an identity; anything that talks to sec.gov does not.
func (c *Config) Validate(remote bool) error {
	var problems []string

	if remote && strings.TrimSpace(c.Edgar.Identity) == "" {
		problems = append(problems, "edgar.identity is required for remote fetches (set EDGAR_IDENTITY)")
	}
	if c.Stitch.MaxPeriods < 1 {
		problems = append(problems, "stitch.max_periods must be >= 1")
	}
	if c.Fetch.MaxRetries < 0 {
		problems = append(problems, "fetch.max_retries must be >= 0")
	}
	if c.Cache.MaxAgeHours < 1 {
		problems = append(problems, "cache.max_age_hours must be >= 1")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
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
