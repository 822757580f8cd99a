// Package config provides configuration management for the trade journal.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"trade-journal/internal/alerts"
	"trade-journal/internal/cache"
	"trade-journal/internal/discipline"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
	"trade-journal/internal/session"
	"trade-journal/internal/tilt"
)

// FileName is the configuration file name without extension.
const FileName = "config"

// Config holds all application configuration.
type Config struct {
	// Timezone is the IANA zone sessions and kill zones are expressed in.
	// Empty classifies times in their own wall clock.
	Timezone string            `mapstructure:"timezone"`
	Log      logging.LogConfig `mapstructure:"log"`
	Store    StoreConfig       `mapstructure:"store"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Engine   EngineConfig      `mapstructure:"engine"`
	Sessions []WindowConfig    `mapstructure:"sessions"`
	Zones    []WindowConfig    `mapstructure:"zones"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig holds metrics memoization configuration.
type CacheConfig struct {
	// Enabled adds the Redis tier behind the in-process memo.
	Enabled       bool              `mapstructure:"enabled"`
	MemoryEntries int               `mapstructure:"memory_entries"`
	TTL           time.Duration     `mapstructure:"ttl"`
	Redis         cache.RedisConfig `mapstructure:"redis"`
}

// EngineConfig holds the analytics and alert engine tunables.
type EngineConfig struct {
	AlertInterval    int              `mapstructure:"alert_interval"`
	LessonsMinLength int              `mapstructure:"lessons_min_length"`
	Workers          int              `mapstructure:"workers"` // 0 = NumCPU
	Bands            discipline.Bands `mapstructure:"bands"`
	TiltWeights      tilt.Weights     `mapstructure:"tilt_weights"`
	RCaps            tilt.RCaps       `mapstructure:"r_caps"`
}

// WindowConfig is a named time-of-day window in "HH:MM" form.
type WindowConfig struct {
	Name  string `mapstructure:"name"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing file
// is replaced by the commented template before loading.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, FileName, cfg); err != nil {
		return nil, fmt.Errorf("loading %s.toml: %w", FileName, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Path returns the configuration file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, FileName+".toml")
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper, configDir string) {
	logCfg := logging.DefaultLogConfig()
	v.SetDefault("timezone", "UTC")
	v.SetDefault("log.level", logCfg.Level)
	v.SetDefault("log.console", logCfg.Console)
	v.SetDefault("log.file", logCfg.File)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "journal.log"))
	v.SetDefault("log.max_size", logCfg.MaxSize)
	v.SetDefault("log.max_backups", logCfg.MaxBackups)
	v.SetDefault("log.max_age", logCfg.MaxAge)

	v.SetDefault("store.path", filepath.Join(configDir, "journal.db"))

	redisCfg := cache.DefaultRedisConfig()
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.memory_entries", 10000)
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.redis.address", redisCfg.Address)
	v.SetDefault("cache.redis.db", redisCfg.DB)
	v.SetDefault("cache.redis.pool_size", redisCfg.PoolSize)
	v.SetDefault("cache.redis.prefix", redisCfg.Prefix)
	v.SetDefault("cache.redis.breaker.failure_threshold", redisCfg.Breaker.FailureThreshold)
	v.SetDefault("cache.redis.breaker.success_threshold", redisCfg.Breaker.SuccessThreshold)
	v.SetDefault("cache.redis.breaker.cooldown", redisCfg.Breaker.Cooldown)

	bands := discipline.DefaultBands()
	weights := tilt.DefaultWeights()
	caps := tilt.DefaultRCaps()
	v.SetDefault("engine.alert_interval", alerts.DefaultPeriodicInterval)
	v.SetDefault("engine.lessons_min_length", metrics.DefaultConfig().LessonsMinLength)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.bands.green", bands.Green)
	v.SetDefault("engine.bands.yellow", bands.Yellow)
	v.SetDefault("engine.tilt_weights.score", weights.Score)
	v.SetDefault("engine.tilt_weights.sentiment", weights.Sentiment)
	v.SetDefault("engine.tilt_weights.custom_field", weights.CustomField)
	v.SetDefault("engine.tilt_weights.realized_r", weights.RealizedR)
	v.SetDefault("engine.tilt_weights.outcome", weights.Outcome)
	v.SetDefault("engine.tilt_weights.pnl", weights.PnL)
	v.SetDefault("engine.r_caps.pivot", caps.Pivot)
	v.SetDefault("engine.r_caps.upper", caps.Upper)
	v.SetDefault("engine.r_caps.lower", caps.Lower)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADE_JOURNAL_DB"); v != "" {
		cfg.Store.Path = v
	}

	// Naming a Redis server implies using it
	if v := os.Getenv("TRADE_JOURNAL_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Address = v
		cfg.Cache.Enabled = true
	}

	if v := os.Getenv("TRADE_JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return invalid("store.path must be set")
	}
	if _, err := c.Location(); err != nil {
		return invalid("timezone %q: %v", c.Timezone, err)
	}

	// Cache
	if c.Cache.MemoryEntries < 0 {
		return invalid("cache.memory_entries must be non-negative")
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl must be non-negative")
	}
	if c.Cache.Enabled && c.Cache.Redis.Address == "" {
		return invalid("cache.redis.address must be set when the cache is enabled")
	}

	// Engine
	e := c.Engine
	if e.AlertInterval < 1 {
		return invalid("engine.alert_interval must be at least 1")
	}
	if e.LessonsMinLength < 0 {
		return invalid("engine.lessons_min_length must be non-negative")
	}
	if e.Workers < 0 {
		return invalid("engine.workers must be non-negative")
	}
	if e.Bands.Yellow < 0 || e.Bands.Green > 100 || e.Bands.Yellow > e.Bands.Green {
		return invalid("engine.bands must satisfy 0 <= yellow <= green <= 100")
	}
	if sum := e.TiltWeights.Sum(); math.Abs(sum-1) > 0.01 {
		return invalid("engine.tilt_weights must sum to 1 (got %.3f)", sum)
	}
	if !(e.RCaps.Lower < e.RCaps.Pivot && e.RCaps.Pivot < e.RCaps.Upper) {
		return invalid("engine.r_caps must satisfy lower < pivot < upper")
	}

	// Windows
	if _, err := windows(c.Sessions); err != nil {
		return invalid("sessions: %v", err)
	}
	if _, err := windows(c.Zones); err != nil {
		return invalid("zones: %v", err)
	}
	return nil
}

func windows(cfgs []WindowConfig) ([]session.Window, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	out := make([]session.Window, 0, len(cfgs))
	for i, wc := range cfgs {
		if wc.Name == "" {
			return nil, fmt.Errorf("window %d has no name", i)
		}
		w, err := session.NewWindow(wc.Name, wc.Start, wc.End)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Location returns the configured timezone, or nil for wall-clock
// classification.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Classifier builds the session classifier. Empty tables select the
// built-in forex sessions and kill zones.
func (c *Config) Classifier() (*session.Classifier, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	sessions, err := windows(c.Sessions)
	if err != nil {
		return nil, err
	}
	zones, err := windows(c.Zones)
	if err != nil {
		return nil, err
	}
	return session.NewClassifier(sessions, zones, loc), nil
}

// MetricsConfig builds the metrics engine configuration.
func (c *Config) MetricsConfig() (metrics.Config, error) {
	classifier, err := c.Classifier()
	if err != nil {
		return metrics.Config{}, err
	}
	mc := metrics.DefaultConfig()
	mc.Bands = c.Engine.Bands
	mc.LessonsMinLength = c.Engine.LessonsMinLength
	mc.TiltWeights = c.Engine.TiltWeights
	mc.RCaps = c.Engine.RCaps
	mc.Classifier = classifier
	mc.Workers = c.Engine.Workers
	return mc, nil
}

// AlertOptions returns the alert engine options.
func (c *Config) AlertOptions(logger zerolog.Logger) []alerts.Option {
	return []alerts.Option{
		alerts.WithPeriodicInterval(c.Engine.AlertInterval),
		alerts.WithLogger(logger),
	}
}

// NewMemo builds the metrics memo: an in-process tier, followed by Redis when
// the cache is enabled. The returned close function releases the Redis
// connection. A nil memo disables memoization.
func (c *Config) NewMemo(logger zerolog.Logger) (metrics.Memo, func() error) {
	noop := func() error { return nil }

	var tiers []cache.Memo
	if c.Cache.MemoryEntries > 0 {
		tiers = append(tiers, cache.NewMemoryMemo(c.Cache.TTL, c.Cache.MemoryEntries))
	}

	closeFn := noop
	if c.Cache.Enabled {
		redisCfg := c.Cache.Redis
		if redisCfg.TTL == 0 {
			redisCfg.TTL = c.Cache.TTL
		}
		rm := cache.NewRedisMemo(redisCfg, logger)
		tiers = append(tiers, rm)
		closeFn = rm.Close
	}

	if len(tiers) == 0 {
		return nil, closeFn
	}
	return cache.NewTiered(tiers...), closeFn
}
