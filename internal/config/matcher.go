package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MatcherConfig tunes candidate adoption. It is hot-reloaded from matcher.yml.
type MatcherConfig struct {
	SimilarityThreshold float64           `mapstructure:"similarityThreshold"`
	SourceChains        map[string]string `mapstructure:"sourceChains"`
	AdoptUnidentified   bool              `mapstructure:"adoptUnidentified"`
	Workers             int               `mapstructure:"workers"`
	BatchSize           int               `mapstructure:"batchSize"`
	PollInterval        time.Duration     `mapstructure:"pollInterval"`
	RunTimeout          time.Duration     `mapstructure:"runTimeout"`
	WorkerEnabled       bool              `mapstructure:"workerEnabled"`
}

func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		SimilarityThreshold: 0.55,
		SourceChains:        map[string]string{},
		AdoptUnidentified:   false,
		Workers:             4,
		BatchSize:           200,
		PollInterval:        time.Minute,
		RunTimeout:          5 * time.Minute,
		WorkerEnabled:       true,
	}
}

// ChainFor returns the configured chain name for an integration source, or
// the source itself when no override exists.
func (c MatcherConfig) ChainFor(source string) string {
	key := strings.ToLower(strings.TrimSpace(source))
	for k, v := range c.SourceChains {
		if strings.ToLower(strings.TrimSpace(k)) == key && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(source)
}

type MatcherConfigHolder struct {
	current atomic.Value // holds MatcherConfig
}

// NewStaticMatcherConfigHolder returns a holder that never reloads.
func NewStaticMatcherConfigHolder(cfg MatcherConfig) *MatcherConfigHolder {
	holder := &MatcherConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewMatcherConfigHolder(log *zap.Logger) (*MatcherConfigHolder, error) {
	log = log.Named("matcher.config")
	v := viper.New()

	v.SetConfigName("matcher")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pricewatch")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultMatcherConfig()
	v.SetDefault("matcher.similarityThreshold", defaults.SimilarityThreshold)
	v.SetDefault("matcher.sourceChains", defaults.SourceChains)
	v.SetDefault("matcher.adoptUnidentified", defaults.AdoptUnidentified)
	v.SetDefault("matcher.workers", defaults.Workers)
	v.SetDefault("matcher.batchSize", defaults.BatchSize)
	v.SetDefault("matcher.pollInterval", defaults.PollInterval)
	v.SetDefault("matcher.runTimeout", defaults.RunTimeout)
	v.SetDefault("matcher.workerEnabled", defaults.WorkerEnabled)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg MatcherConfig
	if err := v.UnmarshalKey("matcher", &cfg); err != nil {
		return nil, err
	}
	if err := validateMatcherConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticMatcherConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated MatcherConfig
		if err := v.UnmarshalKey("matcher", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateMatcherConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *MatcherConfigHolder) Get() MatcherConfig {
	return h.current.Load().(MatcherConfig)
}

func validateMatcherConfig(cfg MatcherConfig) error {
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return errors.New("matcher.similarityThreshold must be within [0, 1]")
	}
	if cfg.Workers <= 0 {
		return errors.New("matcher.workers must be positive")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("matcher.batchSize must be positive")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("matcher.pollInterval must be positive")
	}
	return nil
}
