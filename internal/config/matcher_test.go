package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherConfigChainFor(t *testing.T) {
	cfg := DefaultMatcherConfig()
	cfg.SourceChains = map[string]string{"Ecoop": "Coop Eesti"}

	assert.Equal(t, "Coop Eesti", cfg.ChainFor("ecoop"))
	assert.Equal(t, "Coop Eesti", cfg.ChainFor(" ECOOP "))
	assert.Equal(t, "selver", cfg.ChainFor("selver"))
}

func TestValidateMatcherConfig(t *testing.T) {
	assert.NoError(t, validateMatcherConfig(DefaultMatcherConfig()))

	cfg := DefaultMatcherConfig()
	cfg.SimilarityThreshold = 1.5
	assert.Error(t, validateMatcherConfig(cfg))

	cfg = DefaultMatcherConfig()
	cfg.Workers = 0
	assert.Error(t, validateMatcherConfig(cfg))

	cfg = DefaultMatcherConfig()
	cfg.BatchSize = -1
	assert.Error(t, validateMatcherConfig(cfg))
}

func TestStaticHolder(t *testing.T) {
	cfg := DefaultMatcherConfig()
	cfg.SimilarityThreshold = 0.7
	holder := NewStaticMatcherConfigHolder(cfg)
	assert.Equal(t, 0.7, holder.Get().SimilarityThreshold)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("DEFAULT_CURRENCY", "eur")

	cfg := Load()
	assert.True(t, cfg.IsSQLite())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.False(t, cfg.Redis.Enabled())
}
