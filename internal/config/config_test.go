package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "pledge.broadcasts", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.ProposalTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, "/", cfg.CommandPrefix)
	assert.False(t, cfg.LogJSON)
}

func TestOverridesFromEnv(t *testing.T) {
	t.Setenv("PLEDGE_LISTEN_ADDR", ":9999")
	t.Setenv("PLEDGE_STORE", StoreRedis)
	t.Setenv("PLEDGE_KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("PLEDGE_TTL", "90s")
	t.Setenv("PLEDGE_LOG_JSON", "true")
	t.Setenv("PLEDGE_APPROVER", "mod")

	cfg := LoadFromEnv()

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.ProposalTTL)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "mod", cfg.ApproverID)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("PLEDGE_TTL", "soon")
	t.Setenv("PLEDGE_SWEEP_INTERVAL", "-10s")
	t.Setenv("PLEDGE_LOG_JSON", "yep")

	cfg := LoadFromEnv()

	assert.Equal(t, 5*time.Minute, cfg.ProposalTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.False(t, cfg.LogJSON)
}
