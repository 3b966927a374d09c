package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.ProposalBackend)
	assert.Equal(t, 10*time.Second, cfg.ExecutionTimeout)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, "multisig.audit", cfg.KafkaAuditTopic)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MULTISIG_ADDR", ":9090")
	t.Setenv("PROPOSAL_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("EXECUTION_TIMEOUT", "2s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendRedis, cfg.ProposalBackend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.ExecutionTimeout)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without database", map[string]string{"PROPOSAL_STORE": "postgres"}},
		{"redis without url", map[string]string{"PROPOSAL_STORE": "redis"}},
		{"unknown backend", map[string]string{"PROPOSAL_STORE": "etcd"}},
		{"lock ttl below execution timeout", map[string]string{
			"PROPOSAL_STORE": "redis", "REDIS_URL": "redis://x", "REDIS_LOCK_TTL": "5s",
		}},
		{"bad duration", map[string]string{"EXECUTION_TIMEOUT": "soon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
