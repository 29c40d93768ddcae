package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost:7233", cfg.TemporalAddress)
	assert.Equal(t, "account-provisioning-queue", cfg.TaskQueue)
	assert.Equal(t, "platform.events", cfg.NotifySuccessTopic)
	assert.Equal(t, "platform.alerts", cfg.NotifyFailureTopic)
	assert.Equal(t, "GATEWAY_BASE_URL", cfg.GatewayBaseURLSecret)
	assert.Equal(t, "client_credentials", cfg.GatewayAuthScheme)
	assert.Equal(t, "ZAR", cfg.WalletCurrency)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "temporal.internal:7233")
	t.Setenv("TASK_QUEUE", "payments-queue")
	t.Setenv("GATEWAY_TENANT_ID", "t1")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "temporal.internal:7233", cfg.TemporalAddress)
	assert.Equal(t, "payments-queue", cfg.TaskQueue)
	assert.Equal(t, "t1", cfg.GatewayTenantID)
}
