package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 10000, cfg.Scheduler.MaxBacktrackSteps)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.TimeBudget)
	assert.Equal(t, 60, cfg.Scheduler.SlotMinutes)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SCHEDULER_TIME_BUDGET", "1500ms")
	t.Setenv("SCHEDULER_SLOT_MINUTES", "45")
	t.Setenv("SCHEDULER_PROPOSAL_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ENABLE_EXPORTS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Scheduler.TimeBudget)
	assert.Equal(t, 45, cfg.Scheduler.SlotMinutes)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Exports.Enabled)
}
