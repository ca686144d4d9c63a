package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlannerAndProposerSettings(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("PLANNER_HORIZON_WEEKS", "3")
	t.Setenv("PLANNER_CACHE_TTL", "not-a-duration")
	t.Setenv("PROPOSER_MODELS", "fast, , careful ")
	t.Setenv("PROPOSER_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Planner.HorizonWeeks)
	assert.Equal(t, 12, cfg.Planner.MaxHorizonWeeks)
	assert.Equal(t, 15*time.Minute, cfg.Planner.CacheTTL)
	assert.Equal(t, []string{"fast", "careful"}, cfg.Proposer.Models)
	assert.Equal(t, 5*time.Second, cfg.Proposer.Timeout)
	assert.Equal(t, 3, cfg.Proposer.MaxAttempts)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
}
