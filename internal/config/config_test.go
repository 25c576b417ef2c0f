package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/catalog.csv", cfg.CatalogPath)
	assert.Empty(t, cfg.DatabaseURL)

	rules := cfg.AuctionRules()
	def := engine.DefaultRules()
	assert.Equal(t, def.TeamCount, rules.TeamCount)
	assert.Equal(t, def.Budget, rules.Budget)
	assert.Equal(t, def.RosterCap, rules.RosterCap)
	assert.Equal(t, def.SetCount, rules.SetCount)
	assert.Equal(t, def.Tiers, rules.Tiers)
	assert.Equal(t, def.MaxStep, rules.MaxStep)
	assert.Equal(t, 12, rules.Synergy.Pair("dive", "engage"))
	assert.Equal(t, -10, rules.Synergy.Pair("splitpush", "protect"))
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("TEAM_COUNT", "8")
	t.Setenv("TEAM_BUDGET", "50_000_000")
	t.Setenv("ROSTER_CAP", "5")
	t.Setenv("TEAM_NAMES", "a, b,c,d,e,f,g,h")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Addr)
	rules := cfg.AuctionRules()
	assert.Equal(t, 8, rules.TeamCount)
	assert.Equal(t, int64(50_000_000), rules.Budget)
	assert.Equal(t, 5, rules.RosterCap)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, rules.TeamNames)
}

func TestFromEnv_BadNumber(t *testing.T) {
	t.Setenv("ROSTER_CAP", "eight")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "ROSTER_CAP")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"seven teams", map[string]string{"TEAM_COUNT": "7"}, "team count"},
		{"names mismatch", map[string]string{"TEAM_NAMES": "a,b"}, "TEAM_NAMES"},
		{"zero budget", map[string]string{"TEAM_BUDGET": "0"}, "budget"},
		{"no db conns", map[string]string{"DB_MAX_CONNS": "0"}, "DB_MAX_CONNS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := FromEnv()
			require.NoError(t, err)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoadRules_FileWithEnvSubstitution(t *testing.T) {
	t.Setenv("ENGAGE_BONUS", "20")
	path := writeTempFile(t, `
increments:
  tiers:
    - below: 1000
      step: 10
  max_step: 50
synergy:
  positive:
    Pick-Engage: ${ENGAGE_BONUS}
  negative:
    poke-dive: 3
`)
	t.Setenv("RULES_PATH", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	rules := cfg.AuctionRules()
	assert.Equal(t, []engine.Tier{{Below: 1000, Step: 10}}, rules.Tiers)
	assert.Equal(t, int64(10), rules.Increment(999))
	assert.Equal(t, int64(50), rules.Increment(1000))
	assert.Equal(t, 20, rules.Synergy.Positive["engage-pick"])
	assert.Equal(t, -3, rules.Synergy.Pair("dive", "poke"))
}

func TestLoadRules_Errors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read rules file")

	_, err = parseRules([]byte("synergy:\n  positive:\n    engage: 3\n"))
	assert.ErrorContains(t, err, "bad pair key")

	_, err = parseRules([]byte("synergy:\n  positive:\n    a-b: 1\n    B-A: 2\n"))
	assert.ErrorContains(t, err, "listed twice")
}
