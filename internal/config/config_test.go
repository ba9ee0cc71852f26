package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	cfg := Load()

	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "citymap", cfg.JWTIssuer)
	assert.Equal(t, 50.0, cfg.DuplicateRadiusMeters)
	assert.Equal(t, 5, cfg.DailyQuotaDefault)
	assert.Equal(t, int64(100*1024*1024), cfg.PhotoLimitBytes)
	assert.Equal(t, "ZGL", cfg.CaseIDPrefix)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, policy.ResolvedGrace)
	assert.Equal(t, -100, policy.AutoFlagVotes)
	assert.Equal(t, "Europe/Warsaw", policy.Location.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DUPLICATE_RADIUS_METERS", "75.5")
	t.Setenv("DAILY_QUOTA_DEFAULT", "3")
	t.Setenv("RESOLVED_GRACE_HOURS", "48")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("TIMEZONE", "UTC")
	cfg := Load()

	assert.Equal(t, 75.5, cfg.DuplicateRadiusMeters)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsOrigins)
	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 3, policy.DailyQuotaDefault)
	assert.Equal(t, 48*time.Hour, policy.ResolvedGrace)
}

func TestPolicyRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	cases := map[string]string{
		"TIMEZONE":                "Mars/Olympus",
		"DUPLICATE_RADIUS_METERS": "-1",
		"RESOLVED_GRACE_HOURS":    "0",
		"DAILY_QUOTA_DEFAULT":     "-2",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load().Policy()
			assert.Error(t, err)
		})
	}
}

func TestLoadPanicsWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Panics(t, func() { Load() })
}
