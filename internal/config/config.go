package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"citymap-backend-go/internal/services"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	JWTSecret             string
	JWTIssuer             string
	AccessTTLSeconds      int64
	Port                  string
	CorsOrigins           []string
	LogDir                string
	LogRetentionDays      int
	LogLevel              string
	Timezone              string
	DuplicateRadiusMeters float64
	DailyQuotaDefault     int
	PhotoLimitBytes       int64
	PhotoMaxUploadBytes   int64
	ResolvedGraceHours    int
	PendingExpiryDays     int
	DeletedRetentionDays  int
	DefaultBanDays        int
	AutoFlagVotes         int
	VerificationVotes     int
	CaseIDPrefix          string
	PurgeSchedule         string
	MediaStoragePath      string
	MetricsSampleSeconds  int
}

func Load() Config {
	return Config{
		DatabaseURL:           envOr("DATABASE_URL", ""),
		JWTSecret:             mustEnv("JWT_SECRET"),
		JWTIssuer:             envOr("JWT_ISSUER", "citymap"),
		AccessTTLSeconds:      int64(envOrInt("ACCESS_TTL_SECONDS", 14400)),
		Port:                  envOr("PORT", "8080"),
		CorsOrigins:           parseCSV(envOr("CORS_ORIGINS", "")),
		LogDir:                envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:      envOrInt("LOG_RETENTION_DAYS", 7),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		Timezone:              envOr("TIMEZONE", "Europe/Warsaw"),
		DuplicateRadiusMeters: envOrFloat("DUPLICATE_RADIUS_METERS", 50),
		DailyQuotaDefault:     envOrInt("DAILY_QUOTA_DEFAULT", 5),
		PhotoLimitBytes:       envOrInt64("PHOTO_LIMIT_BYTES", 100*1024*1024),
		PhotoMaxUploadBytes:   envOrInt64("PHOTO_MAX_UPLOAD_BYTES", 10*1024*1024),
		ResolvedGraceHours:    envOrInt("RESOLVED_GRACE_HOURS", 7*24),
		PendingExpiryDays:     envOrInt("PENDING_EXPIRY_DAYS", 30),
		DeletedRetentionDays:  envOrInt("DELETED_RETENTION_DAYS", 90),
		DefaultBanDays:        envOrInt("DEFAULT_BAN_DAYS", 7),
		AutoFlagVotes:         envOrInt("AUTO_FLAG_VOTES", -100),
		VerificationVotes:     envOrInt("VERIFICATION_VOTES", 50),
		CaseIDPrefix:          envOr("CASE_ID_PREFIX", "ZGL"),
		PurgeSchedule:         envOr("PURGE_SCHEDULE", "@every 1h"),
		MediaStoragePath:      envOr("MEDIA_STORAGE_PATH", "storage/media"),
		MetricsSampleSeconds:  envOrInt("METRICS_SAMPLE_INTERVAL", 15),
	}
}

// Policy converts the configuration into engine policy constants.
func (c Config) Policy() (services.Policy, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return services.Policy{}, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.DuplicateRadiusMeters <= 0 {
		return services.Policy{}, fmt.Errorf("DUPLICATE_RADIUS_METERS must be positive")
	}
	if c.DailyQuotaDefault < 0 || c.PhotoLimitBytes < 0 {
		return services.Policy{}, fmt.Errorf("quota defaults cannot be negative")
	}
	if c.ResolvedGraceHours <= 0 {
		return services.Policy{}, fmt.Errorf("RESOLVED_GRACE_HOURS must be positive")
	}
	return services.Policy{
		DuplicateRadiusMeters: c.DuplicateRadiusMeters,
		DailyQuotaDefault:     c.DailyQuotaDefault,
		PhotoLimitBytes:       c.PhotoLimitBytes,
		ResolvedGrace:         time.Duration(c.ResolvedGraceHours) * time.Hour,
		PendingExpiry:         time.Duration(c.PendingExpiryDays) * 24 * time.Hour,
		DeletedRetention:      time.Duration(c.DeletedRetentionDays) * 24 * time.Hour,
		DefaultBanDuration:    time.Duration(c.DefaultBanDays) * 24 * time.Hour,
		AutoFlagVotes:         c.AutoFlagVotes,
		VerificationVotes:     c.VerificationVotes,
		CaseIDPrefix:          c.CaseIDPrefix,
		Location:              loc,
	}, nil
}

func (c Config) Tokens() services.TokenService {
	return services.TokenService{
		Secret:    []byte(c.JWTSecret),
		Issuer:    c.JWTIssuer,
		AccessTTL: time.Duration(c.AccessTTLSeconds) * time.Second,
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
