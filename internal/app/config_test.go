package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, 128, cfg.Stream.QueueDepth)
	require.Equal(t, "intake-secret", cfg.Intake.Token)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "finware", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 64, cfg.Stream.QueueDepth)
	require.Empty(t, cfg.Intake.Token)
	require.Zero(t, cfg.Maintenance.RetentionDays, "pruning must be disabled unless configured")
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, "notify", cfg.Auth.JWT.Issuer)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Error(t, cfg.Validate(), "missing jwt secret must be rejected")

	cfg.Auth.JWT.Secret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Stream.QueueDepth = 0
	require.Error(t, cfg.Validate())
}

func TestDatabaseConfigAdapter(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "Postgres",
		Postgres: DBAuthConfig{
			Host:     " db.example.com ",
			Port:     5432,
			Database: "notify",
			Username: "svc",
			Password: "pw",
		},
	}

	converted := cfg.DatabaseConfig()
	require.Equal(t, "postgres", converted.Driver)
	require.Equal(t, "db.example.com", converted.Host)
	require.Equal(t, 5432, converted.Port)
	require.Equal(t, "notify", converted.Name)
	require.Equal(t, "svc", converted.User)
	require.Equal(t, "pw", converted.Password)

	sqlite := DatabaseConfig{Path: "./data/test.sqlite"}.DatabaseConfig()
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Equal(t, "./data/test.sqlite", sqlite.Path)
}

func TestJWTServiceConfigAdapter(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: " secret ", Issuer: "finware", TTL: time.Hour}}
	adapted := cfg.JWTServiceConfig()
	require.Equal(t, "secret", adapted.Secret)
	require.Equal(t, "finware", adapted.Issuer)
	require.Equal(t, time.Hour, adapted.AccessTokenTTL)
}
