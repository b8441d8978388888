package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 2, cfg.Global.ShutdownTimeoutInSeconds)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultOutputDir, cfg.Export.OutputDir)
	assert.Equal(t, DefaultApplication, cfg.Export.Application)
	assert.Equal(t, int64(DefaultMaxInputBytes), cfg.Export.MaxInputBytes)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, time.Hour, cfg.Session.Lifetime)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, 1, cfg.Tasks.Workers)
	assert.Equal(t, "0 3 * * *", cfg.Cleanup.Schedule)
	assert.Equal(t, 30, cfg.Cleanup.RetentionDays)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EXPORT_OUTPUT_DIR", "/tmp/enex")
	t.Setenv("EXPORT_APPLICATION", "my-converter")
	t.Setenv("AUDIT_ENABLED", "true")
	t.Setenv("SESSION_LIFETIME", "30m")
	t.Setenv("CLEANUP_RETENTION_DAYS", "7")
	t.Setenv("TASKS_ENABLED", "false")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "/tmp/enex", cfg.Export.OutputDir)
	assert.Equal(t, "my-converter", cfg.Export.Application)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Session.Lifetime)
	assert.Equal(t, 7, cfg.Cleanup.RetentionDays)
	assert.False(t, cfg.Tasks.Enabled)
}
