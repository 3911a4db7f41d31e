package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Schedule, c.Schedule)
	assert.Equal(t, 3, c.Search.Limit)
	assert.True(t, c.Dedup.Enabled)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
schedule:
  daily_at: "08:00"
  timezone: UTC
  pacing: 5s
search:
  limit: 2
oracle:
  model: gemini-2.0-flash
dedup:
  enabled: false
log:
  level: debug
  development: true
`)
	t.Setenv("BATCH_TIME", "")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "08:00", c.Schedule.DailyAt)
	assert.Equal(t, 5*time.Second, c.Schedule.Pacing)
	assert.Equal(t, 2, c.Search.Limit)
	assert.Equal(t, "gemini-2.0-flash", c.Oracle.Model)
	assert.Equal(t, 3, c.Oracle.Concurrency, "unset keys keep defaults")
	assert.False(t, c.Dedup.Enabled)
	assert.True(t, c.Log.Development)
	assert.Equal(t, "smtp.gmail.com", c.SMTP.Server)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
search:
  api_key: from-file
smtp:
  server: smtp.file.example
`)
	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("GOOGLE_CSE_ID", "cse-env")
	t.Setenv("GEMINI_API_KEY", "gemini-env")
	t.Setenv("SENDER_EMAIL", "sender@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
	t.Setenv("SMTP_SERVER", "smtp.env.example")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("BATCH_TIME", "07:45")
	t.Setenv("PREMINDER_DB", "/var/lib/preminder/db.sqlite")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.Search.APIKey)
	assert.Equal(t, "cse-env", c.Search.CSEID)
	assert.Equal(t, "gemini-env", c.Oracle.APIKey)
	assert.Equal(t, "sender@example.com", c.SMTP.User)
	assert.Equal(t, "app-password", c.SMTP.Pass)
	assert.Equal(t, "smtp.env.example", c.SMTP.Server)
	assert.Equal(t, 2525, c.SMTP.Port)
	assert.Equal(t, "07:45", c.Schedule.DailyAt)
	assert.Equal(t, "/var/lib/preminder/db.sqlite", c.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeConfig(t, "schedule: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("SMTP_PORT", "abc")
	_, err = Load("")
	assert.ErrorContains(t, err, "SMTP_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "bad clock", mutate: func(c *Config) { c.Schedule.DailyAt = "25:00" }, errMsg: "invalid time of day"},
		{name: "bad zone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, errMsg: "schedule.timezone"},
		{name: "negative pacing", mutate: func(c *Config) { c.Schedule.Pacing = -time.Second }, errMsg: "pacing"},
		{name: "limit too high", mutate: func(c *Config) { c.Search.Limit = 10 }, errMsg: "search.limit"},
		{name: "no concurrency", mutate: func(c *Config) { c.Oracle.Concurrency = 0 }, errMsg: "oracle.concurrency"},
		{name: "empty db path", mutate: func(c *Config) { c.Database.Path = " " }, errMsg: "database.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tt.errMsg)
		})
	}
}

func TestLocation(t *testing.T) {
	c := Default()
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	c.Schedule.Timezone = "UTC"
	loc, err = c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
