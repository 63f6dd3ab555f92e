package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(dir, "sub", DefaultDBName), cfg.DBPath)
	assert.Equal(t, "ongoing", cfg.DefaultFilter)
	assert.Equal(t, " ", cfg.Keys.Toggle)
	assert.True(t, cfg.Email.DryRun)

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreateReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	body := `
db_path = "/var/lib/studyhub/tasks.db"
default_filter = "missed"

[theme]
missed = "#FF00FF"

[email]
smtp_host = "smtp.example.edu"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/studyhub/tasks.db", cfg.DBPath)
	assert.Equal(t, "missed", cfg.DefaultFilter)
	assert.Equal(t, "#FF00FF", cfg.Theme.Missed)
	assert.Equal(t, "#22C55E", cfg.Theme.Completed)
	assert.Equal(t, "smtp.example.edu", cfg.Email.SMTPHost)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, filepath.Join(dir, DefaultLogName), cfg.LogPath)
}

func TestLoadOrCreateRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("db_path = ["), 0o644))
	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STUDYHUB_SMTP_PASSWORD=s3cret\n"), 0o600))
	t.Setenv("STUDYHUB_SMTP_USER", "mailer")
	t.Setenv("STUDYHUB_SMTP_PASSWORD", "")
	os.Unsetenv("STUDYHUB_SMTP_PASSWORD")
	t.Cleanup(func() { os.Unsetenv("STUDYHUB_SMTP_PASSWORD") })

	cfg := defaultConfig()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "mailer", cfg.Email.SMTPUser)
	assert.Equal(t, "s3cret", cfg.Email.SMTPPassword)

	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestResolveConfigPathEnv(t *testing.T) {
	t.Setenv("STUDYHUB_CONFIG", "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ResolveConfigPath())
}
