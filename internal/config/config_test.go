package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "outreach.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ProviderOllama, cfg.Generation.Provider)
	assert.Equal(t, 15*time.Second, cfg.Generation.FastTimeout())
	assert.Equal(t, 60*time.Second, cfg.Generation.SlowTimeout())
	assert.Equal(t, 1, cfg.Generation.Rounds)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.Equal(t, 1000, cfg.Batch.WarmPauseMs)
	assert.Equal(t, 1000, cfg.Send.PauseMs)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Ollama.URL)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.File)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
email:
  from_email: sales@brightclean.com
  from_password: abcdabcdabcdabcd
company:
  name: Bright Clean
  phone: "(612) 555-0100"
ollama:
  model: mistral
generation:
  fast_timeout_secs: 20
  slow_timeout_secs: 45
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sales@brightclean.com", cfg.Email.FromEmail)
	assert.Equal(t, "Bright Clean", cfg.Company.Name)
	assert.Equal(t, "(612) 555-0100", cfg.Company.Phone)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, 20*time.Second, cfg.Generation.FastTimeout())
	assert.Equal(t, 45*time.Second, cfg.Generation.SlowTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPServer)
	assert.NotEmpty(t, cfg.File)
	assert.True(t, cfg.IsEmailConfigured())
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outreach.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store:\n  driver: postgres\n"), 0o644))

	t.Setenv("OUTREACH_STORE_DRIVER", "sqlite")
	t.Setenv("OUTREACH_EMAIL_FROM_PASSWORD", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "from-env", cfg.Email.FromPassword)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}

func TestIsEmailConfigured(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     bool
	}{
		{"configured", "sales@brightclean.com", "abcdabcdabcdabcd", true},
		{"placeholder address", PlaceholderEmail, "abcdabcdabcdabcd", false},
		{"placeholder password", "sales@brightclean.com", PlaceholderPassword, false},
		{"no at sign", "sales.brightclean.com", "pw", false},
		{"empty password", "sales@brightclean.com", "", false},
		{"empty address", "", "pw", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Email.FromEmail = tt.email
			cfg.Email.FromPassword = tt.password
			assert.Equal(t, tt.want, cfg.IsEmailConfigured())
		})
	}
}

func TestDefaultsNotEmailConfigured(t *testing.T) {
	assert.False(t, Defaults().IsEmailConfigured())
}

func TestValidateGenerate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate("generate"))

	cfg.Generation.SlowTimeoutSecs = 5
	cfg.Generation.Rounds = 4
	cfg.Batch.Concurrency = 0
	cfg.Company.Phone = ""
	err := cfg.Validate("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow_timeout_secs must be >= fast_timeout_secs")
	assert.Contains(t, err.Error(), "rounds must be between 1 and 3")
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 8")
	assert.Contains(t, err.Error(), "company.phone is required")
}

func TestValidateGenerate_Providers(t *testing.T) {
	cfg := Defaults()
	cfg.Generation.Provider = ProviderAnthropic
	err := cfg.Validate("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-test"
	assert.NoError(t, cfg.Validate("generate"))

	cfg.Generation.Provider = ProviderNone
	cfg.Ollama.URL = ""
	assert.NoError(t, cfg.Validate("generate"))

	cfg.Generation.Provider = "openai"
	assert.Error(t, cfg.Validate("generate"))
}

func TestValidateSend(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate("send"))

	cfg.Email.SMTPServer = ""
	cfg.Email.SMTPPort = 0
	cfg.Email.Security = "ssl"
	err := cfg.Validate("send")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email.smtp_server is required")
	assert.Contains(t, err.Error(), "email.smtp_port must be > 0")
	assert.Contains(t, err.Error(), "email.security")
}

func TestValidateServe(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateStoreAndMode(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("send")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")

	err = Defaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestStatus(t *testing.T) {
	cfg := Defaults()
	s := cfg.Status()
	assert.Equal(t, "(defaults)", s.ConfigFile)
	assert.False(t, s.EmailConfigured)
	assert.Contains(t, s.String(), "email:       not configured")

	cfg.Email.FromEmail = "sales@brightclean.com"
	cfg.Email.FromPassword = "secret-app-password"
	s = cfg.Status()
	assert.True(t, s.EmailConfigured)
	assert.Contains(t, s.String(), "configured (sales@brightclean.com)")
	assert.NotContains(t, s.String(), "secret-app-password")
}

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, WriteTemplate(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderEmail, cfg.Email.FromEmail)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.False(t, cfg.IsEmailConfigured())

	err = WriteTemplate(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.NoError(t, WriteTemplate(path, true))
}
