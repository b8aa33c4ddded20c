package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Placeholder credentials written by `config init`. A config still carrying
// them is not ready to send.
const (
	PlaceholderEmail    = "your_email@gmail.com"
	PlaceholderPassword = "your_16_character_app_password"
)

// Generation providers.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Config holds the full application configuration.
type Config struct {
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Company    CompanyConfig    `yaml:"company" mapstructure:"company"`
	Ollama     OllamaConfig     `yaml:"ollama" mapstructure:"ollama"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Send       SendConfig       `yaml:"send" mapstructure:"send"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `yaml:"-" mapstructure:"-"`
}

// EmailConfig holds the SMTP account used to send outreach.
type EmailConfig struct {
	FromEmail    string `yaml:"from_email" mapstructure:"from_email"`
	FromName     string `yaml:"from_name" mapstructure:"from_name"`
	FromPassword string `yaml:"from_password" mapstructure:"from_password"`
	SMTPServer   string `yaml:"smtp_server" mapstructure:"smtp_server"`
	SMTPPort     int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	Security     string `yaml:"security" mapstructure:"security"` // starttls, tls or none
}

// CompanyConfig is the sender's company, used in the signature block.
type CompanyConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Website  string `yaml:"website" mapstructure:"website"`
	Phone    string `yaml:"phone" mapstructure:"phone"`
	Location string `yaml:"location" mapstructure:"location"`
}

// OllamaConfig points at the local text-generation server.
type OllamaConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GenerationConfig tunes the hybrid generation engine.
type GenerationConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	FastTimeoutSecs   int    `yaml:"fast_timeout_secs" mapstructure:"fast_timeout_secs"`
	SlowTimeoutSecs   int    `yaml:"slow_timeout_secs" mapstructure:"slow_timeout_secs"`
	Rounds            int    `yaml:"rounds" mapstructure:"rounds"`
	CircuitThreshold  int    `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs  int    `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	WarmupAttempts    int    `yaml:"warmup_attempts" mapstructure:"warmup_attempts"`
	WarmupTimeoutSecs int    `yaml:"warmup_timeout_secs" mapstructure:"warmup_timeout_secs"`
}

// FastTimeout is the deadline of a TryFast attempt.
func (g GenerationConfig) FastTimeout() time.Duration {
	return time.Duration(g.FastTimeoutSecs) * time.Second
}

// SlowTimeout is the deadline of a TrySlow attempt.
func (g GenerationConfig) SlowTimeout() time.Duration {
	return time.Duration(g.SlowTimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings for the alternate provider.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// BatchConfig configures batch generation.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	WarmPauseMs int `yaml:"warm_pause_ms" mapstructure:"warm_pause_ms"`
}

// SendConfig configures delivery.
type SendConfig struct {
	PauseMs     int `yaml:"pause_ms" mapstructure:"pause_ms"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig configures the history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the review API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var defaults = map[string]any{
	"email.from_email":               PlaceholderEmail,
	"email.from_name":                "",
	"email.from_password":            PlaceholderPassword,
	"email.smtp_server":              "smtp.gmail.com",
	"email.smtp_port":                587,
	"email.security":                 "starttls",
	"company.name":                   "Your Cleaning Company",
	"company.website":                "www.yourcompany.com",
	"company.phone":                  "(555) 123-4567",
	"company.location":               "",
	"ollama.url":                     "http://localhost:11434/api/generate",
	"ollama.model":                   "llama3.2",
	"generation.provider":            ProviderOllama,
	"generation.fast_timeout_secs":   15,
	"generation.slow_timeout_secs":   60,
	"generation.rounds":              1,
	"generation.circuit_threshold":   3,
	"generation.circuit_reset_secs":  60,
	"generation.warmup_attempts":     3,
	"generation.warmup_timeout_secs": 3,
	"anthropic.key":                  "",
	"anthropic.model":                "claude-haiku-4-5",
	"anthropic.max_tokens":           256,
	"anthropic.base_url":             "",
	"batch.concurrency":              1,
	"batch.warm_pause_ms":            1000,
	"send.pause_ms":                  1000,
	"send.timeout_secs":              30,
	"store.driver":                   "sqlite",
	"store.database_url":             "outreach.db",
	"server.port":                    8080,
	"server.allowed_origins":         []string{"*"},
	"log.level":                      "info",
	"log.format":                     "console",
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads configuration from path, or from config.yaml in the working
// directory when path is empty, then applies OUTREACH_* environment
// overrides. A missing config.yaml is not an error.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// Defaults returns the configuration with only built-in defaults applied.
func Defaults() *Config {
	var cfg Config
	_ = newViper().Unmarshal(&cfg) // defaults always decode
	return &cfg
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
