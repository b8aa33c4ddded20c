package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// IsEmailConfigured reports whether the sender account is usable: an address
// containing "@" and a password, neither left at the template placeholder.
func (c *Config) IsEmailConfigured() bool {
	e := c.Email
	if e.FromEmail == "" || e.FromEmail == PlaceholderEmail || !strings.Contains(e.FromEmail, "@") {
		return false
	}
	return e.FromPassword != "" && e.FromPassword != PlaceholderPassword
}

// Validate checks the fields the given mode needs. Modes: generate, send, serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "generate":
		errs = append(errs, c.validateGenerate()...)
	case "send":
		errs = append(errs, c.validateSend()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateSend()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateGenerate() []string {
	var errs []string
	g := c.Generation

	switch g.Provider {
	case ProviderOllama:
		if c.Ollama.URL == "" {
			errs = append(errs, "ollama.url is required")
		}
		if c.Ollama.Model == "" {
			errs = append(errs, "ollama.model is required")
		}
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Anthropic.Model == "" {
			errs = append(errs, "anthropic.model is required")
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Sprintf("generation.provider %q must be ollama, anthropic or none", g.Provider))
	}

	if g.FastTimeoutSecs <= 0 {
		errs = append(errs, "generation.fast_timeout_secs must be > 0")
	}
	if g.SlowTimeoutSecs < g.FastTimeoutSecs {
		errs = append(errs, "generation.slow_timeout_secs must be >= fast_timeout_secs")
	}
	if g.Rounds < 1 || g.Rounds > 3 {
		errs = append(errs, "generation.rounds must be between 1 and 3")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 8 {
		errs = append(errs, "batch.concurrency must be between 1 and 8")
	}
	if c.Batch.WarmPauseMs < 0 {
		errs = append(errs, "batch.warm_pause_ms must be >= 0")
	}

	if c.Company.Name == "" {
		errs = append(errs, "company.name is required")
	}
	if c.Company.Website == "" {
		errs = append(errs, "company.website is required")
	}
	if c.Company.Phone == "" {
		errs = append(errs, "company.phone is required")
	}
	return errs
}

func (c *Config) validateSend() []string {
	var errs []string
	e := c.Email
	if e.FromEmail == "" {
		errs = append(errs, "email.from_email is required")
	}
	if e.FromPassword == "" {
		errs = append(errs, "email.from_password is required")
	}
	if e.SMTPServer == "" {
		errs = append(errs, "email.smtp_server is required")
	}
	if e.SMTPPort <= 0 {
		errs = append(errs, "email.smtp_port must be > 0")
	}
	switch e.Security {
	case "starttls", "tls", "none":
	default:
		errs = append(errs, fmt.Sprintf("email.security %q must be starttls, tls or none", e.Security))
	}
	if c.Send.PauseMs < 0 {
		errs = append(errs, "send.pause_ms must be >= 0")
	}
	return errs
}

// Status summarizes what is configured, for `config show`.
type Status struct {
	ConfigFile      string `json:"config_file"`
	EmailConfigured bool   `json:"email_configured"`
	FromEmail       string `json:"from_email"`
	CompanyName     string `json:"company_name"`
	Provider        string `json:"provider"`
	OllamaURL       string `json:"ollama_url"`
	OllamaModel     string `json:"ollama_model"`
	StoreDriver     string `json:"store_driver"`
}

// Status returns the configuration summary. Secrets are never included.
func (c *Config) Status() Status {
	file := c.File
	if file == "" {
		file = "(defaults)"
	}
	return Status{
		ConfigFile:      file,
		EmailConfigured: c.IsEmailConfigured(),
		FromEmail:       c.Email.FromEmail,
		CompanyName:     c.Company.Name,
		Provider:        c.Generation.Provider,
		OllamaURL:       c.Ollama.URL,
		OllamaModel:     c.Ollama.Model,
		StoreDriver:     c.Store.Driver,
	}
}

func (s Status) String() string {
	email := "not configured"
	if s.EmailConfigured {
		email = "configured (" + s.FromEmail + ")"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "config file: %s\n", s.ConfigFile)
	fmt.Fprintf(&b, "email:       %s\n", email)
	fmt.Fprintf(&b, "company:     %s\n", s.CompanyName)
	fmt.Fprintf(&b, "provider:    %s\n", s.Provider)
	fmt.Fprintf(&b, "ollama:      %s (%s)\n", s.OllamaURL, s.OllamaModel)
	fmt.Fprintf(&b, "store:       %s\n", s.StoreDriver)
	return b.String()
}

// WriteTemplate writes a config file holding the defaults and placeholder
// credentials. It refuses to overwrite an existing file unless force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return eris.Errorf("config: %s already exists", path)
		}
	}

	out, err := yaml.Marshal(Defaults())
	if err != nil {
		return eris.Wrap(err, "config: marshal template")
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return eris.Wrap(err, "config: write template")
	}
	return nil
}
