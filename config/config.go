package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderMailgun = "mailgun"
	ProviderSES     = "ses"
	ProviderNoop    = "noop"
)

type Config struct {
	RedisURL    string
	StreamKey   string
	StreamGroup string

	VerificationURL string

	EmailProvider   string
	MailgunAPIBase  string
	MailgunDomain   string
	MailgunAPIKey   string
	MailgunFrom     string
	MailgunSubject  string
	MailgunTemplate string
	AWSRegion       string

	HTTPHost string
	HTTPPort string

	LogLevel  string
	LogFormat string
}

// Load reads the full relay configuration from the environment, optionally
// seeded by a .env file.
func Load() (*Config, error) {
	cfg := LoadBroker()

	cfg.VerificationURL = getEnv("VERIFICATION_URL", "https://2read.online/auth/verificate")

	cfg.EmailProvider = strings.ToLower(getEnv("EMAIL_PROVIDER", ProviderMailgun))
	cfg.MailgunAPIBase = strings.TrimRight(getEnv("MAILGUN_API_BASE", "https://api.eu.mailgun.net/v3"), "/")
	cfg.MailgunDomain = getEnv("MAILGUN_DOMAIN", "2read.online")
	cfg.MailgunAPIKey = os.Getenv("MAILGUN_API_KEY")
	cfg.MailgunFrom = os.Getenv("MAILGUN_FROM")
	cfg.MailgunSubject = getEnv("MAILGUN_SUBJECT", "EMail Verification")
	cfg.MailgunTemplate = os.Getenv("MAILGUN_TEMPLATE")
	cfg.AWSRegion = getEnv("AWS_REGION", "eu-west-1")

	cfg.HTTPHost = getEnv("HTTP_HOST", "0.0.0.0")
	cfg.HTTPPort = getEnv("HTTP_PORT", "8080")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBroker reads only the broker and logging settings. It never fails.
func LoadBroker() *Config {
	_ = godotenv.Load()

	return &Config{
		RedisURL:    getEnv("REDIS_URL", "redis://redis:6379/0"),
		StreamKey:   getEnv("STREAM_KEY", "/auth/login"),
		StreamGroup: getEnv("STREAM_GROUP", "email-verification"),

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Fields returns the configuration as log fields with secrets masked.
func (c *Config) Fields() map[string]interface{} {
	return map[string]interface{}{
		"redis_url":        redactURL(c.RedisURL),
		"stream_key":       c.StreamKey,
		"stream_group":     c.StreamGroup,
		"verification_url": c.VerificationURL,
		"email_provider":   c.EmailProvider,
		"mailgun_api_base": c.MailgunAPIBase,
		"mailgun_domain":   c.MailgunDomain,
		"mailgun_api_key":  mask(c.MailgunAPIKey),
		"mailgun_from":     c.MailgunFrom,
		"mailgun_subject":  c.MailgunSubject,
		"mailgun_template": c.MailgunTemplate,
		"http_addr":        c.HTTPHost + ":" + c.HTTPPort,
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.EmailProvider == ProviderMailgun && c.MailgunAPIKey == "" {
		missing = append(missing, "MAILGUN_API_KEY")
	}
	if c.MailgunFrom == "" {
		missing = append(missing, "MAILGUN_FROM")
	}
	if c.MailgunTemplate == "" {
		missing = append(missing, "MAILGUN_TEMPLATE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.EmailProvider {
	case ProviderMailgun, ProviderSES, ProviderNoop:
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER: %s", c.EmailProvider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
