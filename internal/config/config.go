package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	containerPyAPIURL = "http://lv-pyapi:8080"
	localPyAPIURL     = "http://localhost:8091"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	BaseURL     string

	SessionSecret string
	SessionMaxAge time.Duration

	Google OAuthConfig
	GitHub OAuthConfig
	GitLab OAuthConfig

	PyAPI PyAPIConfig

	RedisURL string

	ChatRateLimitRPS   float64
	ChatRateLimitBurst int

	AccountLinkAttempts int

	SMTP SMTPConfig
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type PyAPIConfig struct {
	URL     string
	Timeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	maxAge, err := time.ParseDuration(getEnv("SESSION_MAX_AGE", "720h"))
	if err != nil {
		maxAge = 30 * 24 * time.Hour
	}

	pyapiTimeout, err := time.ParseDuration(getEnv("PYAPI_TIMEOUT", "60s"))
	if err != nil {
		pyapiTimeout = 60 * time.Second
	}

	baseURL := strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:3045"), "/")

	return &Config{
		Port:        getEnv("PORT", "3045"),
		Env:         resolveEnv(),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		BaseURL:     baseURL,

		SessionSecret: getEnvOrPanic("NEXTAUTH_SECRET"),
		SessionMaxAge: maxAge,

		Google: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", baseURL+"/api/auth/callback/google"),
		},
		GitHub: OAuthConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GITHUB_REDIRECT_URL", baseURL+"/api/auth/callback/github"),
		},
		GitLab: OAuthConfig{
			ClientID:     getEnv("GITLAB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITLAB_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GITLAB_REDIRECT_URL", baseURL+"/api/auth/callback/gitlab"),
		},

		PyAPI: PyAPIConfig{
			URL:     ResolvePyAPIURL(os.LookupEnv),
			Timeout: pyapiTimeout,
		},

		RedisURL: getEnv("REDIS_URL", ""),

		ChatRateLimitRPS:   getEnvFloat("CHAT_RATE_LIMIT_RPS", 1),
		ChatRateLimitBurst: getEnvInt("CHAT_RATE_LIMIT_BURST", 5),

		AccountLinkAttempts: getEnvInt("ACCOUNT_LINK_ATTEMPTS", 3),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ResolvePyAPIURL picks the inference service address. Explicit URLs win over the
// deployment hint; DEPLOYMENT_ENV=container selects the compose network address.
func ResolvePyAPIURL(lookup func(string) (string, bool)) string {
	for _, key := range []string{"PYAPI_URL", "NEXT_PUBLIC_PYAPI_URL"} {
		if v, ok := lookup(key); ok && v != "" {
			return strings.TrimSuffix(v, "/")
		}
	}
	if v, ok := lookup("DEPLOYMENT_ENV"); ok && v == "container" {
		return containerPyAPIURL
	}
	return localPyAPIURL
}

// ENV takes precedence; NODE_ENV is honoured so existing deployment files keep working.
func resolveEnv() string {
	if v, ok := os.LookupEnv("ENV"); ok && v != "" {
		return v
	}
	return getEnv("NODE_ENV", "development")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
