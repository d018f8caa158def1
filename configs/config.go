package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// PlatformClient holds the OAuth application registered with one platform.
type PlatformClient struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Clients          map[string]PlatformClient
	EnabledPlatforms []string

	GeminiAPIKey        string
	GeminiModel         string
	HuggingFaceAPIKey   string
	HuggingFaceModelURL string

	PostgresURI string
	RedisURI    string
	R2          R2

	SecretKey   string
	CookieName  string
	PublicURL   string
	FrontendURL string
	Port        string

	OAuthSessionTTL       time.Duration
	PublishMaxAttempts    int
	SchedulerPollInterval time.Duration

	LogLevel  string
	LogFormat string
}

func LoadConfig() *Config {
	cfg := &Config{
		Clients: make(map[string]PlatformClient),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		HuggingFaceAPIKey:   getEnv("HUGGINGFACE_API_KEY", ""),
		HuggingFaceModelURL: getEnv("HUGGINGFACE_MODEL_URL", "https://api-inference.huggingface.co/models/prompthero/openjourney"),

		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},

		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "crosspost_session"),
		PublicURL:   strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		Port:        getEnv("PORT", "3000"),

		OAuthSessionTTL:       getDuration("OAUTH_SESSION_TTL", 10*time.Minute),
		PublishMaxAttempts:    getInt("PUBLISH_MAX_ATTEMPTS", 3),
		SchedulerPollInterval: getDuration("SCHEDULER_POLL_INTERVAL", time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	for _, p := range platform.Builtin() {
		prefix := strings.ToUpper(p.ID)
		cfg.Clients[p.ID] = PlatformClient{
			ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
			ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
		}
	}

	if enabled := getEnv("ENABLED_PLATFORMS", ""); enabled != "" {
		for _, id := range strings.Split(enabled, ",") {
			if id = strings.TrimSpace(strings.ToLower(id)); id != "" {
				cfg.EnabledPlatforms = append(cfg.EnabledPlatforms, id)
			}
		}
	} else {
		for _, p := range platform.Builtin() {
			if p.SupportsAuthorization() {
				cfg.EnabledPlatforms = append(cfg.EnabledPlatforms, p.ID)
			}
		}
	}

	return cfg
}

// RedirectURI is the callback registered with a platform's OAuth application.
func (c *Config) RedirectURI(platformID string) string {
	return fmt.Sprintf("%s/auth/%s/callback", c.PublicURL, platformID)
}

// Enabled reports whether the platform may be connected.
func (c *Config) Enabled(platformID string) bool {
	for _, id := range c.EnabledPlatforms {
		if id == platformID {
			return true
		}
	}
	return false
}

// Validate checks every enabled platform and the generation backends,
// returning one error that lists all missing keys.
func (c *Config) Validate(registry *platform.Registry) error {
	var problems []string

	for _, id := range c.EnabledPlatforms {
		p, err := registry.Lookup(id)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ENABLED_PLATFORMS: unknown platform %q", id))
			continue
		}
		if !p.SupportsAuthorization() {
			problems = append(problems, fmt.Sprintf("ENABLED_PLATFORMS: %s cannot be connected", id))
			continue
		}

		prefix := strings.ToUpper(id)
		client := c.Clients[id]
		if client.ClientID == "" {
			problems = append(problems, prefix+"_CLIENT_ID is required")
		}
		if p.RequiresClientSecret && client.ClientSecret == "" {
			problems = append(problems, prefix+"_CLIENT_SECRET is required")
		}
	}

	if c.GeminiAPIKey == "" {
		problems = append(problems, "GEMINI_API_KEY is required")
	}
	if c.HuggingFaceAPIKey == "" {
		problems = append(problems, "HUGGINGFACE_API_KEY is required")
	}
	if len(c.SecretKey) != 32 {
		problems = append(problems, "SECRET_KEY must be exactly 32 bytes")
	}
	if c.PublishMaxAttempts < 1 {
		problems = append(problems, "PUBLISH_MAX_ATTEMPTS must be at least 1")
	}
	if c.OAuthSessionTTL <= 0 {
		problems = append(problems, "OAUTH_SESSION_TTL must be positive")
	}

	if len(problems) > 0 {
		return apperrors.ErrConfig.WithDetails("%s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
