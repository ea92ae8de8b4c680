package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	Env           string
	LogLevel      string
	AllowedHosts  []string
	PublicBaseURL string

	// Store
	StoreDriver string
	DatabaseURL string
	DataDir     string

	// Redis / AMQP (optional)
	RedisURL     string
	AMQPURL      string
	AMQPExchange string

	// Sessions / JWT
	SessionSecret string
	JWTSecret     string

	// Object storage (Backblaze B2, S3 API)
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSBucket          string
	AWSRegion          string

	// CDN
	CDNDomain string

	// Transloadit
	TransloaditKey                 string
	TransloaditSecret              string
	TransloaditTemplateID          string
	TransloaditVerifyNotifications bool
}

// ConfigurationError lists every required setting that was missing or invalid.
type ConfigurationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	for key, reason := range e.Invalid {
		parts = append(parts, fmt.Sprintf("%s: %s", key, reason))
	}
	return strings.Join(parts, "; ")
}

func (e *ConfigurationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// Load reads the environment (and .env if present) once. The returned Config
// is never mutated afterwards.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cerr := &ConfigurationError{Invalid: map[string]string{}}
	req := func(key string) string { return requireEnv(cerr, key) }

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		AllowedHosts:  splitList(req("WEB_APPLICATION_HOST")),
		PublicBaseURL: strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", ""), "/"),

		StoreDriver: getEnvOrDefault("STORE_DRIVER", "postgres"),
		DataDir:     getEnvOrDefault("DATA_DIR", "./data"),

		RedisURL:     getEnvOrDefault("REDIS_URL", ""),
		AMQPURL:      getEnvOrDefault("AMQP_URL", ""),
		AMQPExchange: getEnvOrDefault("AMQP_EXCHANGE", "cattube.events"),

		SessionSecret: req("SESSION_SECRET"),
		JWTSecret:     req("JWT_SECRET"),

		AWSAccessKeyID:     req("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: req("AWS_SECRET_ACCESS_KEY"),
		AWSBucket:          req("AWS_STORAGE_BUCKET_NAME"),
		AWSRegion:          req("AWS_S3_REGION_NAME"),

		CDNDomain: req("BUNNY_PULL_ZONE_DOMAIN"),

		TransloaditKey:                 req("TRANSLOADIT_KEY"),
		TransloaditSecret:              req("TRANSLOADIT_SECRET"),
		TransloaditTemplateID:          req("TRANSLOADIT_TEMPLATE_ID"),
		TransloaditVerifyNotifications: getEnvAsBoolOrDefault("TRANSLOADIT_VERIFY_NOTIFICATIONS", true),
	}

	switch cfg.StoreDriver {
	case "postgres":
		cfg.DatabaseURL = req("DATABASE_URL")
	case "pebble":
	default:
		cerr.Invalid["STORE_DRIVER"] = fmt.Sprintf("unsupported driver %q (want postgres or pebble)", cfg.StoreDriver)
	}

	if !cerr.empty() {
		return nil, cerr
	}
	return cfg, nil
}

// S3Endpoint is the Backblaze B2 S3-compatible endpoint for the configured region.
func (c *Config) S3Endpoint() string {
	return fmt.Sprintf("https://s3.%s.backblazeb2.com", c.AWSRegion)
}

// VideosBaseURL is where Transloadit stores watermarked renditions.
func (c *Config) VideosBaseURL() string {
	return fmt.Sprintf("https://%s/watermarked/", c.CDNDomain)
}

// ThumbnailsBaseURL is where Transloadit stores generated thumbnails.
func (c *Config) ThumbnailsBaseURL() string {
	return fmt.Sprintf("https://%s/thumbnail/", c.CDNDomain)
}

func (c *Config) StaticURL() string {
	return fmt.Sprintf("https://%s/static/", c.CDNDomain)
}

// TrustedOrigins mirrors the allowed hosts as https origins.
func (c *Config) TrustedOrigins() []string {
	origins := make([]string, 0, len(c.AllowedHosts))
	for _, h := range c.AllowedHosts {
		origins = append(origins, "https://"+h)
	}
	return origins
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func requireEnv(cerr *ConfigurationError, key string) string {
	val := os.Getenv(key)
	if val == "" {
		cerr.Missing = append(cerr.Missing, key)
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
