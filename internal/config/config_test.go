package config

import (
	"errors"
	"reflect"
	"testing"
)

var requiredEnv = map[string]string{
	"WEB_APPLICATION_HOST":    "cattube.example.com, www.cattube.example.com",
	"SESSION_SECRET":          "session-secret",
	"JWT_SECRET":              "jwt-secret",
	"AWS_ACCESS_KEY_ID":       "key-id",
	"AWS_SECRET_ACCESS_KEY":   "secret-key",
	"AWS_STORAGE_BUCKET_NAME": "cattube",
	"AWS_S3_REGION_NAME":      "us-west-004",
	"BUNNY_PULL_ZONE_DOMAIN":  "cattube.b-cdn.net",
	"TRANSLOADIT_KEY":         "tl-key",
	"TRANSLOADIT_SECRET":      "tl-secret",
	"TRANSLOADIT_TEMPLATE_ID": "tl-template",
	"DATABASE_URL":            "postgres://localhost/cattube",
}

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range requiredEnv {
		t.Setenv(k, v)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal bool
		expected   bool
	}{
		{"parses false", "TEST_BOOL_1", "false", true, false},
		{"parses 1", "TEST_BOOL_2", "1", false, true},
		{"uses default for empty", "TEST_BOOL_3", "", true, true},
		{"uses default for garbage", "TEST_BOOL_4", "maybe", true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsBoolOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestLoad_AllRequiredPresent(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantHosts := []string{"cattube.example.com", "www.cattube.example.com"}
	if !reflect.DeepEqual(cfg.AllowedHosts, wantHosts) {
		t.Errorf("AllowedHosts = %v, want %v", cfg.AllowedHosts, wantHosts)
	}
	if cfg.S3Endpoint() != "https://s3.us-west-004.backblazeb2.com" {
		t.Errorf("unexpected S3 endpoint %q", cfg.S3Endpoint())
	}
	if cfg.VideosBaseURL() != "https://cattube.b-cdn.net/watermarked/" {
		t.Errorf("unexpected videos base %q", cfg.VideosBaseURL())
	}
	if cfg.ThumbnailsBaseURL() != "https://cattube.b-cdn.net/thumbnail/" {
		t.Errorf("unexpected thumbnails base %q", cfg.ThumbnailsBaseURL())
	}
	if !cfg.TransloaditVerifyNotifications {
		t.Errorf("notification verification should default to on")
	}
	if got := cfg.TrustedOrigins(); got[0] != "https://cattube.example.com" {
		t.Errorf("unexpected trusted origins %v", got)
	}
}

func TestLoad_ReportsEveryMissingKey(t *testing.T) {
	setRequired(t)
	t.Setenv("TRANSLOADIT_SECRET", "")
	t.Setenv("BUNNY_PULL_ZONE_DOMAIN", "")

	cfg, err := Load()
	if cfg != nil {
		t.Fatalf("expected nil config on error")
	}

	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigurationError, got %T (%v)", err, err)
	}

	missing := map[string]bool{}
	for _, k := range cerr.Missing {
		missing[k] = true
	}
	if !missing["TRANSLOADIT_SECRET"] || !missing["BUNNY_PULL_ZONE_DOMAIN"] {
		t.Fatalf("expected both keys reported, got %v", cerr.Missing)
	}
	if len(cerr.Missing) != 2 {
		t.Fatalf("expected exactly 2 missing keys, got %v", cerr.Missing)
	}
}

func TestLoad_PebbleDoesNotNeedDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "pebble")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("expected default data dir, got %q", cfg.DataDir)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if _, ok := cerr.Invalid["STORE_DRIVER"]; !ok {
		t.Fatalf("expected STORE_DRIVER to be reported invalid, got %v", cerr.Invalid)
	}
}
