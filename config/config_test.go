package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/httpdispatch/logger"
	"github.com/kbukum/httpdispatch/version"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug log level in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info log level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("version defaults to the build version", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Version != version.Short() {
			t.Errorf("expected %q, got %q", version.Short(), cfg.Version)
		}

		cfg = ServiceConfig{Name: "svc", Version: "3.1.0"}
		cfg.ApplyDefaults()
		if cfg.Version != "3.1.0" {
			t.Errorf("explicit version must be kept, got %q", cfg.Version)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
		{"invalid log level", ServiceConfig{Name: "svc", Environment: "staging", Logging: logger.Config{Level: "loud"}}, "config.logging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Upstream      struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"upstream"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: test-service
environment: staging
upstream:
  base_url: https://api.example.com
  timeout: 5s
`)

	var cfg testConfig
	if err := LoadConfig("test-service", &cfg, WithConfigFile(path), WithEnvPrefix("HDTEST_YAML")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "test-service" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Upstream.BaseURL != "https://api.example.com" {
		t.Errorf("unexpected base url %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Upstream.Timeout)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: from-file\nupstream:\n  base_url: https://file.example.com\n")
	t.Setenv("HDTEST_ENV_UPSTREAM_BASE_URL", "https://env.example.com")
	t.Setenv("HDTEST_ENV_NAME", "from-env")

	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path), WithEnvPrefix("hdtest_env_")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("expected env to override name, got %q", cfg.Name)
	}
	if cfg.Upstream.BaseURL != "https://env.example.com" {
		t.Errorf("expected env to override base url, got %q", cfg.Upstream.BaseURL)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "HDTEST_DOT_UPSTREAM_TIMEOUT=250ms\n")
	t.Cleanup(func() { _ = os.Unsetenv("HDTEST_DOT_UPSTREAM_TIMEOUT") })

	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithEnvFile(envPath), WithConfigFile(filepath.Join(dir, "none.yml")), WithEnvPrefix("HDTEST_DOT")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Upstream.Timeout != 250*time.Millisecond {
		t.Errorf("expected 250ms from .env, got %v", cfg.Upstream.Timeout)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("svc", &cfg,
		WithFileSystem(&mockFS{}),
		WithEnvPrefix("HDTEST_DEFAULTS"),
		WithDefault("upstream.timeout", "2s"),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Upstream.Timeout != 2*time.Second {
		t.Errorf("expected default 2s, got %v", cfg.Upstream.Timeout)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvPrefix("HDTEST_MISSING")); err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: [unterminated\n")

	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path), WithEnvPrefix("HDTEST_INVALID")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/my-svc/config.yml": true,
		"./config/config.yml":     true,
		"./.env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./cmd/my-svc/config.yml" {
		t.Errorf("expected ./cmd/my-svc/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("my-svc", LoaderConfig{ConfigFile: "/etc/svc.yml"})
	if explicit.ConfigFile != "/etc/svc.yml" {
		t.Errorf("expected explicit path to win, got %q", explicit.ConfigFile)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("TRANSPORT_BASE_URL")
	for _, want := range []string{"transport_base_url", "transport.base.url", "transport.base_url", "transport_base.url"} {
		found := false
		for _, v := range got {
			if v == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if len(generateEnvKeyVariants("NAME")) != 1 {
		t.Error("single-part keys have one variant")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
