package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/iplantc/decat/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != "disabled" {
		t.Errorf("mode = %q, want disabled", cfg.Mode)
	}
}

func TestAuthConfig_Modes(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantErr string
	}{
		{"token ok", AuthConfig{Mode: "token", Token: "mysecret"}, ""},
		{"token empty", AuthConfig{Mode: "token"}, "token is empty"},
		{"jwt ok", AuthConfig{Mode: "jwt", PublicKeyPath: "/etc/decat/jwt.pub"}, ""},
		{"jwt with issuer", AuthConfig{Mode: "jwt", PublicKeyPath: "k.pub", Issuer: "decat"}, ""},
		{"jwt no key", AuthConfig{Mode: "jwt"}, "public key path is empty"},
		{"unknown", AuthConfig{Mode: "magic", Token: "x"}, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !tt.cfg.AuthEnabled() {
					t.Error("auth should be enabled")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Catalog.Dir() != "catalog" || cfg.Catalog.File() != "catalog.yaml" {
		t.Errorf("seed split = %q, %q", cfg.Catalog.Dir(), cfg.Catalog.File())
	}
}

func TestFullConfig_SectionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"auth", func(c *Config) { c.Auth.Mode, c.Auth.Token = "token", "" }},
		{"port", func(c *Config) { c.App.HTTP.Port = 0 }},
		{"seed", func(c *Config) { c.Catalog.SeedPath = "" }},
		{"sqlite", func(c *Config) { c.SQLite.Path = "" }},
		{"workspace", func(c *Config) { c.Workspace.Favorites = "" }},
		{"throttle", func(c *Config) { c.Events.TreeThrottle = time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	t.Setenv("DECAT_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
catalog:
  seed_path: /srv/decat/catalog.yaml
  watch: false
auth:
  mode: token
  token: ${DECAT_TEST_TOKEN}
events:
  tree_throttle: 500ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Catalog.Watch || cfg.Auth.Token != "from-env" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Events.TreeThrottle != 500*time.Millisecond {
		t.Errorf("throttle = %v", cfg.Events.TreeThrottle)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Workspace.Favorites != "Favorite Apps" || cfg.SQLite.Path != "./decat.db" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}
