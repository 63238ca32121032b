package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/iplantc/decat/internal/api"
	"github.com/iplantc/decat/internal/appservice"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Events    EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Catalog, &c.SQLite, &c.Auth, &c.Workspace, &c.Events} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CatalogConfig locates the YAML seed the catalog is loaded from.
type CatalogConfig struct {
	SeedPath string `yaml:"seed_path"`
	Watch    bool   `yaml:"watch"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SeedPath, validation.Required),
	)
}

// Dir returns the directory holding the seed file.
func (c *CatalogConfig) Dir() string {
	return filepath.Dir(c.SeedPath)
}

// File returns the seed file name relative to Dir.
func (c *CatalogConfig) File() string {
	return filepath.Base(c.SeedPath)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, suitable for local dev.
//   - "token": static Bearer token; Token must be non-empty.
//   - "jwt": RS256 Bearer JWTs verified against PublicKeyPath. Issuer, when
//     set, must match the token's iss claim.
type AuthConfig struct {
	Mode          string `yaml:"mode"`
	Token         string `yaml:"token"`
	PublicKeyPath string `yaml:"public_key_path"`
	Issuer        string `yaml:"issuer"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = api.AuthDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(api.AuthDisabled, api.AuthToken, api.AuthJWT)),
		validation.Field(&c.Token, validation.When(c.Mode == api.AuthToken,
			validation.Required.Error("token is empty"))),
		validation.Field(&c.PublicKeyPath, validation.When(c.Mode == api.AuthJWT,
			validation.Required.Error("public key path is empty"))),
	)
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode != api.AuthDisabled
}

// WorkspaceConfig names the categories the service maintains on behalf of
// users. Both are looked up by name.
type WorkspaceConfig struct {
	Favorites string `yaml:"favorites"`
	UserApps  string `yaml:"user_apps"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Favorites, validation.Required),
		validation.Field(&c.UserApps, validation.Required),
	)
}

func (c *WorkspaceConfig) workspace() appservice.Workspace {
	return appservice.Workspace{Favorites: c.Favorites, UserApps: c.UserApps}
}

// EventsConfig tunes the SSE stream.
type EventsConfig struct {
	TreeThrottle time.Duration `yaml:"tree_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TreeThrottle, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Catalog: CatalogConfig{
			SeedPath: "./catalog/catalog.yaml",
			Watch:    true,
		},
		SQLite: SQLiteConfig{
			Path: "./decat.db",
		},
		Auth: AuthConfig{
			Mode: api.AuthDisabled,
		},
		Workspace: WorkspaceConfig{
			Favorites: "Favorite Apps",
			UserApps:  "Apps under development",
		},
		Events: EventsConfig{
			TreeThrottle: 2 * time.Second,
		},
	}
}
