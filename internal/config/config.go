// Package config handles the XDG configuration directory, the optional
// config.yaml file and SHOPLIST_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "shoplist"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// IdentityFile stores the verified identity of the OAuth session.
	IdentityFile = "identity.json"

	// SessionFlagFile marks a shared-mode session as logged in.
	SessionFlagFile = "session.json"
)

// Deployment modes.
const (
	ModeShared = "shared"
	ModeOAuth  = "oauth"
)

// Item backends.
const (
	BackendTables = "tables"
	BackendTasks  = "tasks"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	// Mode is "shared" (family password) or "oauth" (Google sign-in).
	Mode string `yaml:"mode"`

	// Backend is "tables" (Azure Tables) or "tasks" (Google Tasks).
	Backend string `yaml:"backend"`

	// FamilyPassword is the shared password used in shared mode.
	FamilyPassword string `yaml:"family_password"`

	Tables TablesConfig `yaml:"tables"`
	Tasks  TasksConfig  `yaml:"tasks"`
	Redis  RedisConfig  `yaml:"redis"`
	Web    WebConfig    `yaml:"web"`
}

// TablesConfig configures the Azure Tables backend.
type TablesConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Table            string `yaml:"table"`
}

// TasksConfig configures the Google Tasks backend.
type TasksConfig struct {
	List string `yaml:"list"`
}

// RedisConfig configures the optional query cache. An empty URL disables it.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// WebConfig configures the serve command.
type WebConfig struct {
	Port          string `yaml:"port"`
	StaticDir     string `yaml:"static_dir"`
	SessionSecret string `yaml:"session_secret"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/shoplist or $HOME/.config/shoplist.
// Settings come from defaults, then config.yaml, then the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := Defaults()
	cfg.Dir = dir

	data, err := os.ReadFile(cfg.FilePath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a Config holding the built-in defaults and no directory.
func Defaults() *Config {
	return &Config{
		Mode:    ModeShared,
		Backend: BackendTables,
		Tables:  TablesConfig{Table: "shoppingItems"},
		Tasks:   TasksConfig{List: "@default"},
		Redis:   RedisConfig{TTL: 5 * time.Minute},
		Web:     WebConfig{Port: "8080", StaticDir: "public"},
	}
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("SHOPLIST_MODE", &c.Mode)
	str("SHOPLIST_BACKEND", &c.Backend)
	str("SHOPLIST_FAMILY_PASSWORD", &c.FamilyPassword)
	str("SHOPLIST_TABLES_CONNECTION_STRING", &c.Tables.ConnectionString)
	str("SHOPLIST_TABLES_TABLE", &c.Tables.Table)
	str("SHOPLIST_TASKS_LIST", &c.Tasks.List)
	str("SHOPLIST_REDIS_URL", &c.Redis.URL)
	str("PORT", &c.Web.Port)
	str("SHOPLIST_STATIC_DIR", &c.Web.StaticDir)
	str("SHOPLIST_SESSION_SECRET", &c.Web.SessionSecret)

	if v := os.Getenv("SHOPLIST_REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid SHOPLIST_REDIS_TTL: %s", v)
		}
		c.Redis.TTL = d
	}
	return nil
}

// Validate checks mode and backend names and their combination.
func (c *Config) Validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))

	switch c.Mode {
	case ModeShared, ModeOAuth:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	switch c.Backend {
	case BackendTables:
	case BackendTasks:
		if c.Mode != ModeOAuth {
			return fmt.Errorf("backend %s requires mode %s", BackendTasks, ModeOAuth)
		}
	default:
		return fmt.Errorf("invalid backend: %s", c.Backend)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// IdentityPath returns the path to the stored OAuth identity.
func (c *Config) IdentityPath() string {
	return filepath.Join(c.Dir, IdentityFile)
}

// SessionFlagPath returns the path to the shared-mode session marker.
func (c *Config) SessionFlagPath() string {
	return filepath.Join(c.Dir, SessionFlagFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}
