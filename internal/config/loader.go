package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
	"github.com/felixgeelhaar/candidash/internal/fsutil"
)

// File names and environment variables.
const (
	DirName         = ".candidash"
	UserFileName    = "config.yaml"
	ProjectFileName = ".candidash.yaml"

	EnvAPIURL         = "CANDIDASH_API_URL"
	EnvSessionBackend = "CANDIDASH_SESSION_BACKEND"
	EnvRedisURL       = "CANDIDASH_REDIS_URL"
	EnvLogLevel       = "CANDIDASH_LOG_LEVEL"
)

// Loader resolves the configuration from its layers.
type Loader struct {
	// projectDir holds ./.candidash.yaml
	projectDir string

	// userDir holds ~/.candidash/config.yaml
	userDir string

	getenv func(string) string

	sources []string
}

// NewLoader creates a loader reading from the current directory, the user's
// home directory and the process environment.
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		projectDir: ".",
		userDir:    filepath.Join(homeDir, DirName),
		getenv:     os.Getenv,
	}
}

// SetProjectDir sets the directory searched for .candidash.yaml.
func (l *Loader) SetProjectDir(dir string) { l.projectDir = dir }

// SetUserDir sets the directory searched for config.yaml.
func (l *Loader) SetUserDir(dir string) { l.userDir = dir }

// SetEnv replaces the environment lookup.
func (l *Loader) SetEnv(getenv func(string) string) { l.getenv = getenv }

// UserPath returns the user-level configuration file path.
func (l *Loader) UserPath() string {
	return filepath.Join(l.userDir, UserFileName)
}

// Sources returns the files that contributed to the last Load, lowest
// precedence first.
func (l *Loader) Sources() []string {
	return append([]string(nil), l.sources...)
}

// Load resolves the configuration.
//
// Resolution order (lowest to highest precedence):
// 1. Built-in defaults
// 2. User-level file (~/.candidash/config.yaml)
// 3. Project-level file (./.candidash.yaml)
// 4. The explicit file, if non-empty; it must exist
// 5. CANDIDASH_* environment variables
//
// Missing user and project files are skipped. The result is validated.
func (l *Loader) Load(explicit string) (*Config, error) {
	cfg := Default()
	l.sources = nil

	for _, path := range []string{l.UserPath(), filepath.Join(l.projectDir, ProjectFileName)} {
		if err := l.mergeFile(cfg, path, false); err != nil {
			return nil, err
		}
	}
	if explicit != "" {
		if err := l.mergeFile(cfg, explicit, true); err != nil {
			return nil, err
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes path over cfg. Keys absent from the file keep the value
// of the lower layers.
func (l *Loader) mergeFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return cerrors.Wrap(cerrors.ErrCodeConfigRead, fmt.Sprintf("failed to read config file %s", path), err)
	}

	expanded := os.Expand(string(data), l.getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeConfigRead, fmt.Sprintf("failed to parse config file %s", path), err)
	}
	l.sources = append(l.sources, path)
	return nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := l.getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := l.getenv(EnvSessionBackend); v != "" {
		cfg.Session.Backend = v
	}
	if v := l.getenv(EnvRedisURL); v != "" {
		cfg.Session.RedisURL = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// LoadFile reads a single configuration file over the defaults without
// applying other layers. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	l := &Loader{getenv: os.Getenv}
	cfg := Default()
	if err := l.mergeFile(cfg, path, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, 0o600)
}
