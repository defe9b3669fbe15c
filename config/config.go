// Package config is the on-disk record of where the journal database lives
// and how it is protected. The passphrase is never stored here.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ftjournal/errs"
)

const (
	// AppDir is the directory created under the user config dir.
	AppDir = "ftjournal"
	// FileName is the default config file name.
	FileName = "ftjournal.json"
	// DBFileName is the default database file name.
	DBFileName = "ftjournal.db"
	// SchemaVersion is written to new configs.
	SchemaVersion = 1
)

// Config is the persisted connection config plus logging and backup settings.
type Config struct {
	DBPath        string       `json:"db_path" yaml:"db_path" toml:"db_path"`
	Encrypted     bool         `json:"encrypted" yaml:"encrypted" toml:"encrypted"`
	SchemaVersion int          `json:"schema_version" yaml:"schema_version" toml:"schema_version"`
	LogLevel      string       `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	Backup        BackupConfig `json:"backup" yaml:"backup" toml:"backup"`
}

// BackupConfig holds off-site backup settings.
type BackupConfig struct {
	S3 S3Config `json:"s3" yaml:"s3" toml:"s3"`
}

// S3Config points at an S3-compatible bucket. An empty Bucket disables the
// mirror. Endpoint is only needed for non-AWS stores such as MinIO.
type S3Config struct {
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	Bucket         string `json:"bucket,omitempty" yaml:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix         string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	AccessKey      string `json:"access_key,omitempty" yaml:"access_key,omitempty" toml:"access_key,omitempty"`
	SecretKey      string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" toml:"secret_key,omitempty"`
	ForcePathStyle bool   `json:"force_path_style,omitempty" yaml:"force_path_style,omitempty" toml:"force_path_style,omitempty"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Default returns a config pointing at the default database location.
func Default() *Config {
	dbPath := DBFileName
	if dir, err := DefaultDir(); err == nil {
		dbPath = filepath.Join(dir, DBFileName)
	}
	return &Config{
		DBPath:        dbPath,
		SchemaVersion: SchemaVersion,
	}
}

// DefaultDir returns the per-user config directory for ftjournal.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadFromFile reads the config at path, picking the format from the
// extension (.yaml/.yml, .toml, anything else JSON), then applies
// FTJOURNAL_* environment overrides. A missing file is
// errs.ErrConfiguration: the app has not been initialized.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no config at %s", errs.ErrConfiguration, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %v", errs.ErrConfiguration, err)
	}

	cfg := Default()
	switch format(path) {
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %v", errs.ErrConfiguration, path, err)
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid config: %v", errs.ErrConfiguration, err)
	}
	return cfg, nil
}

// SaveToFile writes the config to path, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch format(path) {
	case "yaml":
		data, err = yaml.Marshal(c)
	case "toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create config dir: %v", errs.ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write config file: %v", errs.ErrIO, err)
	}
	return nil
}

// Validate checks that the config can be used to open a database.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.SchemaVersion < 1 {
		return fmt.Errorf("schema_version must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	s3 := c.Backup.S3
	if s3.Enabled() && s3.Region == "" && s3.Endpoint == "" {
		return fmt.Errorf("backup.s3 needs a region or an endpoint")
	}
	if (s3.AccessKey == "") != (s3.SecretKey == "") {
		return fmt.Errorf("backup.s3 access_key and secret_key must be set together")
	}
	return nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}
