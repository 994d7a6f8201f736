package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration for frameforge.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Database   DatabaseConfig   `toml:"database"`
	BlobStore  BlobStoreConfig  `toml:"blob_store"`
	Encryption EncryptionConfig `toml:"encryption"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Editing    EditingConfig    `toml:"editing"`
}

// DatabaseConfig selects where projects and frames are persisted.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BlobStoreConfig selects where image payloads live.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobStoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"` // for S3-compatible services
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"`

	// Encrypt stores payloads age-encrypted with the configured key pair.
	Encrypt bool `toml:"encrypt"`
	// CacheTTL enables an in-process read cache when set, e.g. "30m".
	CacheTTL string `toml:"cache_ttl,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for blob encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// GatewayConfig configures the generation providers. Credentials are not
// stored here; they come from the environment.
type GatewayConfig struct {
	ImageProvider      string `toml:"image_provider"` // "inline" (default) or "job"
	InlineBaseURL      string `toml:"inline_base_url,omitempty"`
	JobURL             string `toml:"job_url,omitempty"`
	TextModel          string `toml:"text_model,omitempty"`
	DefaultModel       string `toml:"default_model"`
	DefaultAspectRatio string `toml:"default_aspect_ratio"`
	Timeout            string `toml:"timeout,omitempty"`
	RateInterval       string `toml:"rate_interval,omitempty"`
	RateBurst          int    `toml:"rate_burst,omitempty"`
	Concurrency        int    `toml:"concurrency"` // parallel calls for batch generation
}

// EditingConfig tunes the pending-edit buffer.
type EditingConfig struct {
	Debounce string `toml:"debounce"` // quiet period before staged edits are committed
}

// NewConfig creates a Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		BlobStore: BlobStoreConfig{
			Type:     "filesystem",
			FSRoot:   filepath.Join(baseDir, "images"),
			CacheTTL: "30m",
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "frameforge.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "frameforge.key"),
		},
		Gateway: GatewayConfig{
			ImageProvider:      "inline",
			DefaultModel:       "gemini-2.5-flash-image",
			DefaultAspectRatio: "16:9",
			Timeout:            "2m",
			RateInterval:       "1s",
			RateBurst:          2,
			Concurrency:        2,
		},
		Editing: EditingConfig{Debounce: "500ms"},
	}
}

// ParseDuration parses a duration setting. An empty value yields def.
func ParseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}
	return d, nil
}

// Validate checks the tagged unions and duration fields.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory":
	case "sqlite":
		if c.Database.DataDir == "" {
			return fmt.Errorf("sqlite database requires data_dir to be set")
		}
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}

	switch c.BlobStore.Type {
	case "memory", "s3":
	case "filesystem":
		if c.BlobStore.FSRoot == "" {
			return fmt.Errorf("filesystem blob store requires fs_root to be set")
		}
	default:
		return fmt.Errorf("unknown blob store type: %q", c.BlobStore.Type)
	}

	switch c.Gateway.ImageProvider {
	case "", "inline", "job":
	default:
		return fmt.Errorf("unknown image provider: %q", c.Gateway.ImageProvider)
	}

	for name, v := range map[string]string{
		"blob_store.cache_ttl":  c.BlobStore.CacheTTL,
		"gateway.timeout":       c.Gateway.Timeout,
		"gateway.rate_interval": c.Gateway.RateInterval,
		"editing.debounce":      c.Editing.Debounce,
	} {
		if _, err := ParseDuration(name, v, 0); err != nil {
			return err
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
