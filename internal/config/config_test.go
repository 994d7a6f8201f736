package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.local/share/frameforge")
	original.BlobStore = BlobStoreConfig{
		Type:     "s3",
		S3Bucket: "frames",
		S3Prefix: "prod/",
		S3Region: "eu-west-1",
		Encrypt:  true,
		CacheTTL: "10m",
	}
	original.Gateway.ImageProvider = "job"
	original.Gateway.JobURL = "https://jobs.example.com/v1/images"

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.BlobStore != original.BlobStore {
		t.Errorf("BlobStore = %+v, want %+v", got.BlobStore, original.BlobStore)
	}
	if got.Gateway != original.Gateway {
		t.Errorf("Gateway = %+v, want %+v", got.Gateway, original.Gateway)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Editing.Debounce != "500ms" {
		t.Errorf("Editing.Debounce = %q, want %q", got.Editing.Debounce, "500ms")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/ff")

	if cfg.LogDir != "/data/ff/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/ff/log")
	}
	if cfg.Database.DataDir != "/data/ff/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/ff/db")
	}
	if cfg.BlobStore.FSRoot != "/data/ff/images" {
		t.Errorf("BlobStore.FSRoot = %q, want %q", cfg.BlobStore.FSRoot, "/data/ff/images")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/ff/keys/frameforge.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q", cfg.Encryption.PrivateKeyPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory everything", func(c *Config) {
			c.Database = DatabaseConfig{Type: "memory"}
			c.BlobStore = BlobStoreConfig{Type: "memory"}
		}, false},
		{"unknown database", func(c *Config) { c.Database.Type = "postgres" }, true},
		{"sqlite without dir", func(c *Config) { c.Database.DataDir = "" }, true},
		{"unknown blob store", func(c *Config) { c.BlobStore.Type = "ftp" }, true},
		{"filesystem without root", func(c *Config) { c.BlobStore.FSRoot = "" }, true},
		{"unknown provider", func(c *Config) { c.Gateway.ImageProvider = "dalle" }, true},
		{"bad debounce", func(c *Config) { c.Editing.Debounce = "soon" }, true},
		{"negative ttl", func(c *Config) { c.BlobStore.CacheTTL = "-1m" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(t.TempDir())
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("x", "", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Errorf("ParseDuration(empty) = %v, %v", d, err)
	}
	d, err = ParseDuration("x", "250ms", 0)
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("ParseDuration(250ms) = %v, %v", d, err)
	}
	if _, err := ParseDuration("x", "forever", 0); err == nil {
		t.Error("ParseDuration(forever) expected error")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "frameforge.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "frameforge.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, NewConfig(dir)); err == nil {
			t.Fatal("second Init() expected error")
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		dir := t.TempDir()
		cfg := NewConfig(dir)
		cfg.Database.Type = "nope"
		if err := Init(filepath.Join(dir, "frameforge.toml"), cfg); err == nil {
			t.Fatal("Init() expected error for invalid config")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "frameforge.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/frameforge.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
