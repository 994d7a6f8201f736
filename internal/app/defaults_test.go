package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("FRAMEFORGE_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("FRAMEFORGE_HOME", "/custom/ff")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/ff" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/ff")
		}
		if defaults["log_dir"] != "/custom/ff/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/ff/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("FRAMEFORGE_CONFIG_PATH", "")
		t.Setenv("FRAMEFORGE_HOME", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "frameforge.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "frameforge")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})

	t.Run("honours XDG directories", func(t *testing.T) {
		t.Setenv("FRAMEFORGE_CONFIG_PATH", "")
		t.Setenv("FRAMEFORGE_HOME", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
		t.Setenv("XDG_DATA_HOME", "/xdg/data")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if want := filepath.Join("/xdg/config", "frameforge.toml"); defaults["config_path"] != want {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], want)
		}
		if want := filepath.Join("/xdg/data", "frameforge"); defaults["base_dir"] != want {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], want)
		}
		if want := filepath.Join("/xdg/data", "frameforge", ".env"); defaults["env_file"] != want {
			t.Errorf("env_file = %q, want %q", defaults["env_file"], want)
		}
	})
}
