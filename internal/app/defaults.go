package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by GetDefaults and the passphrase prompt.
const (
	EnvConfigPath = "FRAMEFORGE_CONFIG_PATH"
	EnvHome       = "FRAMEFORGE_HOME"
	EnvPassphrase = "FRAMEFORGE_PASSPHRASE"
)

// GetDefaults returns the default locations of the config file and data.
//
//   - config_path: $FRAMEFORGE_CONFIG_PATH, else $XDG_CONFIG_HOME/frameforge.toml,
//     else ~/.config/frameforge.toml
//   - base_dir: $FRAMEFORGE_HOME, else $XDG_DATA_HOME/frameforge,
//     else ~/.local/share/frameforge
//   - log_dir and env_file live under base_dir.
func GetDefaults() (map[string]string, error) {
	configPath, err := resolvePath(EnvConfigPath, "XDG_CONFIG_HOME", []string{".config"}, "frameforge.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := resolvePath(EnvHome, "XDG_DATA_HOME", []string{".local", "share"}, "frameforge")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"env_file":    filepath.Join(baseDir, ".env"),
	}, nil
}

// resolvePath returns $override verbatim when set. Otherwise name is placed
// under $xdgVar, falling back to homeRel below the home directory.
func resolvePath(override, xdgVar string, homeRel []string, name string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{home}, homeRel...), name)...), nil
}
