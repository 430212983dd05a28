// Package config persists the ordered list of filename patterns a user has
// taught seqview to recognize. Storage is a flat TOML table at the
// OS-conventional per-user config directory; a missing file is equivalent
// to an empty pattern list, never an error.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const appDirName = "seqview"
const fileName = "config.toml"

// Config is the on-disk schema: a single ordered list of templates.
type Config struct {
	Patterns []string `toml:"patterns"`
}

// Path returns the resolved config file path without touching the
// filesystem. It fails only if the OS cannot report a user config directory
// (no pack dependency covers OS-conventional app-data directories, so this
// uses the stdlib os.UserConfigDir, added expressly for this purpose).
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "determine config directory")
	}
	return filepath.Join(dir, appDirName, fileName), nil
}

// Load reads the config file. A missing file yields an empty Config, not an
// error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if _, err := toml.Decode(string(b), &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Save writes cfg to the resolved config path, creating parent directories
// as needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create config directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create config %s", path)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

// AddPattern appends pat to cfg if it is not already present.
func AddPattern(cfg *Config, pat string) {
	for _, p := range cfg.Patterns {
		if p == pat {
			return
		}
	}
	cfg.Patterns = append(cfg.Patterns, pat)
}
