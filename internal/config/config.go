// Package config loads and validates the daemon's settings file. Settings
// are immutable after load and passed by value into the core.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"ratiosplit/pkg/slogext"
)

const (
	DefaultRatio   = 0.33
	DefaultLogFile = "~/.config/i3/ratiosplit.log"
)

type Config struct {
	// Ratio is the fraction of the parent's dimension, along the split
	// axis, that a newly created window should occupy. Strictly between 0
	// and 1.
	Ratio           float64 `yaml:"ratio"`
	LogFile         string  `yaml:"log_file"`
	LogFileLevel    string  `yaml:"log_file_level"`
	LogConsoleLevel string  `yaml:"log_console_level"`
}

func Default() Config {
	return Config{
		Ratio:           DefaultRatio,
		LogFile:         DefaultLogFile,
		LogFileLevel:    "info",
		LogConsoleLevel: "off",
	}
}

// Load reads the YAML settings file. A missing file yields the defaults; an
// unreadable or invalid file fails startup.
func Load(filePath string) (Config, error) {
	cfg := Default()

	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return Config{}, errors.Wrapf(err, "config: open %s", filePath)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrapf(err, "config: decode %s", filePath)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs *multierror.Error

	if !(c.Ratio > 0 && c.Ratio < 1) {
		errs = multierror.Append(errs, errors.Errorf("config: ratio %v must be strictly between 0 and 1", c.Ratio))
	}
	if _, err := slogext.ParseLevel(c.LogFileLevel); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "config: log_file_level"))
	}
	if _, err := slogext.ParseLevel(c.LogConsoleLevel); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "config: log_console_level"))
	}

	return errs.ErrorOrNil()
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "config: resolve home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
