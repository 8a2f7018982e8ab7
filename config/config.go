package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var Opts *Options

// GetConfig resolves the data directory and derives the database and log
// paths from it. Safe to call repeatedly.
func GetConfig() (*Options, error) {
	if Opts == nil {
		GetDefaultOptions()
	}

	dataDir, err := checkDataDir(Opts.Data)
	if err != nil {
		return nil, err
	}

	Opts.Data = dataDir
	if Opts.DSN == "" {
		Opts.DSN = filepath.Join(Opts.Data, defaultDatabaseFile)
	}
	if !filepath.IsAbs(Opts.LogFile) {
		Opts.LogFile = filepath.Join(Opts.Data, Opts.LogFile)
	}

	return Opts, nil
}

// checkDataDir makes the data directory usable, creating it when missing.
// A relative path is resolved against the user's home directory so the CLI
// behaves the same regardless of the working directory.
func checkDataDir(dataDir string) (string, error) {
	dataDir = strings.TrimRight(dataDir, "\\/")
	if !filepath.IsAbs(dataDir) {
		currentUser, err := user.Current()
		if err != nil {
			return "", errors.Wrap(err, "unable to get current user")
		}
		if currentUser.HomeDir == "" {
			return "", errors.New("unable to get home directory")
		}
		dataDir = filepath.Join(currentUser.HomeDir, dataDir)
	}

	if _, err := os.Stat(dataDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
		}
	}
	return dataDir, nil
}

// ParseFile overlays options from a config file on top of the defaults.
func ParseFile(file string) (*Options, error) {
	if Opts == nil {
		GetDefaultOptions()
	}
	if _, err := os.Stat(file); err != nil {
		return nil, errors.Wrapf(err, "unable to access config file %s", file)
	}

	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(Opts); err != nil {
		return nil, err
	}
	return Opts, nil
}
