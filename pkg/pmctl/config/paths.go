package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "pmctl"
	defaultConfigFile    = "config.yaml"
	defaultStateFile     = "auth.json"
)

func DefaultConfigPath() string {
	if env := os.Getenv("PMCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pmctl", defaultConfigFile)
}

// DefaultStatePath is where the persisted session lives in file storage mode.
func DefaultStatePath() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultStateFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pmctl", defaultStateFile)
}
