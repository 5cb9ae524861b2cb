package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Settings are the non-secret preferences kept in the pmctl config file.
type Settings struct {
	OutputDir string `yaml:"output-dir,omitempty"`
	Storage   string `yaml:"storage,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		OutputDir: ".",
		Storage:   "file",
	}
}

// LoadSettings reads the config file. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}
	settings := DefaultSettings()
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return settings, nil
}

func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}
