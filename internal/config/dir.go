package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// configDirName is a directory in the user's config directory where jirafeed configuration is stored
	configDirName string = "jirafeed"
)

func MustJirafeedConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Errorf("cannot obtain user config dir: %w", err))
	}

	return filepath.Join(configDir, configDirName)
}

// DefaultPath is the default location of the jirafeed configuration file.
func DefaultPath() string {
	return filepath.Join(MustJirafeedConfigDir(), "config.yaml")
}
