// conf/utils.go config file discovery
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/plantclef-go/internal/errors"
)

const configFileName = "config.yaml"

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory, then the per-user and system-wide locations.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Roaming", "plantclef"),
		}, nil
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "plantclef"),
		"/etc/plantclef",
	}, nil
}

// FindConfigFile locates the first existing config.yaml on the default paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, configFileName)
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.NotFound("config file not found in %v", configPaths)
}
