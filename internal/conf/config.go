// config.go: settings struct for the PlantCLEF explorer and functions to load and save it.
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds application-wide switches.
type MainSettings struct {
	Name  string // application name shown in the dashboard title
	Debug bool   // true to force debug logging everywhere
}

// DatasetColumns names the metadata columns used by the explorer.
type DatasetColumns struct {
	Species   string
	Genus     string
	Family    string
	Organ     string
	URL       string
	BackupURL string
	SpeciesID string
}

// DatasetSettings describes the training metadata table.
type DatasetSettings struct {
	Path      string // path to the metadata CSV
	Separator string // single character field separator
	Columns   DatasetColumns
}

// EmbeddingsSettings describes the optional embeddings table.
type EmbeddingsSettings struct {
	Path        string // empty disables the projection chart
	LabelColumn string
	OrganColumn string
}

// SubmissionSettings configures the prediction aggregator.
type SubmissionSettings struct {
	OutputPath        string // default output file for --save
	ImageColumn       string // grouping column of the tile predictions
	PredictionsColumn string // list-valued prediction column
	Workers           int    // 0 or 1 aggregates sequentially
}

// WebServerSettings configures the dashboard server.
type WebServerSettings struct {
	Listen        string        // listen address, e.g. ":8050"
	ChartCacheTTL time.Duration // lifetime of rendered charts in memory
}

// ImageSettings configures species image retrieval.
type ImageSettings struct {
	Timeout   time.Duration // per-request timeout
	RateLimit float64       // outbound requests per second
	Burst     int           // rate limiter burst
	TileSize  int           // montage tile edge in pixels
	CacheTTL  time.Duration // lifetime of cached montages
	UserAgent string
}

// Settings contains all configuration options for the application.
type Settings struct {
	Main       MainSettings
	Logging    logger.LoggingConfig
	Dataset    DatasetSettings
	Embeddings EmbeddingsSettings
	Submission SubmissionSettings
	WebServer  WebServerSettings
	Images     ImageSettings
}

// SeparatorRune returns the dataset separator, defaulting to a semicolon.
func (d *DatasetSettings) SeparatorRune() rune {
	for _, r := range d.Separator {
		return r
	}
	return ';'
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configPath (or the first config.yaml found on the default search
// paths, or the embedded defaults) plus PLANTCLEF_* environment variables.
func Load(configPath string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.New()
	if err := initViper(v, configPath); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if settings.Main.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper sets defaults, environment bindings and reads the configuration.
func initViper(v *viper.Viper, configPath string) error {
	v.SetConfigType("yaml")
	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		GetLogger().Warn("environment variable problems", logger.Error(err))
	}

	if configPath == "" {
		found, err := FindConfigFile()
		if err != nil {
			GetLogger().Debug("no config file found, using embedded defaults")
			return v.ReadConfig(bytes.NewReader(getDefaultConfig()))
		}
		configPath = found
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.New(fmt.Errorf("error reading config file %s: %w", configPath, err)).
			Category(errors.CategoryConfiguration).
			FileContext(configPath, 0).
			Build()
	}

	GetLogger().Debug("loaded config file", logger.String("path", configPath))
	return nil
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time, cannot be missing
		panic(fmt.Sprintf("embedded config.yaml: %v", err))
	}
	return data
}

// DefaultConfigYAML returns the commented default configuration file.
func DefaultConfigYAML() []byte {
	return getDefaultConfig()
}

// GetSettings returns the last loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// MarshalYAML renders settings as YAML.
func MarshalYAML(settings *Settings) ([]byte, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, errors.New(fmt.Errorf("error marshaling settings to YAML: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return data, nil
}

// SaveYAMLConfig writes settings to configPath through a temporary file and rename.
// Comments in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := MarshalYAML(settings)
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(dir, 0).
			Build()
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return errors.New(fmt.Errorf("error creating temporary file: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return errors.New(fmt.Errorf("error writing to temporary file: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := tempFile.Close(); err != nil {
		return errors.New(fmt.Errorf("error closing temporary file: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(fmt.Errorf("error replacing config file: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(configPath, int64(len(yamlData))).
			Build()
	}

	return nil
}
