// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/plantclef-go/internal/logger"
)

const (
	minTileSize = 32
	maxTileSize = 1024
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and reports every problem at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateLoggingSettings,
		validateDatasetSettings,
		validateEmbeddingsSettings,
		validateSubmissionSettings,
		validateWebServerSettings,
		validateImageSettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validLogLevel(level string) bool {
	switch logger.LogLevel(strings.ToLower(level)) {
	case logger.LogLevelTrace, logger.LogLevelDebug, logger.LogLevelInfo, logger.LogLevelWarn, logger.LogLevelError:
		return true
	}
	return false
}

func validateLoggingSettings(s *Settings) []string {
	var errs []string
	if !validLogLevel(s.Logging.DefaultLevel) {
		errs = append(errs, fmt.Sprintf("logging.default_level %q is not a valid level", s.Logging.DefaultLevel))
	}
	for module, level := range s.Logging.ModuleLevels {
		if !validLogLevel(level) {
			errs = append(errs, fmt.Sprintf("logging.module_levels.%s %q is not a valid level", module, level))
		}
	}
	if s.Logging.FileOutput != nil && s.Logging.FileOutput.Enabled && s.Logging.FileOutput.Path == "" {
		errs = append(errs, "logging.file_output.path is required when file output is enabled")
	}
	return errs
}

func validateDatasetSettings(s *Settings) []string {
	var errs []string
	if len([]rune(s.Dataset.Separator)) != 1 {
		errs = append(errs, fmt.Sprintf("dataset.separator must be a single character, got %q", s.Dataset.Separator))
	}

	cols := map[string]string{
		"species":   s.Dataset.Columns.Species,
		"genus":     s.Dataset.Columns.Genus,
		"family":    s.Dataset.Columns.Family,
		"organ":     s.Dataset.Columns.Organ,
		"url":       s.Dataset.Columns.URL,
		"backupurl": s.Dataset.Columns.BackupURL,
	}
	for _, key := range []string{"species", "genus", "family", "organ", "url", "backupurl"} {
		if strings.TrimSpace(cols[key]) == "" {
			errs = append(errs, fmt.Sprintf("dataset.columns.%s must not be empty", key))
		}
	}
	return errs
}

func validateEmbeddingsSettings(s *Settings) []string {
	if s.Embeddings.Path == "" {
		return nil
	}
	var errs []string
	if s.Embeddings.LabelColumn == "" {
		errs = append(errs, "embeddings.labelcolumn is required when embeddings.path is set")
	}
	if s.Embeddings.LabelColumn != "" && s.Embeddings.LabelColumn == s.Embeddings.OrganColumn {
		errs = append(errs, "embeddings.labelcolumn and embeddings.organcolumn must differ")
	}
	return errs
}

func validateSubmissionSettings(s *Settings) []string {
	var errs []string
	if strings.TrimSpace(s.Submission.ImageColumn) == "" {
		errs = append(errs, "submission.imagecolumn must not be empty")
	}
	if strings.TrimSpace(s.Submission.PredictionsColumn) == "" {
		errs = append(errs, "submission.predictionscolumn must not be empty")
	}
	if s.Submission.ImageColumn != "" && s.Submission.ImageColumn == s.Submission.PredictionsColumn {
		errs = append(errs, "submission.imagecolumn and submission.predictionscolumn must differ")
	}
	if s.Submission.Workers < 0 {
		errs = append(errs, fmt.Sprintf("submission.workers must be >= 0, got %d", s.Submission.Workers))
	}
	return errs
}

func validateWebServerSettings(s *Settings) []string {
	var errs []string
	if s.WebServer.Listen == "" {
		errs = append(errs, "webserver.listen must not be empty")
	}
	if s.WebServer.ChartCacheTTL < 0 {
		errs = append(errs, "webserver.chartcachettl must not be negative")
	}
	return errs
}

func validateImageSettings(s *Settings) []string {
	var errs []string
	if s.Images.Timeout <= 0 {
		errs = append(errs, "images.timeout must be positive")
	}
	if s.Images.RateLimit <= 0 {
		errs = append(errs, "images.ratelimit must be positive")
	}
	if s.Images.Burst < 1 {
		errs = append(errs, "images.burst must be at least 1")
	}
	if s.Images.TileSize < minTileSize || s.Images.TileSize > maxTileSize {
		errs = append(errs, fmt.Sprintf("images.tilesize must be between %d and %d, got %d", minTileSize, maxTileSize, s.Images.TileSize))
	}
	if s.Images.CacheTTL < 0 {
		errs = append(errs, "images.cachettl must not be negative")
	}
	return errs
}
