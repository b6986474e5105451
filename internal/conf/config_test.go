package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/plantclef-go/internal/logger"
)

func loggingDefaults() logger.LoggingConfig {
	return logger.LoggingConfig{DefaultLevel: "info"}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "main:\n  name: test\n")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", settings.Main.Name)
	assert.Equal(t, ";", settings.Dataset.Separator)
	assert.Equal(t, ';', settings.Dataset.SeparatorRune())
	assert.Equal(t, "image_backup_url", settings.Dataset.Columns.BackupURL)
	assert.Equal(t, "image_name", settings.Submission.ImageColumn)
	assert.Equal(t, "pred_species_ids", settings.Submission.PredictionsColumn)
	assert.Equal(t, ":8050", settings.WebServer.Listen)
	assert.Equal(t, 5*time.Second, settings.Images.Timeout)
	assert.Equal(t, 30*time.Minute, settings.Images.CacheTTL)
	assert.Equal(t, 256, settings.Images.TileSize)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)

	assert.Same(t, settings, GetSettings())
}

func TestLoadEmbeddedConfigIsValid(t *testing.T) {
	path := writeConfig(t, string(DefaultConfigYAML()))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "PlantCLEF Dataset Explorer", settings.Main.Name)
	assert.Equal(t, 10*time.Minute, settings.WebServer.ChartCacheTTL)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
dataset:
  separator: ","
  columns:
    species: taxon
submission:
  workers: 4
images:
  timeout: 2s
  ratelimit: 0.5
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ',', settings.Dataset.SeparatorRune())
	assert.Equal(t, "taxon", settings.Dataset.Columns.Species)
	assert.Equal(t, "genus", settings.Dataset.Columns.Genus, "unset keys keep defaults")
	assert.Equal(t, 4, settings.Submission.Workers)
	assert.Equal(t, 2*time.Second, settings.Images.Timeout)
	assert.InDelta(t, 0.5, settings.Images.RateLimit, 1e-9)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PLANTCLEF_WEBSERVER_LISTEN", "127.0.0.1:9999")
	t.Setenv("PLANTCLEF_SUBMISSION_IMAGECOLUMN", "quadrat")
	path := writeConfig(t, "main:\n  name: env\n")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", settings.WebServer.Listen)
	assert.Equal(t, "quadrat", settings.Submission.ImageColumn)
}

func TestDebugRaisesLogLevel(t *testing.T) {
	path := writeConfig(t, "main:\n  debug: true\n")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", settings.Logging.DefaultLevel)
	assert.Equal(t, "debug", settings.Logging.Console.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, `
dataset:
  separator: ";;"
images:
  burst: 0
  tilesize: 8
`)

	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Logging: loggingDefaults(),
			Dataset: DatasetSettings{
				Separator: ";",
				Columns: DatasetColumns{
					Species: "species", Genus: "genus", Family: "family",
					Organ: "organ", URL: "url", BackupURL: "image_backup_url",
				},
			},
			Submission: SubmissionSettings{ImageColumn: "image_name", PredictionsColumn: "pred_species_ids"},
			WebServer:  WebServerSettings{Listen: ":8050"},
			Images:     ImageSettings{Timeout: time.Second, RateLimit: 1, Burst: 1, TileSize: 128},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad log level", func(s *Settings) { s.Logging.DefaultLevel = "loud" }, "logging.default_level"},
		{"bad module level", func(s *Settings) { s.Logging.ModuleLevels = map[string]string{"api": "x"} }, "logging.module_levels.api"},
		{"empty species column", func(s *Settings) { s.Dataset.Columns.Species = " " }, "dataset.columns.species"},
		{"same submission columns", func(s *Settings) { s.Submission.PredictionsColumn = "image_name" }, "must differ"},
		{"negative workers", func(s *Settings) { s.Submission.Workers = -1 }, "submission.workers"},
		{"embeddings without label", func(s *Settings) { s.Embeddings.Path = "emb.csv" }, "embeddings.labelcolumn"},
		{"zero timeout", func(s *Settings) { s.Images.Timeout = 0 }, "images.timeout"},
		{"empty listen", func(s *Settings) { s.WebServer.Listen = "" }, "webserver.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveYAMLConfigCanBeLoaded(t *testing.T) {
	original, err := Load(writeConfig(t, "webserver:\n  listen: \":7000\"\nimages:\n  tilesize: 64\n"))
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	require.NoError(t, SaveYAMLConfig(target, original))

	reloaded, err := Load(target)
	require.NoError(t, err)
	assert.Equal(t, ":7000", reloaded.WebServer.Listen)
	assert.Equal(t, 64, reloaded.Images.TileSize)
	assert.Equal(t, original.Images.Timeout, reloaded.Images.Timeout)
}

func TestEnvValidators(t *testing.T) {
	assert.NoError(t, validateEnvBool("true"))
	assert.Error(t, validateEnvBool("maybe"))
	assert.NoError(t, validateEnvSeparator(","))
	assert.Error(t, validateEnvSeparator(",,"))
	assert.NoError(t, validateEnvNonNegativeInt("0"))
	assert.Error(t, validateEnvNonNegativeInt("-2"))
	assert.NoError(t, validateEnvPositiveFloat("2.5"))
	assert.Error(t, validateEnvPositiveFloat("0"))
	assert.NoError(t, validateEnvDuration("5s"))
	assert.Error(t, validateEnvDuration("soon"))
}
