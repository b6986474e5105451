// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/plantclef-go/internal/logger"
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("main.name", "PlantCLEF Dataset Explorer")
	v.SetDefault("main.debug", false)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("dataset.path", "data/PlantCLEF2024_single_plant_training_metadata.csv")
	v.SetDefault("dataset.separator", ";")
	v.SetDefault("dataset.columns.species", "species")
	v.SetDefault("dataset.columns.genus", "genus")
	v.SetDefault("dataset.columns.family", "family")
	v.SetDefault("dataset.columns.organ", "organ")
	v.SetDefault("dataset.columns.url", "url")
	v.SetDefault("dataset.columns.backupurl", "image_backup_url")
	v.SetDefault("dataset.columns.speciesid", "species_id")

	v.SetDefault("embeddings.path", "")
	v.SetDefault("embeddings.labelcolumn", "species")
	v.SetDefault("embeddings.organcolumn", "organ")

	v.SetDefault("submission.outputpath", "submissions/submission.csv")
	v.SetDefault("submission.imagecolumn", "image_name")
	v.SetDefault("submission.predictionscolumn", "pred_species_ids")
	v.SetDefault("submission.workers", 0)

	v.SetDefault("webserver.listen", ":8050")
	v.SetDefault("webserver.chartcachettl", 10*time.Minute)

	v.SetDefault("images.timeout", 5*time.Second)
	v.SetDefault("images.ratelimit", 5.0)
	v.SetDefault("images.burst", 3)
	v.SetDefault("images.tilesize", 256)
	v.SetDefault("images.cachettl", 30*time.Minute)
	v.SetDefault("images.useragent", "plantclef-go")
}
