// Package submission turns per-tile species predictions into one ranked,
// deduplicated species list per quadrat image, the row format expected by
// the PlantCLEF submission system.
//
// A quadrat photo is split into tiles and every tile gets its own list of
// predicted species. Aggregate groups the tiles by image name, counts how
// often each species was predicted across the image and emits the species
// most-frequent first:
//
//	preds, err := submission.ReadTilePredictions(f, submission.DefaultColumns())
//	if err != nil {
//	    return err
//	}
//	records := submission.Aggregate(preds)
//	err = submission.SaveCSV("out/submission.csv", records)
package submission

import (
	"fmt"
	"strings"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

const (
	// DefaultImageColumn groups tile predictions into quadrats.
	DefaultImageColumn = "image_name"
	// DefaultPredictionsColumn holds the string-encoded list of predicted ids.
	DefaultPredictionsColumn = "pred_species_ids"

	// Output header
	QuadratIDColumn  = "quadrat_id"
	SpeciesIDsColumn = "species_ids"
)

// SpeciesID is one element of a tile's prediction list. Valid is false for
// null entries (None, nan, null or an empty element in the source list).
type SpeciesID struct {
	Value string
	Valid bool
}

// ID returns a non-null species identifier.
func ID(value string) SpeciesID {
	return SpeciesID{Value: value, Valid: true}
}

// Null is the missing-prediction marker.
var Null = SpeciesID{}

// String renders the identifier, or None for null entries.
func (s SpeciesID) String() string {
	if !s.Valid {
		return "None"
	}
	return s.Value
}

// TilePrediction is one input row: the parent image and the species predicted for one tile.
type TilePrediction struct {
	ImageName  string
	SpeciesIDs []SpeciesID
}

// Record is one output row. Species is ranked and holds every id once.
type Record struct {
	QuadratID string
	Species   []string
}

// SpeciesIDs returns the species list in submission format, e.g. "[a, b]".
func (r Record) SpeciesIDs() string {
	return FormatSpeciesList(r.Species)
}

// FormatSpeciesList renders ids as "[id1, id2, ...]"; an empty list renders "[]".
func FormatSpeciesList(ids []string) string {
	return "[" + strings.Join(ids, ", ") + "]"
}

// Columns names the input columns read by ReadTilePredictions.
type Columns struct {
	ImageID     string
	Predictions string
}

// DefaultColumns returns image_name / pred_species_ids.
func DefaultColumns() Columns {
	return Columns{ImageID: DefaultImageColumn, Predictions: DefaultPredictionsColumn}
}

// Validate checks that both column names are set and distinct.
func (c Columns) Validate() error {
	switch {
	case strings.TrimSpace(c.ImageID) == "":
		return errors.ValidationError("image column name must not be empty")
	case strings.TrimSpace(c.Predictions) == "":
		return errors.ValidationError("predictions column name must not be empty")
	case c.ImageID == c.Predictions:
		return errors.New(fmt.Errorf("image and predictions columns must differ, both are %q", c.ImageID)).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// GetLogger returns the submission module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("submission")
}
