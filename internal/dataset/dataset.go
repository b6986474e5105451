// Package dataset loads the PlantCLEF single-plant training metadata and
// computes the statistics shown on the dashboard: taxon frequencies, organ
// distributions and one example image per organ.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
	"unique"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// Columns names the metadata columns. SpeciesID is optional.
type Columns struct {
	Species   string
	Genus     string
	Family    string
	Organ     string
	URL       string
	BackupURL string
	SpeciesID string
}

// DefaultColumns returns the column names of the PlantCLEF 2024 metadata file.
func DefaultColumns() Columns {
	return Columns{
		Species:   "species",
		Genus:     "genus",
		Family:    "family",
		Organ:     "organ",
		URL:       "url",
		BackupURL: "image_backup_url",
		SpeciesID: "species_id",
	}
}

// Observation is one training image.
type Observation struct {
	Species   string
	Genus     string
	Family    string
	Organ     string
	URL       string
	BackupURL string
	SpeciesID string
}

// Table is an immutable, in-memory metadata table. Safe for concurrent reads.
type Table struct {
	rows []Observation
}

// New wraps rows in a Table. The slice is not copied.
func New(rows []Observation) *Table {
	return &Table{rows: rows}
}

// Len returns the number of observations.
func (t *Table) Len() int {
	return len(t.rows)
}

// GetLogger returns the dataset module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("dataset")
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, cols Columns, sep rune) (*Table, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open dataset: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	table, err := Load(f, cols, sep)
	if err != nil {
		return nil, err
	}

	GetLogger().Info("dataset loaded",
		logger.String("path", path),
		logger.Int("rows", table.Len()),
		logger.Duration("elapsed", time.Since(start)))
	return table, nil
}

// Load reads a delimited table with a header row. Columns not named in cols
// are ignored; a configured column missing from the header is a validation error.
func Load(r io.Reader, cols Columns, sep rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ValidationError("dataset is empty")
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read dataset header: %w", err)).
			Category(errors.CategoryFileParsing).
			Build()
	}
	header = slices.Clone(header)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	idx, err := resolveColumns(header, cols)
	if err != nil {
		return nil, err
	}

	var rows []Observation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to read dataset: %w", err)).
				Category(errors.CategoryFileParsing).
				Context("line", line).
				Build()
		}
		rows = append(rows, idx.observation(record))
	}

	return New(rows), nil
}

// columnIndex holds header positions; -1 marks an absent optional column.
type columnIndex struct {
	species, genus, family, organ, url, backupURL, speciesID int
}

func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	find := func(name string, required bool) (int, error) {
		if name == "" && !required {
			return -1, nil
		}
		i := slices.Index(header, name)
		if i < 0 && required {
			return -1, errors.Newf("column %q not found, available columns: %s", name, strings.Join(header, ", ")).
				Category(errors.CategoryValidation).
				Context("column", name).
				Build()
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	required := []struct {
		dst  *int
		name string
	}{
		{&idx.species, cols.Species},
		{&idx.genus, cols.Genus},
		{&idx.family, cols.Family},
		{&idx.organ, cols.Organ},
		{&idx.url, cols.URL},
		{&idx.backupURL, cols.BackupURL},
	}
	for _, c := range required {
		if *c.dst, err = find(c.name, true); err != nil {
			return idx, err
		}
	}
	idx.speciesID, _ = find(cols.SpeciesID, false)
	return idx, nil
}

// intern deduplicates the highly repetitive taxon and organ strings.
func intern(s string) string {
	if s == "" {
		return ""
	}
	return unique.Make(s).Value()
}

func (c columnIndex) observation(record []string) Observation {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return Observation{
		Species:   intern(field(c.species)),
		Genus:     intern(field(c.genus)),
		Family:    intern(field(c.family)),
		Organ:     intern(field(c.organ)),
		URL:       strings.Clone(field(c.url)),
		BackupURL: strings.Clone(field(c.backupURL)),
		SpeciesID: intern(field(c.speciesID)),
	}
}
