package submission

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

const utf8BOM = "\uFEFF"

// ReadTilePredictions parses a comma-separated table with a header row.
// The prediction cell holds a list literal such as [1, 2, None], ['a', "b"],
// [] or the space-separated [1 2 3]. Missing columns, empty image names and
// cells that are not lists are rejected before any row is returned.
func ReadTilePredictions(r io.Reader, cols Columns) ([]TilePrediction, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ValidationError("tile predictions table is empty")
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read header: %w", err)).
			Category(errors.CategoryFileParsing).
			Build()
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	imageIdx, err := columnIndex(header, cols.ImageID)
	if err != nil {
		return nil, err
	}
	predIdx, err := columnIndex(header, cols.Predictions)
	if err != nil {
		return nil, err
	}
	width := max(imageIdx, predIdx) + 1

	var preds []TilePrediction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to read tile predictions: %w", err)).
				Category(errors.CategoryFileParsing).
				Context("line", line).
				Build()
		}
		if len(record) < width {
			return nil, errors.Newf("line %d has %d fields, expected at least %d", line, len(record), width).
				Category(errors.CategoryValidation).
				Context("line", line).
				Build()
		}

		image := strings.TrimSpace(record[imageIdx])
		if image == "" {
			return nil, errors.Newf("line %d: column %q is empty", line, cols.ImageID).
				Category(errors.CategoryValidation).
				Context("line", line).
				Context("column", cols.ImageID).
				Build()
		}

		ids, err := ParseSpeciesList(record[predIdx])
		if err != nil {
			return nil, errors.New(fmt.Errorf("line %d: column %q: %w", line, cols.Predictions, err)).
				Category(errors.CategoryValidation).
				Context("line", line).
				Context("column", cols.Predictions).
				Build()
		}

		preds = append(preds, TilePrediction{ImageName: image, SpeciesIDs: ids})
	}

	GetLogger().Debug("read tile predictions", logger.Int("rows", len(preds)))
	return preds, nil
}

func columnIndex(header []string, name string) (int, error) {
	idx := slices.Index(header, name)
	if idx < 0 {
		return -1, errors.Newf("column %q not found, available columns: %s", name, strings.Join(header, ", ")).
			Category(errors.CategoryValidation).
			Context("column", name).
			Build()
	}
	return idx, nil
}

// ParseSpeciesList parses a list literal. Unquoted None, nan, null and empty
// elements become Null; quotes around an element are removed.
func ParseSpeciesList(cell string) ([]SpeciesID, error) {
	s := strings.TrimSpace(cell)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("value %q is not a list", cell)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []SpeciesID{}, nil
	}

	parts, err := splitOutsideQuotes(inner, func(r rune) bool { return r == ',' })
	if err != nil {
		return nil, err
	}
	// numpy prints arrays without commas: [1 2 3]
	if len(parts) == 1 {
		parts, err = splitOutsideQuotes(inner, unicode.IsSpace)
		if err != nil {
			return nil, err
		}
		parts = slices.DeleteFunc(parts, func(p string) bool { return strings.TrimSpace(p) == "" })
	}

	ids := make([]SpeciesID, 0, len(parts))
	for _, part := range parts {
		ids = append(ids, parseElement(strings.TrimSpace(part)))
	}
	return ids, nil
}

func parseElement(elem string) SpeciesID {
	if len(elem) >= 2 {
		first, last := elem[0], elem[len(elem)-1]
		if (first == '\'' || first == '"') && first == last {
			return ID(elem[1 : len(elem)-1])
		}
	}
	switch strings.ToLower(elem) {
	case "", "none", "nan", "null", "<na>":
		return Null
	}
	return ID(elem)
}

// splitOutsideQuotes splits s at runes matching sep that are not inside
// single or double quotes.
func splitOutsideQuotes(s string, sep func(rune) bool) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case sep(r):
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in list %q", s)
	}
	return append(parts, cur.String()), nil
}
