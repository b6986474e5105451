package submission

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

var quoteEscaper = strings.NewReplacer(`"`, `""`)

// WriteCSV writes records with the header quadrat_id,species_ids.
// Every field, header included, is enclosed in double quotes.
func WriteCSV(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)

	writeRow(bw, QuadratIDColumn, SpeciesIDsColumn)
	for _, rec := range records {
		writeRow(bw, rec.QuadratID, rec.SpeciesIDs())
	}

	if err := bw.Flush(); err != nil {
		return errors.New(fmt.Errorf("failed to write submission: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

func writeRow(w *bufio.Writer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		quoteEscaper.WriteString(w, f) //nolint:errcheck // bufio reports errors on Flush
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// SaveCSV writes records to path, creating missing parent directories.
// Errors keep the underlying *fs.PathError reachable through errors.As.
func SaveCSV(path string, records []Record) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return errors.New(fmt.Errorf("failed to create output directory: %w", err)).
				Category(errors.CategoryFileIO).
				FileContext(path, 0).
				Context("operation", "mkdir").
				Build()
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), filePermissions); err != nil {
		return errors.New(fmt.Errorf("failed to write submission file: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(path, int64(buf.Len())).
			Context("operation", "write").
			Build()
	}

	GetLogger().Info("submission file saved",
		logger.String("path", path),
		logger.Int("records", len(records)))
	return nil
}
