// Package projection reduces image embeddings to two dimensions for the
// dashboard scatter plot using principal component analysis.
package projection

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// Columns names the non-numeric columns of an embeddings table. Organ may be
// empty when the table has no organ column.
type Columns struct {
	Label string
	Organ string
}

// DefaultColumns returns the label/organ column names used by the dashboard.
func DefaultColumns() Columns {
	return Columns{Label: "species", Organ: "organ"}
}

// Embeddings is a loaded embeddings table: one row per image.
type Embeddings struct {
	Labels []string
	Organs []string
	Data   *mat.Dense
}

// Rows returns the number of embedded images.
func (e *Embeddings) Rows() int {
	return len(e.Labels)
}

// Point is one image projected onto the first two principal components.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
	Organ string  `json:"organ,omitempty"`
}

// GetLogger returns the projection module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("projection")
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, cols Columns) (*Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open embeddings: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	emb, err := Load(f, cols)
	if err != nil {
		return nil, err
	}
	GetLogger().Info("embeddings loaded",
		logger.String("path", path),
		logger.Int("rows", emb.Rows()),
		logger.Int("dims", dims(emb)))
	return emb, nil
}

// Load reads a comma separated table with a header. Every column other than
// the label and organ columns is an embedding dimension and must be numeric.
func Load(r io.Reader, cols Columns) (*Embeddings, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ValidationError("embeddings table is empty")
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read embeddings header: %w", err)).
			Category(errors.CategoryFileParsing).
			Build()
	}
	header = slices.Clone(header)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	labelIdx := slices.Index(header, cols.Label)
	if labelIdx < 0 {
		return nil, missingColumn(cols.Label, header)
	}
	organIdx := -1
	if cols.Organ != "" {
		if organIdx = slices.Index(header, cols.Organ); organIdx < 0 {
			return nil, missingColumn(cols.Organ, header)
		}
	}

	var numeric []int
	for i := range header {
		if i != labelIdx && i != organIdx {
			numeric = append(numeric, i)
		}
	}

	emb := &Embeddings{}
	var values []float64
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to read embeddings: %w", err)).
				Category(errors.CategoryFileParsing).
				Context("line", line).
				Build()
		}

		emb.Labels = append(emb.Labels, strings.Clone(record[labelIdx]))
		organ := ""
		if organIdx >= 0 {
			organ = strings.Clone(record[organIdx])
		}
		emb.Organs = append(emb.Organs, organ)

		for _, i := range numeric {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf("line %d: column %q is not a finite number: %q", line, header[i], record[i]).
					Category(errors.CategoryValidation).
					Context("line", line).
					Context("column", header[i]).
					Build()
			}
			values = append(values, v)
		}
	}

	if len(emb.Labels) > 0 && len(numeric) > 0 {
		emb.Data = mat.NewDense(len(emb.Labels), len(numeric), values)
	}
	return emb, nil
}

func missingColumn(name string, header []string) error {
	return errors.Newf("column %q not found, available columns: %s", name, strings.Join(header, ", ")).
		Category(errors.CategoryValidation).
		Context("column", name).
		Build()
}

func dims(e *Embeddings) int {
	if e.Data == nil {
		return 0
	}
	_, c := e.Data.Dims()
	return c
}

// Project centres the embeddings and projects them onto their first two
// principal components. Each component's sign is chosen so that its
// largest-magnitude loading is positive, making the result deterministic.
func Project(emb *Embeddings) ([]Point, error) {
	if emb == nil || emb.Rows() < 2 || dims(emb) < 2 {
		rows, d := 0, 0
		if emb != nil {
			rows, d = emb.Rows(), dims(emb)
		}
		return nil, errors.Newf("projection needs at least 2 rows and 2 dimensions, got %d rows and %d dimensions", rows, d).
			Category(errors.CategoryValidation).
			Context("rows", rows).
			Context("dims", d).
			Build()
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(emb.Data, nil); !ok {
		return nil, errors.Newf("principal component analysis failed").
			Category(errors.CategoryProjection).
			Context("rows", emb.Rows()).
			Build()
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	d, _ := vecs.Dims()
	basis := mat.DenseCopyOf(vecs.Slice(0, d, 0, 2))
	normaliseSigns(basis)

	centred := center(emb.Data)
	var proj mat.Dense
	proj.Mul(centred, basis)

	points := make([]Point, emb.Rows())
	for i := range points {
		points[i] = Point{
			X:     proj.At(i, 0),
			Y:     proj.At(i, 1),
			Label: emb.Labels[i],
			Organ: emb.Organs[i],
		}
	}
	return points, nil
}

func normaliseSigns(basis *mat.Dense) {
	r, c := basis.Dims()
	for j := range c {
		largest := 0.0
		for i := range r {
			if v := basis.At(i, j); math.Abs(v) > math.Abs(largest) {
				largest = v
			}
		}
		if largest < 0 {
			for i := range r {
				basis.Set(i, j, -basis.At(i, j))
			}
		}
	}
}

func center(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.DenseCopyOf(m)
	for j := range c {
		mean := stat.Mean(mat.Col(nil, j, m), nil)
		for i := range r {
			out.Set(i, j, out.At(i, j)-mean)
		}
	}
	return out
}
