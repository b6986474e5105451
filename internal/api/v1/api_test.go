package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/observability"
	"github.com/tphakala/plantclef-go/internal/projection"
)

func sampleTable() *dataset.Table {
	return dataset.New([]dataset.Observation{
		{Species: "Acer campestre L.", Genus: "Acer", Family: "Sapindaceae", Organ: "leaf", URL: "https://img/a1"},
		{Species: "Acer campestre L.", Genus: "Acer", Family: "Sapindaceae", Organ: "flower", URL: "https://img/a2"},
		{Species: "Acer campestre L.", Genus: "Acer", Family: "Sapindaceae", Organ: "leaf", URL: "https://img/a3"},
		{Species: "Acer platanoides L.", Genus: "Acer", Family: "Sapindaceae", Organ: "bark", URL: "https://img/b1"},
		{Species: "Quercus robur L.", Genus: "Quercus", Family: "Fagaceae", Organ: "leaf", URL: "https://img/c1"},
		{Species: "Quercus robur L.", Genus: "Quercus", Family: "Fagaceae", Organ: "fruit", URL: "https://img/c2"},
	})
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Submission: conf.SubmissionSettings{
			ImageColumn:       "image_name",
			PredictionsColumn: "pred_species_ids",
			Workers:           2,
		},
	}
}

type stubMontage struct {
	data  []byte
	err   error
	calls int
}

func (s *stubMontage) Montage(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

func setupController(t *testing.T, opts ...Option) (*echo.Echo, *Controller) {
	t.Helper()
	e := echo.New()
	c, err := New(e, sampleTable(), testSettings(), opts...)
	require.NoError(t, err)
	return e, c
}

func doRequest(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CorrelationID)
	assert.Equal(t, rec.Code, resp.Code)
	return resp
}

func TestNewRequiresDatasetAndSettings(t *testing.T) {
	t.Parallel()

	_, err := New(echo.New(), nil, testSettings())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = New(echo.New(), sampleTable(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)
	rec := doRequest(e, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 6, body["dataset_rows"], 0)
	assert.Equal(t, false, body["images_enabled"])
}

func TestGetFrequencies(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/frequencies/genus")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FrequencyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "genus", resp.Taxon)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "Quercus", resp.Rows[0].Label)
	assert.Equal(t, 2, resp.Rows[0].Count)
	assert.Equal(t, "Acer", resp.Rows[1].Label)
	assert.InDelta(t, 100.0, resp.Rows[1].CumulativePercentage, 1e-9)

	rec = doRequest(e, http.MethodGet, "/api/v1/frequencies/Genus?order=desc")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acer", resp.Rows[0].Label)
}

func TestGetFrequenciesRejectsBadInput(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown taxon", "/api/v1/frequencies/order"},
		{"unknown order", "/api/v1/frequencies/genus?order=sideways"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			decodeError(t, rec)
		})
	}
}

func TestGetSpeciesAndOrgans(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/species")
	require.Equal(t, http.StatusOK, rec.Code)
	var species []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &species))
	assert.Equal(t, []string{"Acer campestre L.", "Acer platanoides L.", "Quercus robur L."}, species)

	rec = doRequest(e, http.MethodGet, "/api/v1/organs?species=Acer+campestre+L.")
	require.Equal(t, http.StatusOK, rec.Code)
	var organs []dataset.OrganCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &organs))
	require.Len(t, organs, 2)
	assert.Equal(t, "leaf", organs[0].Organ)
	assert.Equal(t, 2, organs[0].Count)

	rec = doRequest(e, http.MethodGet, "/api/v1/organs?species=Nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)
}

func TestGetImageLinks(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/images/Acer%20campestre%20L./links")
	require.Equal(t, http.StatusOK, rec.Code)
	var links []dataset.OrganImage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	require.Len(t, links, 2)
	assert.Equal(t, "flower", links[0].Organ)
	assert.Equal(t, "https://img/a2", links[0].URL)
	assert.Equal(t, "leaf", links[1].Organ)
	assert.Equal(t, "https://img/a1", links[1].URL)

	rec = doRequest(e, http.MethodGet, "/api/v1/images/Acer%20campestre%20L./links?random=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	assert.Len(t, links, 2)

	rec = doRequest(e, http.MethodGet, "/api/v1/images/Acer%20campestre%20L./links?random=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/images/Nobody/links")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMontage(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		e, _ := setupController(t)
		rec := doRequest(e, http.MethodGet, "/api/v1/images/Quercus%20robur%20L./montage")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		decodeError(t, rec)
	})

	t.Run("served", func(t *testing.T) {
		t.Parallel()
		stub := &stubMontage{data: []byte("png-bytes")}
		e, _ := setupController(t, WithImageProvider(stub))
		rec := doRequest(e, http.MethodGet, "/api/v1/images/Quercus%20robur%20L./montage")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, "png-bytes", rec.Body.String())
	})

	t.Run("unknown species skips provider", func(t *testing.T) {
		t.Parallel()
		stub := &stubMontage{data: []byte("png-bytes")}
		e, _ := setupController(t, WithImageProvider(stub))
		rec := doRequest(e, http.MethodGet, "/api/v1/images/Nobody/montage")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Zero(t, stub.calls)
	})

	t.Run("provider not found", func(t *testing.T) {
		t.Parallel()
		stub := &stubMontage{err: errors.NotFound("no images could be loaded")}
		e, _ := setupController(t, WithImageProvider(stub))
		rec := doRequest(e, http.MethodGet, "/api/v1/images/Quercus%20robur%20L./montage")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCumulativeChartIsCached(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	e, _ := setupController(t, WithMetrics(m))

	for range 2 {
		rec := doRequest(e, http.MethodGet, "/api/v1/charts/cumulative/family?format=svg")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
		assert.Contains(t, rec.Body.String(), "Cumulative Percentage of Family Frequency")
	}

	expected := `
# HELP chart_cache_hits_total Total number of rendered chart cache hits
# TYPE chart_cache_hits_total counter
chart_cache_hits_total{chart="cumulative"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "chart_cache_hits_total"))
}

func TestChartErrors(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"bad taxon", "/api/v1/charts/cumulative/kingdom", http.StatusBadRequest},
		{"bad format", "/api/v1/charts/cumulative/genus?format=gif", http.StatusBadRequest},
		{"unknown species", "/api/v1/charts/organs?species=Nobody", http.StatusNotFound},
		{"no projection", "/api/v1/charts/projection", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code)
			decodeError(t, rec)
		})
	}
}

func TestOrganAndProjectionCharts(t *testing.T) {
	t.Parallel()

	points := []projection.Point{
		{X: 0, Y: 0, Label: "Acer"},
		{X: 1, Y: 2, Label: "Quercus"},
		{X: -1, Y: 1, Label: "Acer"},
	}
	e, _ := setupController(t, WithProjection(points))

	rec := doRequest(e, http.MethodGet, "/api/v1/charts/organs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	rec = doRequest(e, http.MethodGet, "/api/v1/charts/projection?format=svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")
}

func multipartUpload(t *testing.T, fields map[string]string, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if content != "" {
		fw, err := w.CreateFormFile("file", "predictions.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submission", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestPostSubmission(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)
	input := "image_name,tile,pred_species_ids\n" +
		"img1,0,\"['a', 'b', 'a']\"\n" +
		"img2,0,\"[None, 'x']\"\n" +
		"img1,1,\"['b', 'c']\"\n"

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, nil, input))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), SubmissionFilename)
	want := `"quadrat_id","species_ids"` + "\n" +
		`"img1","[a, b, c]"` + "\n" +
		`"img2","[x]"` + "\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestPostSubmissionColumnOverrides(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)
	input := "quadrat,ids\nQ1,[7 7 8]\n"

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, map[string]string{
		"image_column":       "quadrat",
		"predictions_column": "ids",
	}, input))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Q1","[7, 8]"`)
}

func TestPostSubmissionErrors(t *testing.T) {
	t.Parallel()

	e, _ := setupController(t)

	tests := []struct {
		name    string
		fields  map[string]string
		content string
	}{
		{"missing file", nil, ""},
		{"missing column", nil, "image_name,species\nimg,[1]\n"},
		{"non-list cell", nil, "image_name,pred_species_ids\nimg,42\n"},
		{"same columns", map[string]string{"image_column": "x", "predictions_column": "x"}, "x\n[1]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, multipartUpload(t, tt.fields, tt.content))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			decodeError(t, rec)
		})
	}
}
