package errors

import (
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathWithoutHooks(t *testing.T) {
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderContextAndCategory(t *testing.T) {
	ee := Newf("column %q missing", "pred_species_ids").
		Component("submission").
		Category(CategoryValidation).
		Context("column", "pred_species_ids").
		Build()

	assert.Equal(t, "submission", ee.GetComponent())
	assert.True(t, IsValidation(ee))
	assert.Equal(t, "validation", ee.GetCategory())
	assert.Equal(t, "pred_species_ids", ee.GetContext()["column"])

	// returned context is a copy
	ctx := ee.GetContext()
	ctx["column"] = "changed"
	assert.Equal(t, "pred_species_ids", ee.GetContext()["column"])
}

func TestWrappedErrorsRemainReachable(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here.csv")
	require.Error(t, statErr)

	ee := New(statErr).Category(CategoryFileIO).FileContext("/definitely/not/here.csv", 2048).Build()

	var pathErr *fs.PathError
	assert.True(t, As(ee, &pathErr), "path error should stay reachable")
	assert.True(t, Is(ee, fs.ErrNotExist))
	assert.Equal(t, "csv", ee.GetContext()["file_extension"])
	assert.Equal(t, "absolute-path", ee.GetContext()["file_type"])
	assert.Equal(t, "small", ee.GetContext()["file_size_category"])

	wrapped := fmt.Errorf("saving submission: %w", ee)
	assert.True(t, IsCategory(wrapped, CategoryFileIO))
	assert.False(t, IsNotFound(wrapped))
}

func TestCategoryDetection(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"timeout message", fmt.Errorf("context deadline exceeded"), "", CategoryTimeout},
		{"validation message", fmt.Errorf("invalid taxon"), "", CategoryValidation},
		{"component fallback", fmt.Errorf("boom"), "charts", CategoryChartRender},
		{"categorized error", NotFound("species %s", "x"), "", CategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestErrorHooksObserveBuiltErrors(t *testing.T) {
	t.Cleanup(ClearErrorHooks)

	var seen atomic.Int32
	AddErrorHook(func(ee *EnhancedError) {
		if ee.Category == CategoryImageFetch {
			seen.Add(1)
		}
	})

	_ = New(fmt.Errorf("fetch failed")).Category(CategoryImageFetch).Build()
	_ = New(fmt.Errorf("other")).Category(CategoryValidation).Build()

	assert.Equal(t, int32(1), seen.Load())
}

func TestWrappedCategoryIsInherited(t *testing.T) {
	inner := NotFound("species %q not found", "x")
	outer := New(fmt.Errorf("loading montage: %w", inner)).Build()

	assert.Equal(t, CategoryNotFound, outer.Category)
	assert.True(t, Is(outer, inner))
}

func TestNetworkContext(t *testing.T) {
	ee := New(fmt.Errorf("dial failed")).
		Category(CategoryNetwork).
		NetworkContext("HTTPS://images.example.org/a.jpg", 5*time.Second).
		Build()

	assert.Equal(t, "https-endpoint", ee.GetContext()["url_category"])
	assert.InDelta(t, 5.0, ee.GetContext()["timeout_seconds"], 1e-9)
}

func TestNilErrorBuildsUnknown(t *testing.T) {
	ee := New(nil).Category(CategoryGeneric).Build()
	assert.Equal(t, "unknown error", ee.Error())
}
