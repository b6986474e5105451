package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/submission"
)

// SubmissionFilename is the attachment name of the generated CSV.
const SubmissionFilename = "submission.csv"

// PostSubmission aggregates an uploaded tile predictions CSV (multipart
// field "file") into a submission CSV. The optional form fields
// image_column and predictions_column override the configured columns.
func (c *Controller) PostSubmission(ctx echo.Context) error {
	cols := submission.Columns{
		ImageID:     c.Settings.Submission.ImageColumn,
		Predictions: c.Settings.Submission.PredictionsColumn,
	}
	if v := ctx.FormValue("image_column"); v != "" {
		cols.ImageID = v
	}
	if v := ctx.FormValue("predictions_column"); v != "" {
		cols.Predictions = v
	}
	if err := cols.Validate(); err != nil {
		return c.HandleError(ctx, err, "Invalid column configuration", http.StatusBadRequest)
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "Missing tile predictions file in form field \"file\"", http.StatusBadRequest)
	}
	f, err := fh.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to open uploaded file", http.StatusBadRequest)
	}
	defer f.Close()

	preds, err := submission.ReadTilePredictions(f, cols)
	if err != nil {
		return c.HandleDomainError(ctx, err, "Invalid tile predictions")
	}

	records, err := submission.AggregateConcurrent(ctx.Request().Context(), preds, c.Settings.Submission.Workers)
	if err != nil {
		return c.HandleDomainError(ctx, err, "Aggregation failed")
	}

	c.logger.Info("submission generated",
		logger.String("upload", fh.Filename),
		logger.Int("tiles", len(preds)),
		logger.Int("quadrats", len(records)))

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", SubmissionFilename))
	res.WriteHeader(http.StatusOK)
	if err := submission.WriteCSV(res, records); err != nil {
		// Headers are already sent; the error can only be logged.
		c.logger.Error("failed to stream submission", logger.Error(err))
		return errors.New(err).Category(errors.CategoryNetwork).Build()
	}
	return nil
}
