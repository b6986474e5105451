package submission

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// imageGroup collects the non-null ids of one image in scan order.
type imageGroup struct {
	name string
	ids  []string
}

// groupByImage groups rows by image name. Groups keep the order in which
// their image first appears; nulls are dropped while flattening.
func groupByImage(preds []TilePrediction) []imageGroup {
	index := make(map[string]int)
	var groups []imageGroup

	for i := range preds {
		p := &preds[i]
		gi, ok := index[p.ImageName]
		if !ok {
			gi = len(groups)
			index[p.ImageName] = gi
			groups = append(groups, imageGroup{name: p.ImageName})
		}
		for _, id := range p.SpeciesIDs {
			if id.Valid {
				groups[gi].ids = append(groups[gi].ids, id.Value)
			}
		}
	}

	return groups
}

// RankSpecies orders ids by descending count. Ties keep the order in which
// each id was first seen, and every id appears once in the result.
func RankSpecies(ids []string) []string {
	counts := make(map[string]int, len(ids))
	var unique []string
	for _, id := range ids {
		if counts[id] == 0 {
			unique = append(unique, id)
		}
		counts[id]++
	}

	slices.SortStableFunc(unique, func(a, b string) int {
		return counts[b] - counts[a]
	})

	// counts has one key per id, so unique is already deduplicated
	if unique == nil {
		return []string{}
	}
	return unique
}

// Aggregate builds one Record per distinct image name, in first-appearance order.
// It is a pure function of preds.
func Aggregate(preds []TilePrediction) []Record {
	groups := groupByImage(preds)
	records := make([]Record, len(groups))
	for i, g := range groups {
		records[i] = Record{QuadratID: g.name, Species: RankSpecies(g.ids)}
	}
	return records
}

// AggregateConcurrent ranks the image groups on up to workers goroutines.
// The result equals Aggregate(preds). workers <= 1 runs sequentially.
func AggregateConcurrent(ctx context.Context, preds []TilePrediction, workers int) ([]Record, error) {
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, cancelledError(err)
		}
		return Aggregate(preds), nil
	}

	start := time.Now()
	groups := groupByImage(preds)
	records := make([]Record, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = Record{QuadratID: groups[i].name, Species: RankSpecies(groups[i].ids)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, cancelledError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelledError(err)
	}

	GetLogger().Debug("aggregated tile predictions",
		logger.Int("rows", len(preds)),
		logger.Int("images", len(records)),
		logger.Int("workers", workers),
		logger.Duration("elapsed", time.Since(start)))

	return records, nil
}

func cancelledError(err error) error {
	return errors.New(fmt.Errorf("aggregation cancelled: %w", err)).
		Category(errors.CategoryCancellation).
		Build()
}
