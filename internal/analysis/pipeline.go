package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"airquality-platform/internal/models"
)

// Stage names a pipeline step for observers
type Stage string

const (
	StageMerge     Stage = "merge"
	StageImpute    Stage = "impute"
	StageAggregate Stage = "aggregate"
	StageSummarize Stage = "summarize"
)

// StageObserver is notified after every stage with its duration and outcome.
// It is called from concurrent goroutines for the aggregate and summarize stages.
type StageObserver func(stage Stage, elapsed time.Duration, err error)

// Run executes Merge → Impute → {Aggregate, Summarize}.
//
// Aggregate and Summarize run concurrently over the same immutable imputed dataset.
// The first failure aborts the run and no partial result is returned; when both
// fail, which error surfaces is unspecified. observe may be nil.
func Run(ctx context.Context, batches []*models.Dataset, observe StageObserver) (*models.Result, error) {
	if observe == nil {
		observe = func(Stage, time.Duration, error) {}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	merged, err := Merge(batches)
	observe(StageMerge, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	missing := MissingSummary(merged)

	start = time.Now()
	imputed, err := Impute(merged)
	observe(StageImpute, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var (
		aggregates *models.Aggregates
		summary    *models.Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		a, err := Aggregate(imputed)
		observe(StageAggregate, time.Since(start), err)
		if err != nil {
			return err
		}
		aggregates = a
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		s, err := Summarize(imputed)
		observe(StageSummarize, time.Since(start), err)
		if err != nil {
			return err
		}
		summary = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Result{
		Batches:     len(batches),
		Rows:        imputed.Len(),
		Missing:     missing,
		Merged:      merged,
		Imputed:     imputed,
		Aggregates:  aggregates,
		Summary:     summary,
		CompletedAt: time.Now().UTC(),
	}, nil
}
