// Package analysis implements the air quality pipeline: merging raw batches,
// imputing missing values, time-bucket aggregation and the TEMP/O3 statistics.
//
// Every function is a pure transformation over in-memory datasets. Inputs are
// never mutated, so Aggregate and Summarize may share one imputed dataset.
package analysis

import (
	"fmt"

	"airquality-platform/internal/models"
)

// Merge concatenates batches into one dataset, preserving row order within and across batches.
//
// Batch order is the caller's responsibility: sources must supply batches in a
// deterministic order (sorted by source name) for the output to be reproducible.
// An empty collection, or one holding no rows at all, fails with InsufficientDataError.
func Merge(batches []*models.Dataset) (*models.Dataset, error) {
	if len(batches) == 0 {
		return nil, &models.InsufficientDataError{Message: "no batches to merge"}
	}

	for i, b := range batches {
		if b == nil {
			return nil, &models.SchemaMismatchError{Batch: i, Message: fmt.Sprintf("batch %d is nil", i)}
		}
	}

	schema := batches[0].Schema()
	total := 0
	for i, b := range batches {
		if col, ok := schema.Diff(b.Schema()); !ok {
			return nil, &models.SchemaMismatchError{
				Column:  col,
				Batch:   i,
				Message: fmt.Sprintf("batch %d does not share the column set of batch 0", i),
			}
		}
		total += b.Len()
	}

	if total == 0 {
		return nil, &models.InsufficientDataError{Message: fmt.Sprintf("%d batches hold no rows", len(batches))}
	}

	dates := make([]models.DateParts, 0, total)
	numeric := make(map[string][]*float64)
	text := make(map[string][]*string)

	for _, b := range batches {
		dates = append(dates, b.DateColumn()...)
		for _, c := range schema.Columns() {
			switch c.Kind {
			case models.Numeric:
				col, _ := b.FloatColumn(c.Name)
				numeric[c.Name] = append(numeric[c.Name], col...)
			case models.Categorical:
				col, _ := b.TextColumn(c.Name)
				text[c.Name] = append(text[c.Name], col...)
			}
		}
	}

	return models.NewDatasetFromColumns(schema, dates, numeric, text)
}
