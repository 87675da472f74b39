package models

import "time"

// Result is everything one pipeline run produces.
// It is built once and never mutated.
type Result struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	Batches     int             `json:"batches"`
	Rows        int             `json:"rows"`
	Missing     []MissingColumn `json:"missing"`
	Merged      *Dataset        `json:"-"`
	Imputed     *Dataset        `json:"-"`
	Aggregates  *Aggregates     `json:"aggregates"`
	Summary     *Summary        `json:"summary"`
	CompletedAt time.Time       `json:"completed_at"`
}

// HasMissingData reports whether the merged input had any gaps before imputation
func (r *Result) HasMissingData() bool {
	return len(r.Missing) > 0
}
