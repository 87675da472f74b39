package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DateParts holds the date keys present on every record
type DateParts struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Date builds the calendar date, failing when the parts do not name a real day
func (p DateParts) Date() (time.Time, bool) {
	if p.Month < 1 || p.Month > 12 || p.Day < 1 {
		return time.Time{}, false
	}
	t := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
	if t.Year() != p.Year || int(t.Month()) != p.Month || t.Day() != p.Day {
		return time.Time{}, false
	}
	return t, true
}

// Record is one observation row.
// NULL values are represented as nil pointers; absent map keys are also missing.
type Record struct {
	DateParts
	Numeric map[string]*float64
	Text    map[string]*string
}

// MarshalJSON flattens the record into a single object keyed by column name
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3+len(r.Numeric)+len(r.Text))
	out[ColumnYear] = r.Year
	out[ColumnMonth] = r.Month
	out[ColumnDay] = r.Day
	for k, v := range r.Numeric {
		out[k] = v
	}
	for k, v := range r.Text {
		out[k] = v
	}
	return json.Marshal(out)
}

// Dataset is an ordered, column-oriented collection of records sharing one schema.
// A Dataset is built once and treated as immutable afterwards; accessors return copies.
type Dataset struct {
	schema  Schema
	dates   []DateParts
	numeric map[string][]*float64
	text    map[string][]*string
}

// NewDataset creates an empty dataset for the schema
func NewDataset(schema Schema) *Dataset {
	d := &Dataset{
		schema:  schema,
		numeric: make(map[string][]*float64),
		text:    make(map[string][]*string),
	}
	for _, c := range schema.columns {
		switch c.Kind {
		case Numeric:
			d.numeric[c.Name] = nil
		case Categorical:
			d.text[c.Name] = nil
		}
	}
	return d
}

// NewDatasetFromColumns assembles a dataset from whole columns.
// NaN and infinite numeric entries are stored as missing.
// The dataset takes ownership of the slices; callers must not modify them afterwards.
func NewDatasetFromColumns(schema Schema, dates []DateParts, numeric map[string][]*float64, text map[string][]*string) (*Dataset, error) {
	d := NewDataset(schema)
	d.dates = dates

	for _, c := range schema.columns {
		switch c.Kind {
		case Numeric:
			col, ok := numeric[c.Name]
			if !ok {
				return nil, &SchemaMismatchError{Column: c.Name, Message: "numeric column data not supplied"}
			}
			if len(col) != len(dates) {
				return nil, &SchemaMismatchError{Column: c.Name, Message: fmt.Sprintf("column has %d values, expected %d", len(col), len(dates))}
			}
			for i, v := range col {
				col[i] = finiteOrNil(v)
			}
			d.numeric[c.Name] = col
		case Categorical:
			col, ok := text[c.Name]
			if !ok {
				return nil, &SchemaMismatchError{Column: c.Name, Message: "categorical column data not supplied"}
			}
			if len(col) != len(dates) {
				return nil, &SchemaMismatchError{Column: c.Name, Message: fmt.Sprintf("column has %d values, expected %d", len(col), len(dates))}
			}
			d.text[c.Name] = col
		}
	}

	if len(numeric)+len(text) != schema.Len() {
		for name := range numeric {
			if k, ok := schema.Kind(name); !ok || k != Numeric {
				return nil, &SchemaMismatchError{Column: name, Message: "column not declared as numeric"}
			}
		}
		for name := range text {
			if k, ok := schema.Kind(name); !ok || k != Categorical {
				return nil, &SchemaMismatchError{Column: name, Message: "column not declared as categorical"}
			}
		}
	}

	return d, nil
}

// Append adds a record while the dataset is being built.
// Columns absent from the record, and NaN or infinite values, are stored as missing.
func (d *Dataset) Append(r Record) error {
	for name := range r.Numeric {
		if k, ok := d.schema.Kind(name); !ok || k != Numeric {
			return &SchemaMismatchError{Column: name, Message: "value supplied for an undeclared numeric column"}
		}
	}
	for name := range r.Text {
		if k, ok := d.schema.Kind(name); !ok || k != Categorical {
			return &SchemaMismatchError{Column: name, Message: "value supplied for an undeclared categorical column"}
		}
	}

	d.dates = append(d.dates, r.DateParts)
	for name := range d.numeric {
		d.numeric[name] = append(d.numeric[name], copyFloat(finiteOrNil(r.Numeric[name])))
	}
	for name := range d.text {
		d.text[name] = append(d.text[name], copyString(r.Text[name]))
	}
	return nil
}

// Schema returns the dataset schema
func (d *Dataset) Schema() Schema {
	return d.schema
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.dates)
}

// DateColumn returns a copy of the date keys in row order
func (d *Dataset) DateColumn() []DateParts {
	out := make([]DateParts, len(d.dates))
	copy(out, d.dates)
	return out
}

// FloatColumn returns a deep copy of a numeric column
func (d *Dataset) FloatColumn(name string) ([]*float64, bool) {
	col, ok := d.numeric[name]
	if !ok {
		return nil, false
	}
	out := make([]*float64, len(col))
	for i, v := range col {
		out[i] = copyFloat(v)
	}
	return out, true
}

// TextColumn returns a deep copy of a categorical column
func (d *Dataset) TextColumn(name string) ([]*string, bool) {
	col, ok := d.text[name]
	if !ok {
		return nil, false
	}
	out := make([]*string, len(col))
	for i, v := range col {
		out[i] = copyString(v)
	}
	return out, true
}

// Values returns a numeric column with no gaps.
// It fails with ImputationError when any entry is missing.
func (d *Dataset) Values(name string) ([]float64, error) {
	col, ok := d.numeric[name]
	if !ok {
		return nil, &SchemaMismatchError{Column: name, Message: "numeric column not declared"}
	}
	out := make([]float64, len(col))
	for i, v := range col {
		if v == nil {
			return nil, &ImputationError{Column: name, Message: fmt.Sprintf("value missing at row %d, dataset must be imputed first", i)}
		}
		out[i] = *v
	}
	return out, nil
}

// MissingCount returns the number of missing entries in a column
func (d *Dataset) MissingCount(name string) int {
	n := 0
	if col, ok := d.numeric[name]; ok {
		for _, v := range col {
			if v == nil {
				n++
			}
		}
		return n
	}
	for _, v := range d.text[name] {
		if v == nil {
			n++
		}
	}
	return n
}

// Record returns a copy of the i-th row
func (d *Dataset) Record(i int) Record {
	r := Record{
		DateParts: d.dates[i],
		Numeric:   make(map[string]*float64, len(d.numeric)),
		Text:      make(map[string]*string, len(d.text)),
	}
	for name, col := range d.numeric {
		r.Numeric[name] = copyFloat(col[i])
	}
	for name, col := range d.text {
		r.Text[name] = copyString(col[i])
	}
	return r
}

// Head returns copies of the first n rows
func (d *Dataset) Head(n int) []Record {
	if n > d.Len() {
		n = d.Len()
	}
	if n < 0 {
		n = 0
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = d.Record(i)
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// finiteOrNil maps NaN and ±Inf to missing
func finiteOrNil(v *float64) *float64 {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return nil
	}
	return v
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for building records
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to v, for building records
func String(v string) *string {
	return &v
}
