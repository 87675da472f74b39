package analysis

import (
	"gonum.org/v1/gonum/stat"

	"airquality-platform/internal/models"
)

// Impute returns a copy of d with every gap filled.
// Numeric columns get the column mean, categorical columns the most frequent value
// (ties go to the value seen first). Columns with no values at all fail with ImputationError.
func Impute(d *models.Dataset) (*models.Dataset, error) {
	schema := d.Schema()
	numeric := make(map[string][]*float64)
	text := make(map[string][]*string)

	for _, c := range schema.Columns() {
		switch c.Kind {
		case models.Numeric:
			col, _ := d.FloatColumn(c.Name)
			filled, err := fillMean(c.Name, col)
			if err != nil {
				return nil, err
			}
			numeric[c.Name] = filled
		case models.Categorical:
			col, _ := d.TextColumn(c.Name)
			filled, err := fillMode(c.Name, col)
			if err != nil {
				return nil, err
			}
			text[c.Name] = filled
		}
	}

	return models.NewDatasetFromColumns(schema, d.DateColumn(), numeric, text)
}

// fillMean fills nil entries in place; col is already a private copy
func fillMean(column string, col []*float64) ([]*float64, error) {
	present := make([]float64, 0, len(col))
	for _, v := range col {
		if v != nil {
			present = append(present, *v)
		}
	}

	if len(present) == 0 {
		return nil, &models.ImputationError{Column: column, Message: "no values to compute a mean from"}
	}
	if len(present) == len(col) {
		return col, nil
	}

	mean := stat.Mean(present, nil)
	for i, v := range col {
		if v == nil {
			col[i] = models.Float(mean)
		}
	}
	return col, nil
}

func fillMode(column string, col []*string) ([]*string, error) {
	counts := make(map[string]int)
	var order []string
	missing := 0

	for _, v := range col {
		if v == nil {
			missing++
			continue
		}
		if _, seen := counts[*v]; !seen {
			order = append(order, *v)
		}
		counts[*v]++
	}

	if len(order) == 0 {
		return nil, &models.ImputationError{Column: column, Message: "no values to compute a mode from"}
	}
	if missing == 0 {
		return col, nil
	}

	mode := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}

	for i, v := range col {
		if v == nil {
			col[i] = models.String(mode)
		}
	}
	return col, nil
}

// MissingSummary reports missing entries per column, in schema order, for columns that have any.
// An empty result means the dataset is fully populated.
func MissingSummary(d *models.Dataset) []models.MissingColumn {
	var out []models.MissingColumn
	if d.Len() == 0 {
		return out
	}

	for _, name := range d.Schema().Names() {
		n := d.MissingCount(name)
		if n == 0 {
			continue
		}
		out = append(out, models.MissingColumn{
			Column:     name,
			Missing:    n,
			Percentage: float64(n) / float64(d.Len()) * 100,
		})
	}
	return out
}
