package models

import (
	"encoding/json"
	"sort"
	"time"
)

// WeeklyAggregate holds TEMP and O3 statistics for one ISO week (Monday start)
type WeeklyAggregate struct {
	WeekStart time.Time `json:"week_start"`
	Count     int       `json:"count"`
	TempMean  float64   `json:"temp_mean"`
	TempMin   float64   `json:"temp_min"`
	TempMax   float64   `json:"temp_max"`
	O3Mean    float64   `json:"o3_mean"`
	O3Min     float64   `json:"o3_min"`
	O3Max     float64   `json:"o3_max"`
}

// MonthlyTrendRow holds mean TEMP for a month of the year across all years
type MonthlyTrendRow struct {
	Month    int     `json:"month"`
	Count    int     `json:"count"`
	TempMean float64 `json:"temp_mean"`
}

// MonthlyDistribution summarizes the TEMP spread of a month of the year for box plots
type MonthlyDistribution struct {
	Month  int     `json:"month"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// YearMonth keys a heatmap cell
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// YearMonthPivot holds mean TEMP per (year, month).
// Cells without observations hold no value, which is distinct from zero degrees.
type YearMonthPivot struct {
	cells  map[YearMonth]float64
	years  []int
	months []int
}

// NewYearMonthPivot builds a pivot from populated cells
func NewYearMonthPivot(cells map[YearMonth]float64) *YearMonthPivot {
	p := &YearMonthPivot{cells: make(map[YearMonth]float64, len(cells))}

	yearSeen := make(map[int]bool)
	monthSeen := make(map[int]bool)
	for k, v := range cells {
		p.cells[k] = v
		if !yearSeen[k.Year] {
			yearSeen[k.Year] = true
			p.years = append(p.years, k.Year)
		}
		if !monthSeen[k.Month] {
			monthSeen[k.Month] = true
			p.months = append(p.months, k.Month)
		}
	}
	sort.Ints(p.years)
	sort.Ints(p.months)

	return p
}

// Lookup returns the mean for a cell; ok is false when the cell has no data
func (p *YearMonthPivot) Lookup(year, month int) (value float64, ok bool) {
	value, ok = p.cells[YearMonth{Year: year, Month: month}]
	return value, ok
}

// Len returns the number of populated cells
func (p *YearMonthPivot) Len() int {
	return len(p.cells)
}

// Keys returns the populated cells ordered by year then month
func (p *YearMonthPivot) Keys() []YearMonth {
	keys := make([]YearMonth, 0, len(p.cells))
	for k := range p.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})
	return keys
}

// Years returns the year axis in ascending order
func (p *YearMonthPivot) Years() []int {
	return append([]int(nil), p.years...)
}

// Months returns the month axis in ascending order
func (p *YearMonthPivot) Months() []int {
	return append([]int(nil), p.months...)
}

// Grid returns the heatmap matrix with months as rows and years as columns.
// Empty cells are nil.
func (p *YearMonthPivot) Grid() [][]*float64 {
	grid := make([][]*float64, len(p.months))
	for i, m := range p.months {
		row := make([]*float64, len(p.years))
		for j, y := range p.years {
			if v, ok := p.Lookup(y, m); ok {
				row[j] = Float(v)
			}
		}
		grid[i] = row
	}
	return grid
}

// MarshalJSON encodes the pivot as axes plus a grid with null for empty cells
func (p *YearMonthPivot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Years  []int        `json:"years"`
		Months []int        `json:"months"`
		Cells  [][]*float64 `json:"cells"`
	}{
		Years:  p.Years(),
		Months: p.Months(),
		Cells:  p.Grid(),
	})
}

// TimePoint is one point of a time series
type TimePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Aggregates groups the time-bucketed views of a dataset
type Aggregates struct {
	Weekly       []WeeklyAggregate     `json:"weekly"`
	MonthlyTrend []MonthlyTrendRow     `json:"monthly_trend"`
	Pivot        *YearMonthPivot       `json:"year_month_pivot"`
	Distribution []MonthlyDistribution `json:"monthly_distribution"`
}

// WeeklyTempSeries returns the weekly mean temperature as an ordered series
func (a *Aggregates) WeeklyTempSeries() []TimePoint {
	out := make([]TimePoint, len(a.Weekly))
	for i, w := range a.Weekly {
		out[i] = TimePoint{Time: w.WeekStart, Value: w.TempMean}
	}
	return out
}
