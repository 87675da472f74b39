package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"airquality-platform/internal/models"
)

// Aggregate derives calendar dates from an imputed dataset and builds the weekly,
// monthly and year×month views of TEMP and O3.
//
// Weeks follow ISO-8601 and start on Monday. Any invalid date aborts the whole
// aggregation with InvalidDateError.
func Aggregate(d *models.Dataset) (*models.Aggregates, error) {
	if err := d.Schema().RequireNumeric(models.ColumnTemp, models.ColumnO3); err != nil {
		return nil, err
	}

	temps, err := d.Values(models.ColumnTemp)
	if err != nil {
		return nil, err
	}
	ozone, err := d.Values(models.ColumnO3)
	if err != nil {
		return nil, err
	}

	dates, err := deriveDates(d.DateColumn())
	if err != nil {
		return nil, err
	}

	return &models.Aggregates{
		Weekly:       weekly(dates, temps, ozone),
		MonthlyTrend: monthlyTrend(dates, temps),
		Pivot:        yearMonthPivot(dates, temps),
		Distribution: monthlyDistribution(dates, temps),
	}, nil
}

func deriveDates(parts []models.DateParts) ([]time.Time, error) {
	dates := make([]time.Time, len(parts))
	for i, p := range parts {
		t, ok := p.Date()
		if !ok {
			return nil, &models.InvalidDateError{Row: i, Year: p.Year, Month: p.Month, Day: p.Day}
		}
		dates[i] = t
	}
	return dates, nil
}

// WeekStart returns the Monday of the ISO week containing t
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekly(dates []time.Time, temps, ozone []float64) []models.WeeklyAggregate {
	type bucket struct {
		temp, o3 []float64
	}
	buckets := make(map[time.Time]*bucket)
	var weeks []time.Time

	for i, t := range dates {
		w := WeekStart(t)
		b, ok := buckets[w]
		if !ok {
			b = &bucket{}
			buckets[w] = b
			weeks = append(weeks, w)
		}
		b.temp = append(b.temp, temps[i])
		b.o3 = append(b.o3, ozone[i])
	}

	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	out := make([]models.WeeklyAggregate, len(weeks))
	for i, w := range weeks {
		b := buckets[w]
		out[i] = models.WeeklyAggregate{
			WeekStart: w,
			Count:     len(b.temp),
			TempMean:  stat.Mean(b.temp, nil),
			TempMin:   floats.Min(b.temp),
			TempMax:   floats.Max(b.temp),
			O3Mean:    stat.Mean(b.o3, nil),
			O3Min:     floats.Min(b.o3),
			O3Max:     floats.Max(b.o3),
		}
	}
	return out
}

func groupByMonth(dates []time.Time, values []float64) map[int][]float64 {
	groups := make(map[int][]float64)
	for i, t := range dates {
		m := int(t.Month())
		groups[m] = append(groups[m], values[i])
	}
	return groups
}

func sortedMonths(groups map[int][]float64) []int {
	months := make([]int, 0, len(groups))
	for m := range groups {
		months = append(months, m)
	}
	sort.Ints(months)
	return months
}

func monthlyTrend(dates []time.Time, temps []float64) []models.MonthlyTrendRow {
	groups := groupByMonth(dates, temps)
	months := sortedMonths(groups)

	out := make([]models.MonthlyTrendRow, len(months))
	for i, m := range months {
		out[i] = models.MonthlyTrendRow{
			Month:    m,
			Count:    len(groups[m]),
			TempMean: stat.Mean(groups[m], nil),
		}
	}
	return out
}

func yearMonthPivot(dates []time.Time, temps []float64) *models.YearMonthPivot {
	groups := make(map[models.YearMonth][]float64)
	for i, t := range dates {
		key := models.YearMonth{Year: t.Year(), Month: int(t.Month())}
		groups[key] = append(groups[key], temps[i])
	}

	cells := make(map[models.YearMonth]float64, len(groups))
	for k, v := range groups {
		cells[k] = stat.Mean(v, nil)
	}
	return models.NewYearMonthPivot(cells)
}

func monthlyDistribution(dates []time.Time, temps []float64) []models.MonthlyDistribution {
	groups := groupByMonth(dates, temps)
	months := sortedMonths(groups)

	out := make([]models.MonthlyDistribution, len(months))
	for i, m := range months {
		sorted := append([]float64(nil), groups[m]...)
		sort.Float64s(sorted)
		out[i] = models.MonthlyDistribution{
			Month:  m,
			Count:  len(sorted),
			Min:    sorted[0],
			Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
			Max:    sorted[len(sorted)-1],
		}
	}
	return out
}
