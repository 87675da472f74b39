package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"airquality-platform/internal/models"
)

// Sheet names of the exported workbook
const (
	SheetSummary      = "Summary"
	SheetMissing      = "Missing"
	SheetWeekly       = "Weekly"
	SheetMonthly      = "Monthly"
	SheetDistribution = "Distribution"
	SheetHeatmap      = "Heatmap"
	SheetCorrelation  = "Correlation"
	SheetRegression   = "Regression"
)

// Workbook builds an xlsx workbook with one sheet per result table.
// The caller owns the returned file and must close it.
func Workbook(res *models.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	b := &sheetBuilder{f: f, bold: bold}
	b.summary(res)
	b.missing(res)
	b.weekly(res)
	b.monthly(res)
	b.distribution(res)
	b.heatmap(res)
	b.correlation(res)
	b.regression(res)

	if b.err != nil {
		f.Close()
		return nil, b.err
	}
	return f, nil
}

// SaveWorkbook writes the result workbook to path
func SaveWorkbook(path string, res *models.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// WriteWorkbook streams the result workbook to w
func WriteWorkbook(w io.Writer, res *models.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetBuilder keeps the first error so sheets can be written without checks at every call
type sheetBuilder struct {
	f     *excelize.File
	bold  int
	sheet string
	row   int
	err   error
}

func (b *sheetBuilder) start(name string) {
	if b.err != nil {
		return
	}
	// the default sheet is renamed rather than left empty
	if b.sheet == "" {
		b.err = b.f.SetSheetName(b.f.GetSheetName(0), name)
	} else {
		_, b.err = b.f.NewSheet(name)
	}
	b.sheet, b.row = name, 0
}

func (b *sheetBuilder) header(values ...interface{}) {
	b.append(values)
	if b.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, b.row)
	last, _ := excelize.CoordinatesToCellName(len(values), b.row)
	b.err = b.f.SetCellStyle(b.sheet, first, last, b.bold)
}

func (b *sheetBuilder) append(values []interface{}) {
	if b.err != nil {
		return
	}
	b.row++
	cell, err := excelize.CoordinatesToCellName(1, b.row)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetSheetRow(b.sheet, cell, &values); err != nil {
		b.err = fmt.Errorf("failed to write %s row %d: %w", b.sheet, b.row, err)
	}
}

func (b *sheetBuilder) summary(res *models.Result) {
	b.start(SheetSummary)
	b.header("field", "value")
	b.append([]interface{}{"run_id", res.RunID})
	b.append([]interface{}{"source", res.Source})
	b.append([]interface{}{"batches", res.Batches})
	b.append([]interface{}{"rows", res.Rows})
	b.append([]interface{}{"completed_at", res.CompletedAt.UTC().Format("2006-01-02T15:04:05Z")})
	b.append([]interface{}{"temp_o3_correlation", res.Summary.TempO3Correlation})
}

func (b *sheetBuilder) missing(res *models.Result) {
	b.start(SheetMissing)
	b.header("column", "missing", "percentage")
	for _, c := range res.Missing {
		b.append([]interface{}{c.Column, c.Missing, c.Percentage})
	}
}

func (b *sheetBuilder) weekly(res *models.Result) {
	b.start(SheetWeekly)
	b.header("week", "count", "TEMP_mean", "TEMP_min", "TEMP_max", "O3_mean", "O3_min", "O3_max")
	for _, w := range res.Aggregates.Weekly {
		b.append([]interface{}{
			w.WeekStart.Format("2006-01-02"), w.Count,
			w.TempMean, w.TempMin, w.TempMax,
			w.O3Mean, w.O3Min, w.O3Max,
		})
	}
}

func (b *sheetBuilder) monthly(res *models.Result) {
	b.start(SheetMonthly)
	b.header("month", "count", "TEMP_mean")
	for _, m := range res.Aggregates.MonthlyTrend {
		b.append([]interface{}{m.Month, m.Count, m.TempMean})
	}
}

func (b *sheetBuilder) distribution(res *models.Result) {
	b.start(SheetDistribution)
	b.header("month", "count", "min", "q1", "median", "q3", "max")
	for _, d := range res.Aggregates.Distribution {
		b.append([]interface{}{d.Month, d.Count, d.Min, d.Q1, d.Median, d.Q3, d.Max})
	}
}

func (b *sheetBuilder) heatmap(res *models.Result) {
	b.start(SheetHeatmap)
	pivot := res.Aggregates.Pivot

	header := []interface{}{"month"}
	for _, y := range pivot.Years() {
		header = append(header, y)
	}
	b.header(header...)

	grid := pivot.Grid()
	for i, m := range pivot.Months() {
		row := []interface{}{m}
		for _, v := range grid[i] {
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, *v)
		}
		b.append(row)
	}
}

func (b *sheetBuilder) correlation(res *models.Result) {
	b.start(SheetCorrelation)
	matrix := res.Summary.Matrix

	header := []interface{}{""}
	for _, v := range matrix.Variables() {
		header = append(header, v)
	}
	b.header(header...)

	for i, values := range matrix.Rows() {
		row := []interface{}{matrix.Variables()[i]}
		for _, v := range values {
			row = append(row, v)
		}
		b.append(row)
	}
}

func (b *sheetBuilder) regression(res *models.Result) {
	fit := res.Summary.Regression
	b.start(SheetRegression)
	b.header("predictor", "response", "slope", "intercept", "r_squared", "observations")
	b.append([]interface{}{fit.Predictor, fit.Response, fit.Slope, fit.Intercept, fit.RSquared, fit.Observations})
	b.append(nil)
	b.header(fit.Predictor, "fitted_"+fit.Response)
	for _, p := range fit.Line {
		b.append([]interface{}{p.X, p.Y})
	}
}
