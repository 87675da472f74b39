package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"airquality-platform/internal/models"
)

// DefaultPreviewRows matches the number of rows shown by a dataframe head
const DefaultPreviewRows = 5

// TextWriter renders a pipeline result as a plain text report
type TextWriter struct {
	out         io.Writer
	previewRows int
	title       lipgloss.Style
	heading     lipgloss.Style
	muted       lipgloss.Style
}

// NewTextWriter creates a report writer. Styling is dropped automatically when
// out is not a terminal.
func NewTextWriter(out io.Writer, previewRows int) *TextWriter {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	r := lipgloss.NewRenderer(out)
	return &TextWriter{
		out:         out,
		previewRows: previewRows,
		title:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		heading:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		muted:       r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Write renders every section of the report in dashboard order
func (w *TextWriter) Write(res *models.Result) error {
	sections := []func(*models.Result) error{
		w.header,
		w.preview,
		w.missing,
		w.weekly,
		w.monthly,
		w.distribution,
		w.heatmap,
		w.correlation,
		w.regression,
		w.conclusion,
	}
	for _, section := range sections {
		if err := section(res); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

func (w *TextWriter) section(name string) {
	fmt.Fprintf(w.out, "\n%s\n%s\n", w.heading.Render(name), strings.Repeat("=", len(name)))
}

func (w *TextWriter) table(write func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	write(tw)
	return tw.Flush()
}

func (w *TextWriter) header(res *models.Result) error {
	fmt.Fprintln(w.out, w.title.Render("Air Quality Analysis Report"))
	fmt.Fprintln(w.out, w.muted.Render(fmt.Sprintf("run %s from %s, %d batches, %d rows, completed %s",
		res.RunID, res.Source, res.Batches, res.Rows, res.CompletedAt.UTC().Format(time.RFC3339))))
	return nil
}

func (w *TextWriter) preview(res *models.Result) error {
	w.section("Data Preview")
	if res.Merged == nil {
		fmt.Fprintln(w.out, "(not available)")
		return nil
	}

	schema := res.Merged.Schema()
	columns := append([]string{models.ColumnYear, models.ColumnMonth, models.ColumnDay}, schema.Names()...)

	return w.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, strings.Join(columns, "\t")+"\t")
		for _, rec := range res.Merged.Head(w.previewRows) {
			cells := []string{strconv.Itoa(rec.Year), strconv.Itoa(rec.Month), strconv.Itoa(rec.Day)}
			for _, name := range schema.Names() {
				cells = append(cells, formatCell(rec, name))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
		}
	})
}

func formatCell(rec models.Record, name string) string {
	if v, ok := rec.Numeric[name]; ok {
		if v == nil {
			return "NaN"
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	if v := rec.Text[name]; v != nil {
		return *v
	}
	return "NaN"
}

func (w *TextWriter) missing(res *models.Result) error {
	w.section("Missing Data Pattern")
	if !res.HasMissingData() {
		fmt.Fprintln(w.out, "No missing data!")
		return nil
	}
	return w.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "column\tmissing\tpercentage\t")
		for _, c := range res.Missing {
			fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t\n", c.Column, c.Missing, c.Percentage)
		}
	})
}

func (w *TextWriter) weekly(res *models.Result) error {
	w.section("Weekly Average Air Temperature")
	return w.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "week\tcount\tTEMP_mean\tTEMP_min\tTEMP_max\tO3_mean\tO3_min\tO3_max\t")
		for _, row := range res.Aggregates.Weekly {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
				row.WeekStart.Format("2006-01-02"), row.Count,
				row.TempMean, row.TempMin, row.TempMax,
				row.O3Mean, row.O3Min, row.O3Max)
		}
	})
}

func (w *TextWriter) monthly(res *models.Result) error {
	w.section("Average Temperature for Each Month of the Year")
	return w.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "month\tcount\tTEMP_mean\t")
		for _, row := range res.Aggregates.MonthlyTrend {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t\n", monthName(row.Month), row.Count, row.TempMean)
		}
	})
}

func (w *TextWriter) distribution(res *models.Result) error {
	w.section("Monthly Temperature Distribution")
	return w.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "month\tmin\tq1\tmedian\tq3\tmax\t")
		for _, row := range res.Aggregates.Distribution {
			fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t\n",
				monthName(row.Month), row.Min, row.Q1, row.Median, row.Q3, row.Max)
		}
	})
}

func (w *TextWriter) heatmap(res *models.Result) error {
	w.section("Monthly Temperature Heatmap Across Years")
	pivot := res.Aggregates.Pivot
	return w.table(func(tw *tabwriter.Writer) {
		header := []string{"month"}
		for _, y := range pivot.Years() {
			header = append(header, strconv.Itoa(y))
		}
		fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

		grid := pivot.Grid()
		for i, m := range pivot.Months() {
			cells := []string{monthName(m)}
			for _, v := range grid[i] {
				if v == nil {
					cells = append(cells, "-")
					continue
				}
				cells = append(cells, fmt.Sprintf("%.1f", *v))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
		}
	})
}

func (w *TextWriter) correlation(res *models.Result) error {
	w.section("Correlation Coefficient Matrix")
	matrix := res.Summary.Matrix
	err := w.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "\t"+strings.Join(matrix.Variables(), "\t")+"\t")
		for i, row := range matrix.Rows() {
			cells := []string{matrix.Variables()[i]}
			for _, v := range row {
				cells = append(cells, fmt.Sprintf("%.2f", v))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w.out, "\nCorrelation coefficient between Temperature (TEMP) and Ozone (O3): %.4f\n", res.Summary.TempO3Correlation)
	return nil
}

func (w *TextWriter) regression(res *models.Result) error {
	w.section("Regression: Temperature vs Ozone Level")
	fit := res.Summary.Regression
	fmt.Fprintf(w.out, "%s = %.4f * %s %s %.4f\n", fit.Response, fit.Slope, fit.Predictor, sign(fit.Intercept), math.Abs(fit.Intercept))
	fmt.Fprintf(w.out, "R^2 = %.4f over %d observations\n", fit.RSquared, fit.Observations)
	return nil
}

func (w *TextWriter) conclusion(res *models.Result) error {
	w.section("Conclusion")
	fmt.Fprintln(w.out, "1. How does air temperature change throughout the year?")
	fmt.Fprintln(w.out, "   "+SeasonalConclusion(res.Aggregates.MonthlyTrend))
	fmt.Fprintln(w.out, "2. How does air temperature (TEMP) relate to ozone (O3)?")
	fmt.Fprintln(w.out, "   "+CorrelationConclusion(res.Summary.TempO3Correlation, res.Summary.Regression.Slope))
	return nil
}

// SeasonalConclusion describes the coldest and warmest months of the monthly trend
func SeasonalConclusion(trend []models.MonthlyTrendRow) string {
	if len(trend) == 0 {
		return "No monthly temperatures are available."
	}
	if len(trend) == 1 {
		return fmt.Sprintf("Only %s is covered (mean %.1f °C); a seasonal pattern cannot be judged.",
			monthName(trend[0].Month), trend[0].TempMean)
	}

	coldest, warmest := trend[0], trend[0]
	for _, row := range trend[1:] {
		if row.TempMean < coldest.TempMean {
			coldest = row
		}
		if row.TempMean > warmest.TempMean {
			warmest = row
		}
	}
	return fmt.Sprintf("Mean temperature ranges from %.1f °C in %s to %.1f °C in %s, a seasonal swing of %.1f °C.",
		coldest.TempMean, monthName(coldest.Month), warmest.TempMean, monthName(warmest.Month),
		warmest.TempMean-coldest.TempMean)
}

// CorrelationConclusion classifies the TEMP/O3 correlation and states the fitted slope
func CorrelationConclusion(r, slope float64) string {
	strength := "weak"
	switch a := math.Abs(r); {
	case a < 0.1:
		return fmt.Sprintf("There is no meaningful linear relationship between TEMP and O3 (r = %.4f).", r)
	case a >= 0.7:
		strength = "strong"
	case a >= 0.3:
		strength = "moderate"
	}

	direction, trend := "positive", "rise"
	if r < 0 {
		direction, trend = "negative", "fall"
	}
	return fmt.Sprintf("TEMP and O3 show a %s %s correlation (r = %.4f): ozone concentrations tend to %s with temperature, by %.2f per °C on the fitted line.",
		strength, direction, r, trend, math.Abs(slope))
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return strconv.Itoa(m)
	}
	return time.Month(m).String()[:3]
}

func sign(v float64) string {
	if v < 0 {
		return "-"
	}
	return "+"
}
