package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"airquality-platform/internal/models"
)

// Summarize computes the correlation matrix over the fixed variable set and the TEMP→O3 fit
func Summarize(d *models.Dataset) (*models.Summary, error) {
	matrix, err := Correlation(d)
	if err != nil {
		return nil, err
	}

	fit, err := Fit(d)
	if err != nil {
		return nil, err
	}

	r, _ := matrix.Value(models.ColumnTemp, models.ColumnO3)

	return &models.Summary{
		Matrix:            matrix,
		TempO3Correlation: r,
		Regression:        fit,
	}, nil
}

// Correlation computes the pairwise Pearson matrix over models.CorrelationVariables.
// The diagonal is exactly 1. Fewer than two rows, or a variable without spread,
// fails with InsufficientDataError.
func Correlation(d *models.Dataset) (*models.CorrelationMatrix, error) {
	variables := models.CorrelationVariables()
	if err := d.Schema().RequireNumeric(variables...); err != nil {
		return nil, err
	}
	if d.Len() < 2 {
		return nil, &models.InsufficientDataError{Message: "correlation needs at least 2 rows"}
	}

	columns := make([][]float64, len(variables))
	for i, v := range variables {
		col, err := d.Values(v)
		if err != nil {
			return nil, err
		}
		if !allFinite(col) {
			return nil, &models.InsufficientDataError{Column: v, Message: "non-finite value, correlation undefined"}
		}
		if constant(col) {
			return nil, &models.InsufficientDataError{Column: v, Message: "zero variance, correlation undefined"}
		}
		columns[i] = col
	}

	n := len(variables)
	values := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		values.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			r := stat.Correlation(columns[i], columns[j], nil)
			if math.IsNaN(r) {
				return nil, &models.InsufficientDataError{
					Column:  variables[j],
					Message: fmt.Sprintf("correlation with %s is not a number", variables[i]),
				}
			}
			values.SetSym(i, j, clamp(r))
		}
	}

	return models.NewCorrelationMatrix(variables, values), nil
}

// Fit fits O3 = slope*TEMP + intercept by ordinary least squares.
// The fitted line is sampled at every distinct observed TEMP, ascending.
func Fit(d *models.Dataset) (models.RegressionFit, error) {
	if err := d.Schema().RequireNumeric(models.ColumnTemp, models.ColumnO3); err != nil {
		return models.RegressionFit{}, err
	}

	x, err := d.Values(models.ColumnTemp)
	if err != nil {
		return models.RegressionFit{}, err
	}
	y, err := d.Values(models.ColumnO3)
	if err != nil {
		return models.RegressionFit{}, err
	}

	if !allFinite(y) {
		return models.RegressionFit{}, &models.DegenerateFitError{
			Column:  models.ColumnO3,
			Message: "response has a non-finite value",
		}
	}
	if !allFinite(x) {
		return models.RegressionFit{}, &models.DegenerateFitError{
			Column:  models.ColumnTemp,
			Message: "predictor has a non-finite value",
		}
	}
	if len(x) < 2 || constant(x) {
		return models.RegressionFit{}, &models.DegenerateFitError{
			Column:  models.ColumnTemp,
			Message: "predictor has zero variance",
		}
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if !allFinite([]float64{intercept, slope}) {
		return models.RegressionFit{}, &models.DegenerateFitError{
			Column:  models.ColumnTemp,
			Message: "least squares solution is not finite",
		}
	}

	fit := models.RegressionFit{
		Predictor:    models.ColumnTemp,
		Response:     models.ColumnO3,
		Slope:        slope,
		Intercept:    intercept,
		RSquared:     stat.RSquared(x, y, nil, intercept, slope),
		Observations: len(x),
	}

	for _, xv := range distinctSorted(x) {
		fit.Line = append(fit.Line, models.Point{X: xv, Y: fit.Predict(xv)})
	}

	return fit, nil
}

// constant reports whether every value equals the first; such a column has exactly zero variance
func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	return math.Max(-1, math.Min(1, r))
}

func distinctSorted(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var out []float64
	for _, v := range sorted {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
