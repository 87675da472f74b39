package models

import (
	"encoding/json"

	"gonum.org/v1/gonum/mat"
)

// CorrelationMatrix is a symmetric Pearson correlation matrix over named variables
type CorrelationMatrix struct {
	variables []string
	index     map[string]int
	values    *mat.SymDense
}

// NewCorrelationMatrix wraps a symmetric matrix whose rows follow variables
func NewCorrelationMatrix(variables []string, values *mat.SymDense) *CorrelationMatrix {
	m := &CorrelationMatrix{
		variables: append([]string(nil), variables...),
		index:     make(map[string]int, len(variables)),
		values:    values,
	}
	for i, v := range variables {
		m.index[v] = i
	}
	return m
}

// Variables returns the row/column labels
func (m *CorrelationMatrix) Variables() []string {
	return append([]string(nil), m.variables...)
}

// Value returns the coefficient between two variables
func (m *CorrelationMatrix) Value(a, b string) (float64, bool) {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return 0, false
	}
	return m.values.At(i, j), true
}

// Rows returns the matrix as nested slices in variable order
func (m *CorrelationMatrix) Rows() [][]float64 {
	n := len(m.variables)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = m.values.At(i, j)
		}
	}
	return rows
}

// MarshalJSON encodes labels plus values
func (m *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Variables []string    `json:"variables"`
		Values    [][]float64 `json:"values"`
	}{
		Variables: m.Variables(),
		Values:    m.Rows(),
	})
}

// Point is one (x, y) pair of a drawable series
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegressionFit is an ordinary least squares line Response = Slope*Predictor + Intercept
type RegressionFit struct {
	Predictor    string  `json:"predictor"`
	Response     string  `json:"response"`
	Slope        float64 `json:"slope"`
	Intercept    float64 `json:"intercept"`
	RSquared     float64 `json:"r_squared"`
	Observations int     `json:"observations"`
	Line         []Point `json:"line"`
}

// Predict evaluates the fitted line at x
func (f RegressionFit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// Summary holds the cross-variable statistics of a dataset
type Summary struct {
	Matrix            *CorrelationMatrix `json:"correlation_matrix"`
	TempO3Correlation float64            `json:"temp_o3_correlation"`
	Regression        RegressionFit      `json:"regression"`
}

// MissingColumn reports the share of missing entries of one column before imputation
type MissingColumn struct {
	Column     string  `json:"column"`
	Missing    int     `json:"missing"`
	Percentage float64 `json:"percentage"`
}
