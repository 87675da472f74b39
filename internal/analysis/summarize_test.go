package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/models"
)

func TestSummarizeConcreteScenario(t *testing.T) {
	d := buildDataset(t, obs(2013, 3, 1, 2.0, 10.0), obs(2013, 3, 2, 4.0, 20.0))

	summary, err := Summarize(d)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, summary.TempO3Correlation, 1e-12)
	assert.InDelta(t, 5.0, summary.Regression.Slope, 1e-12)
	assert.InDelta(t, 0.0, summary.Regression.Intercept, 1e-12)
	assert.InDelta(t, 1.0, summary.Regression.RSquared, 1e-12)
	assert.Equal(t, 2, summary.Regression.Observations)

	require.Len(t, summary.Regression.Line, 2)
	assert.Equal(t, 2.0, summary.Regression.Line[0].X)
	assert.InDelta(t, 10.0, summary.Regression.Line[0].Y, 1e-12)
	assert.InDelta(t, 20.0, summary.Regression.Line[1].Y, 1e-12)
}

func TestCorrelationMatrixProperties(t *testing.T) {
	d := buildDataset(t,
		obs(2013, 3, 1, 2.5, 40),
		obs(2013, 3, 2, -1, 12),
		obs(2013, 3, 3, 7.25, 61),
		obs(2013, 3, 4, 4, 18),
		obs(2013, 3, 5, 0.5, 55),
	)

	summary, err := Summarize(d)
	require.NoError(t, err)
	m := summary.Matrix

	variables := m.Variables()
	assert.Equal(t, models.CorrelationVariables(), variables)

	for _, a := range variables {
		diag, ok := m.Value(a, a)
		require.True(t, ok)
		assert.Equal(t, 1.0, diag, a)

		for _, b := range variables {
			ab, _ := m.Value(a, b)
			ba, _ := m.Value(b, a)
			assert.Equal(t, ab, ba, "%s/%s", a, b)
			assert.GreaterOrEqual(t, ab, -1.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}

	exact, _ := m.Value(models.ColumnTemp, models.ColumnO3)
	assert.Equal(t, exact, summary.TempO3Correlation)

	_, ok := m.Value("HUMIDITY", models.ColumnTemp)
	assert.False(t, ok)
}

func TestCorrelationNegativeRelation(t *testing.T) {
	d := buildDataset(t,
		obs(2013, 3, 1, 1, 30),
		obs(2013, 3, 2, 2, 20),
		obs(2013, 3, 3, 3, 10),
	)

	m, err := Correlation(d)
	require.NoError(t, err)

	r, _ := m.Value(models.ColumnTemp, models.ColumnO3)
	assert.InDelta(t, -1.0, r, 1e-12)
}

func TestSummarizeErrors(t *testing.T) {
	t.Run("single row", func(t *testing.T) {
		_, err := Summarize(buildDataset(t, obs(2013, 3, 1, 1, 1)))
		var insufficient *models.InsufficientDataError
		assert.True(t, errors.As(err, &insufficient))
	})

	t.Run("zero variance variable", func(t *testing.T) {
		d := buildDataset(t, obs(2013, 3, 1, 1, 7), obs(2013, 3, 2, 2, 7))
		_, err := Summarize(d)
		var insufficient *models.InsufficientDataError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, models.ColumnO3, insufficient.Column)
	})
}

func TestFitDegenerate(t *testing.T) {
	d := buildDataset(t, obs(2013, 3, 1, 5, 1), obs(2013, 3, 2, 5, 2), obs(2013, 3, 3, 5, 3))

	_, err := Fit(d)
	var degenerate *models.DegenerateFitError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, models.ColumnTemp, degenerate.Column)

	// inside Summarize the matrix check fires first
	_, err = Summarize(d)
	var insufficient *models.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestFitLineIsSortedAndDistinct(t *testing.T) {
	d := buildDataset(t,
		obs(2013, 3, 1, 3, 9),
		obs(2013, 3, 2, 1, 4),
		obs(2013, 3, 3, 3, 10),
		obs(2013, 3, 4, 2, 6),
	)

	fit, err := Fit(d)
	require.NoError(t, err)

	require.Len(t, fit.Line, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{fit.Line[0].X, fit.Line[1].X, fit.Line[2].X})
	for _, p := range fit.Line {
		assert.InDelta(t, fit.Predict(p.X), p.Y, 1e-12)
	}
}

func TestCorrelationOverflowIsInsufficientData(t *testing.T) {
	// finite inputs whose squared deviations overflow
	d := buildDataset(t,
		obs(2013, 3, 1, math.MaxFloat64/2, 10),
		obs(2013, 3, 2, -math.MaxFloat64/2, 20),
		obs(2013, 3, 3, math.MaxFloat64/2, 30),
	)

	_, err := Correlation(d)
	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.NotEmpty(t, insufficient.Column)

	_, err = Summarize(d)
	assert.True(t, errors.As(err, &insufficient))
}
