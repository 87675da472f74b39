package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/analysis"
	"airquality-platform/internal/models"
)

func TestReadStationCSV(t *testing.T) {
	content := csvRows(
		"1,2013,3,1,0,4,4,4,7,300,77,-0.7,1023,-18.8,0,NNW,4.4,Tiantan",
		"2,2013,3,1,1,8,8,NA,,300,77,NA,1023.2,-18.2,0,NA,4.7,Tiantan",
	)

	d, err := ReadStationCSV(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.True(t, d.Schema().Equal(models.StationSchema()))
	assert.Equal(t, models.DateParts{Year: 2013, Month: 3, Day: 1}, d.DateColumn()[1])

	temps, _ := d.FloatColumn(models.ColumnTemp)
	require.NotNil(t, temps[0])
	assert.Equal(t, -0.7, *temps[0])
	assert.Nil(t, temps[1], "NA is missing")

	so2, _ := d.FloatColumn(models.ColumnSO2)
	assert.Nil(t, so2[1])
	no2, _ := d.FloatColumn(models.ColumnNO2)
	assert.Nil(t, no2[1], "empty cell is missing")

	winds, _ := d.TextColumn(models.ColumnWind)
	assert.Equal(t, "NNW", *winds[0])
	assert.Nil(t, winds[1])
}

func TestReadStationCSVNonFiniteCells(t *testing.T) {
	content := csvRows(
		"1,2013,3,1,0,4,4,4,7,300,77,-1,1023,-18.8,0,NNW,4.4,Tiantan",
		"2,2013,3,1,1,8,9,5,9,310,nan,Inf,1023.2,-18.2,0,N,4.7,Tiantan",
		"3,2013,3,1,2,6,12,3,8,320,80,-Inf,1023.2,-18.2,0,N,4.7,Tiantan",
		"4,2013,3,1,3,5,7,6,10,290,86,3,1023.4,-18.0,0,N,4.1,Tiantan",
	)

	d, err := ReadStationCSV(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 2, d.MissingCount(models.ColumnTemp))
	assert.Equal(t, 1, d.MissingCount(models.ColumnO3))

	res, err := analysis.Run(context.Background(), []*models.Dataset{d}, nil)
	require.NoError(t, err)
	temps, err := res.Imputed.Values(models.ColumnTemp)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 1, 1, 3}, temps)
	assert.False(t, math.IsNaN(res.Summary.TempO3Correlation))
}

func TestReadStationCSVLayouts(t *testing.T) {
	t.Run("extra column is kept as categorical", func(t *testing.T) {
		content := "year,month,day,TEMP,O3,remark\n2013,3,1,1.5,20,ok\n"
		d, err := ReadStationCSV(strings.NewReader(content))
		require.NoError(t, err)

		kind, ok := d.Schema().Kind("remark")
		require.True(t, ok)
		assert.Equal(t, models.Categorical, kind)
		kind, _ = d.Schema().Kind(models.ColumnTemp)
		assert.Equal(t, models.Numeric, kind)
	})

	t.Run("missing date column", func(t *testing.T) {
		_, err := ReadStationCSV(strings.NewReader("year,month,TEMP\n2013,3,1\n"))
		var schemaErr *models.SchemaMismatchError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, models.ColumnDay, schemaErr.Column)
	})

	t.Run("missing date value", func(t *testing.T) {
		_, err := ReadStationCSV(strings.NewReader("year,month,day,TEMP\n2013,3,1,1\n2013,NA,2,2\n"))
		var dateErr *models.InvalidDateError
		require.True(t, errors.As(err, &dateErr))
		assert.Equal(t, 1, dateErr.Row)
	})
}

func TestFileSourceLoadsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "PRSA_Data_Wanliu.csv", csvRows("1,2013,3,2,0,3,3,3,3,300,30,4,1020,-10,0,N,1,Wanliu"))
	writeFile(t, dir, "PRSA_Data_Aotizhongxin.csv", csvRows("1,2013,3,1,0,6,6,6,6,300,10,2,1021,-11,0,S,2,Aotizhongxin"))
	writeFile(t, dir, "notes.txt", "not a station file")

	source := NewFileSource(dir, "", testLogger())
	assert.Equal(t, "files", source.Name())

	batches, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)

	first, _ := batches[0].TextColumn(models.ColumnStation)
	assert.Equal(t, "Aotizhongxin", *first[0])
}

func TestFileSourceEmptyDirectory(t *testing.T) {
	source := NewFileSource(t.TempDir(), "*.csv", testLogger())

	batches, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batches)

	_, err = analysis.Run(context.Background(), batches, nil)
	var insufficient *models.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestPostgresSourceRebuildsBatches(t *testing.T) {
	repo := newMemoryRepository()
	for _, name := range []string{"b.csv", "a.csv"} {
		var rows []*models.Observation
		for i := 2; i >= 0; i-- {
			obs, err := models.ObservationFromRecord(name, i, models.Record{
				DateParts: models.DateParts{Year: 2013, Month: 3, Day: i + 1},
				Numeric:   map[string]*float64{models.ColumnTemp: models.Float(float64(i))},
				Text:      map[string]*string{models.ColumnStation: models.String(name)},
			})
			require.NoError(t, err)
			rows = append(rows, obs)
		}
		_, err := repo.ReplaceSource(context.Background(), name, rows, 1)
		require.NoError(t, err)
	}

	source := NewPostgresSource(repo, testLogger())
	batches, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)

	stations, _ := batches[0].TextColumn(models.ColumnStation)
	assert.Equal(t, "a.csv", *stations[0])

	temps, _ := batches[0].FloatColumn(models.ColumnTemp)
	assert.Equal(t, 0.0, *temps[0])
	assert.Equal(t, 2.0, *temps[2])
	assert.True(t, batches[0].Schema().Equal(models.StationSchema()))
}
