package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"airquality-platform/internal/models"
)

// row is a compact test record over the station correlation variables
type row struct {
	y, m, d int
	temp    *float64
	o3      *float64
	wd      *string
}

func f(v float64) *float64 { return models.Float(v) }
func s(v string) *string   { return models.String(v) }

// buildDataset creates a station-schema dataset. PM and gas columns get
// distinct non-constant values so the correlation matrix stays defined.
func buildDataset(t *testing.T, rows ...row) *models.Dataset {
	t.Helper()
	d := models.NewDataset(models.StationSchema())
	for i, r := range rows {
		k := float64(i + 1)
		require.NoError(t, d.Append(models.Record{
			DateParts: models.DateParts{Year: r.y, Month: r.m, Day: r.d},
			Numeric: map[string]*float64{
				models.ColumnNo:   f(k),
				models.ColumnHour: f(float64(i % 24)),
				models.ColumnTemp: r.temp,
				models.ColumnO3:   r.o3,
				models.ColumnPM25: f(k * 3),
				models.ColumnPM10: f(k*k + 1),
				models.ColumnSO2:  f(10 - k),
				models.ColumnNO2:  f(k * 0.5),
				models.ColumnCO:   f(100 + k*k*k),
				models.ColumnPres: f(1010 + k),
				models.ColumnDewp: f(-k),
				models.ColumnRain: f(0),
				models.ColumnWSPM: f(k),
			},
			Text: map[string]*string{
				models.ColumnWind:    r.wd,
				models.ColumnStation: s("Tiantan"),
			},
		}))
	}
	return d
}

// obs is a fully populated row with wind "N"
func obs(y, m, d int, temp, o3 float64) row {
	return row{y: y, m: m, d: d, temp: f(temp), o3: f(o3), wd: s("N")}
}
