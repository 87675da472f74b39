package models

import (
	"time"
)

// Observation is one stored station row.
// NULL values are represented as pointers, matching NA entries of the source files.
type Observation struct {
	ID         int64     `json:"id" db:"id"`
	SourceFile string    `json:"source_file" db:"source_file"`
	RowNumber  int       `json:"row_number" db:"row_number"`
	Year       int       `json:"year" db:"year"`
	Month      int       `json:"month" db:"month"`
	Day        int       `json:"day" db:"day"`
	No         *float64  `json:"no,omitempty" db:"no"`
	Hour       *float64  `json:"hour,omitempty" db:"hour"`
	PM25       *float64  `json:"pm25,omitempty" db:"pm25"`
	PM10       *float64  `json:"pm10,omitempty" db:"pm10"`
	SO2        *float64  `json:"so2,omitempty" db:"so2"`
	NO2        *float64  `json:"no2,omitempty" db:"no2"`
	CO         *float64  `json:"co,omitempty" db:"co"`
	O3         *float64  `json:"o3,omitempty" db:"o3"`
	Temp       *float64  `json:"temp,omitempty" db:"temp"`
	Pres       *float64  `json:"pres,omitempty" db:"pres"`
	Dewp       *float64  `json:"dewp,omitempty" db:"dewp"`
	Rain       *float64  `json:"rain,omitempty" db:"rain"`
	Wind       *string   `json:"wd,omitempty" db:"wd"`
	WSPM       *float64  `json:"wspm,omitempty" db:"wspm"`
	Station    *string   `json:"station,omitempty" db:"station"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// numericFields maps station columns to their storage fields
func (o *Observation) numericFields() map[string]**float64 {
	return map[string]**float64{
		ColumnNo:   &o.No,
		ColumnHour: &o.Hour,
		ColumnPM25: &o.PM25,
		ColumnPM10: &o.PM10,
		ColumnSO2:  &o.SO2,
		ColumnNO2:  &o.NO2,
		ColumnCO:   &o.CO,
		ColumnO3:   &o.O3,
		ColumnTemp: &o.Temp,
		ColumnPres: &o.Pres,
		ColumnDewp: &o.Dewp,
		ColumnRain: &o.Rain,
		ColumnWSPM: &o.WSPM,
	}
}

func (o *Observation) textFields() map[string]**string {
	return map[string]**string{
		ColumnWind:    &o.Wind,
		ColumnStation: &o.Station,
	}
}

// ObservationFromRecord converts a station record into its storage row.
// The record must follow StationSchema.
func ObservationFromRecord(sourceFile string, rowNumber int, r Record) (*Observation, error) {
	if _, ok := r.DateParts.Date(); !ok {
		return nil, &InvalidDateError{Row: rowNumber, Year: r.Year, Month: r.Month, Day: r.Day}
	}

	obs := &Observation{
		SourceFile: sourceFile,
		RowNumber:  rowNumber,
		Year:       r.Year,
		Month:      r.Month,
		Day:        r.Day,
		CreatedAt:  time.Now().UTC(),
	}

	numeric := obs.numericFields()
	for name, v := range r.Numeric {
		field, ok := numeric[name]
		if !ok {
			return nil, &SchemaMismatchError{Column: name, Message: "not a station column"}
		}
		*field = copyFloat(v)
	}

	text := obs.textFields()
	for name, v := range r.Text {
		field, ok := text[name]
		if !ok {
			return nil, &SchemaMismatchError{Column: name, Message: "not a station column"}
		}
		*field = copyString(v)
	}

	return obs, nil
}

// ToRecord converts a stored row back into a station record
func (o *Observation) ToRecord() Record {
	r := Record{
		DateParts: DateParts{Year: o.Year, Month: o.Month, Day: o.Day},
		Numeric:   make(map[string]*float64),
		Text:      make(map[string]*string),
	}
	for name, field := range o.numericFields() {
		r.Numeric[name] = copyFloat(*field)
	}
	for name, field := range o.textFields() {
		r.Text[name] = copyString(*field)
	}
	return r
}

// ObservationsToDataset rebuilds a station dataset from stored rows, keeping their order
func ObservationsToDataset(observations []*Observation) (*Dataset, error) {
	d := NewDataset(StationSchema())
	for _, obs := range observations {
		if err := d.Append(obs.ToRecord()); err != nil {
			return nil, err
		}
	}
	return d, nil
}
