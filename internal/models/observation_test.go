package models

import (
	"errors"
	"testing"
)

// TestObservationFromRecord tests the record to storage row conversion
func TestObservationFromRecord(t *testing.T) {
	tests := []struct {
		name        string
		record      Record
		wantErr     bool
		checkValues func(*testing.T, *Observation)
	}{
		{
			name: "valid record with all values",
			record: Record{
				DateParts: DateParts{Year: 2013, Month: 3, Day: 1},
				Numeric: map[string]*float64{
					ColumnTemp: Float(-0.7),
					ColumnO3:   Float(77),
					ColumnPM25: Float(6),
				},
				Text: map[string]*string{
					ColumnWind:    String("NNW"),
					ColumnStation: String("Tiantan"),
				},
			},
			checkValues: func(t *testing.T, obs *Observation) {
				if obs.SourceFile != "PRSA_Tiantan.csv" {
					t.Errorf("SourceFile = %v, want %v", obs.SourceFile, "PRSA_Tiantan.csv")
				}
				if obs.Temp == nil || *obs.Temp != -0.7 {
					t.Errorf("Temp = %v, want %v", obs.Temp, -0.7)
				}
				if obs.O3 == nil || *obs.O3 != 77 {
					t.Errorf("O3 = %v, want %v", obs.O3, 77)
				}
				if obs.Wind == nil || *obs.Wind != "NNW" {
					t.Errorf("Wind = %v, want %v", obs.Wind, "NNW")
				}
			},
		},
		{
			name: "missing values stay nil",
			record: Record{
				DateParts: DateParts{Year: 2013, Month: 3, Day: 1},
				Numeric:   map[string]*float64{ColumnTemp: nil},
			},
			checkValues: func(t *testing.T, obs *Observation) {
				if obs.Temp != nil {
					t.Error("Temp should be nil for a missing value")
				}
				if obs.O3 != nil {
					t.Error("O3 should be nil when absent from the record")
				}
				if obs.Station != nil {
					t.Error("Station should be nil when absent from the record")
				}
			},
		},
		{
			name: "invalid calendar date",
			record: Record{
				DateParts: DateParts{Year: 2013, Month: 2, Day: 30},
			},
			wantErr: true,
		},
		{
			name: "unknown column",
			record: Record{
				DateParts: DateParts{Year: 2013, Month: 3, Day: 1},
				Numeric:   map[string]*float64{"HUMIDITY": Float(40)},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := ObservationFromRecord("PRSA_Tiantan.csv", 7, tt.record)

			if (err != nil) != tt.wantErr {
				t.Errorf("ObservationFromRecord() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.checkValues != nil {
				tt.checkValues(t, obs)
			}
		})
	}
}

// TestObservationRoundTrip checks stored rows rebuild the same dataset values
func TestObservationRoundTrip(t *testing.T) {
	rec := Record{
		DateParts: DateParts{Year: 2014, Month: 12, Day: 31},
		Numeric:   map[string]*float64{ColumnTemp: Float(1.5), ColumnCO: nil},
		Text:      map[string]*string{ColumnStation: String("Tiantan")},
	}

	obs, err := ObservationFromRecord("a.csv", 1, rec)
	if err != nil {
		t.Fatalf("ObservationFromRecord() error = %v", err)
	}

	d, err := ObservationsToDataset([]*Observation{obs})
	if err != nil {
		t.Fatalf("ObservationsToDataset() error = %v", err)
	}

	if d.Len() != 1 {
		t.Fatalf("Len() = %v, want %v", d.Len(), 1)
	}

	temps, _ := d.FloatColumn(ColumnTemp)
	if temps[0] == nil || *temps[0] != 1.5 {
		t.Errorf("TEMP = %v, want %v", temps[0], 1.5)
	}
	if d.MissingCount(ColumnCO) != 1 {
		t.Errorf("MissingCount(CO) = %v, want %v", d.MissingCount(ColumnCO), 1)
	}
	if d.DateColumn()[0] != rec.DateParts {
		t.Errorf("DateParts = %v, want %v", d.DateColumn()[0], rec.DateParts)
	}
}

// TestPipelineErrors tests error classification
func TestPipelineErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantKind   string
		wantColumn string
	}{
		{&SchemaMismatchError{Column: "O3", Message: "x"}, KindSchemaMismatch, "O3"},
		{&ImputationError{Column: "wd", Message: "x"}, KindImputation, "wd"},
		{&InvalidDateError{Row: 3, Year: 2013, Month: 2, Day: 30}, KindInvalidDate, "date"},
		{&InsufficientDataError{Column: "CO", Message: "x"}, KindInsufficientData, "CO"},
		{&DegenerateFitError{Column: "TEMP", Message: "x"}, KindDegenerateFit, "TEMP"},
		{errors.New("boom"), "", ""},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.wantKind {
			t.Errorf("ErrorKind(%v) = %v, want %v", tt.err, got, tt.wantKind)
		}
		if got := ErrorColumn(tt.err); got != tt.wantColumn {
			t.Errorf("ErrorColumn(%v) = %v, want %v", tt.err, got, tt.wantColumn)
		}
		if te, ok := tt.err.(interface{ IsTransient() bool }); ok && te.IsTransient() {
			t.Errorf("%T should not be transient", tt.err)
		}
	}
}
