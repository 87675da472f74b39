package models

import (
	"fmt"
	"sort"
)

// ColumnKind declares how a column is typed and how its gaps are filled
type ColumnKind int

const (
	// Numeric columns hold floating point values and are mean-imputed
	Numeric ColumnKind = iota
	// Categorical columns hold text values and are mode-imputed
	Categorical
)

// String returns string representation of the column kind
func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Date key columns. They are present on every record and are not part of a Schema.
const (
	ColumnYear  = "year"
	ColumnMonth = "month"
	ColumnDay   = "day"
)

// Station file columns
const (
	ColumnNo      = "No"
	ColumnHour    = "hour"
	ColumnPM25    = "PM2.5"
	ColumnPM10    = "PM10"
	ColumnSO2     = "SO2"
	ColumnNO2     = "NO2"
	ColumnCO      = "CO"
	ColumnO3      = "O3"
	ColumnTemp    = "TEMP"
	ColumnPres    = "PRES"
	ColumnDewp    = "DEWP"
	ColumnRain    = "RAIN"
	ColumnWind    = "wd"
	ColumnWSPM    = "WSPM"
	ColumnStation = "station"
)

// CorrelationVariables returns the fixed variable set of the correlation matrix, in matrix order
func CorrelationVariables() []string {
	return []string{ColumnTemp, ColumnO3, ColumnPM25, ColumnPM10, ColumnSO2, ColumnNO2, ColumnCO}
}

// Column is a named, typed column of a dataset
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Schema is the ordered set of imputable columns shared by every record of a dataset
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a schema, rejecting duplicate names and the reserved date keys
func NewSchema(columns ...Column) (Schema, error) {
	s := Schema{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for _, c := range columns {
		if isDateKey(c.Name) {
			return Schema{}, &SchemaMismatchError{
				Column:  c.Name,
				Message: "date key columns are implicit and cannot be declared",
			}
		}
		if _, dup := s.index[c.Name]; dup {
			return Schema{}, &SchemaMismatchError{
				Column:  c.Name,
				Message: "column declared more than once",
			}
		}
		s.index[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}

	return s, nil
}

// MustSchema is NewSchema for package-level fixed layouts
func MustSchema(columns ...Column) Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(fmt.Sprintf("models: invalid schema: %v", err))
	}
	return s
}

// StationSchema returns the column layout of the monitoring station export files
func StationSchema() Schema {
	return MustSchema(
		Column{Name: ColumnNo, Kind: Numeric},
		Column{Name: ColumnHour, Kind: Numeric},
		Column{Name: ColumnPM25, Kind: Numeric},
		Column{Name: ColumnPM10, Kind: Numeric},
		Column{Name: ColumnSO2, Kind: Numeric},
		Column{Name: ColumnNO2, Kind: Numeric},
		Column{Name: ColumnCO, Kind: Numeric},
		Column{Name: ColumnO3, Kind: Numeric},
		Column{Name: ColumnTemp, Kind: Numeric},
		Column{Name: ColumnPres, Kind: Numeric},
		Column{Name: ColumnDewp, Kind: Numeric},
		Column{Name: ColumnRain, Kind: Numeric},
		Column{Name: ColumnWind, Kind: Categorical},
		Column{Name: ColumnWSPM, Kind: Numeric},
		Column{Name: ColumnStation, Kind: Categorical},
	)
}

// Columns returns a copy of the schema columns in declaration order
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in declaration order
func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of declared columns
func (s Schema) Len() int {
	return len(s.columns)
}

// Kind returns the declared kind of a column
func (s Schema) Kind(name string) (ColumnKind, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.columns[i].Kind, true
}

// Has reports whether the column is declared
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Diff compares two schemas as sets of (name, kind) pairs.
// It returns the alphabetically first column that differs, or ok == true when the sets are identical.
func (s Schema) Diff(other Schema) (column string, ok bool) {
	var differing []string

	for _, c := range s.columns {
		k, found := other.Kind(c.Name)
		if !found || k != c.Kind {
			differing = append(differing, c.Name)
		}
	}
	for _, c := range other.columns {
		if !s.Has(c.Name) {
			differing = append(differing, c.Name)
		}
	}

	if len(differing) == 0 {
		return "", true
	}
	sort.Strings(differing)
	return differing[0], false
}

// Equal reports whether both schemas declare the same columns with the same kinds
func (s Schema) Equal(other Schema) bool {
	_, ok := s.Diff(other)
	return ok
}

// RequireNumeric fails with SchemaMismatchError unless every column is declared numeric
func (s Schema) RequireNumeric(columns ...string) error {
	for _, name := range columns {
		kind, ok := s.Kind(name)
		if !ok {
			return &SchemaMismatchError{Column: name, Message: "required column is not declared"}
		}
		if kind != Numeric {
			return &SchemaMismatchError{Column: name, Message: fmt.Sprintf("required column must be numeric, declared %s", kind)}
		}
	}
	return nil
}

func isDateKey(name string) bool {
	return name == ColumnYear || name == ColumnMonth || name == ColumnDay
}
