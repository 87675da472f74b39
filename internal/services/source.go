package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"airquality-platform/internal/models"
	"airquality-platform/internal/repository"
	"airquality-platform/pkg/logging"
)

// BatchSource yields the input batches of one pipeline run, in merge order
type BatchSource interface {
	Name() string
	Load(ctx context.Context) ([]*models.Dataset, error)
}

// missingMarkers are the cell values read as missing
var missingMarkers = []string{"NA", "NaN", ""}

// FileSource reads every station CSV matching a pattern in a directory
type FileSource struct {
	dir     string
	pattern string
	logger  *logging.StructuredLogger
}

// NewFileSource creates a source over dir; pattern defaults to *.csv
func NewFileSource(dir, pattern string, logger *logging.StructuredLogger) *FileSource {
	if pattern == "" {
		pattern = "*.csv"
	}
	return &FileSource{dir: dir, pattern: pattern, logger: logger}
}

func (s *FileSource) Name() string {
	return "files"
}

// Files lists the matching files sorted by name
func (s *FileSource) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Load parses every file into one batch. An empty directory yields no batches;
// the pipeline reports that as insufficient data.
func (s *FileSource) Load(ctx context.Context) ([]*models.Dataset, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[SOURCE_FILES] Found data files", logging.Fields{
		"data_dir":   s.dir,
		"pattern":    s.pattern,
		"file_count": len(files),
	})

	batches := make([]*models.Dataset, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := ReadStationFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
		}

		s.logger.Debug(ctx, "[SOURCE_FILE] File parsed", logging.Fields{
			"file": filepath.Base(path),
			"rows": d.Len(),
		})
		batches = append(batches, d)
	}

	return batches, nil
}

// ReadStationFile parses one station CSV file
func ReadStationFile(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ReadStationCSV(f)
}

// stationTypes declares gota column types so nothing is guessed from the data
func stationTypes() map[string]series.Type {
	types := map[string]series.Type{
		models.ColumnYear:  series.Int,
		models.ColumnMonth: series.Int,
		models.ColumnDay:   series.Int,
	}
	for _, c := range models.StationSchema().Columns() {
		if c.Kind == models.Numeric {
			types[c.Name] = series.Float
		} else {
			types[c.Name] = series.String
		}
	}
	return types
}

// ReadStationCSV parses a station CSV with a header row. Known station columns
// keep their declared kind; any other column is read as categorical, so a file
// with a different layout surfaces as a schema mismatch when batches are merged.
func ReadStationCSV(r io.Reader) (*models.Dataset, error) {
	types := stationTypes()

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues(missingMarkers),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", df.Err)
	}

	return frameToDataset(df)
}

func frameToDataset(df dataframe.DataFrame) (*models.Dataset, error) {
	names := df.Names()
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}
	for _, key := range []string{models.ColumnYear, models.ColumnMonth, models.ColumnDay} {
		if !present[key] {
			return nil, &models.SchemaMismatchError{Column: key, Message: "date column missing from file"}
		}
	}

	station := models.StationSchema()
	var columns []models.Column
	for _, name := range names {
		switch name {
		case models.ColumnYear, models.ColumnMonth, models.ColumnDay:
			continue
		}
		kind, ok := station.Kind(name)
		if !ok {
			kind = models.Categorical
		}
		columns = append(columns, models.Column{Name: name, Kind: kind})
	}
	schema, err := models.NewSchema(columns...)
	if err != nil {
		return nil, err
	}

	n := df.Nrow()
	dates := make([]models.DateParts, n)
	years, months, days := df.Col(models.ColumnYear), df.Col(models.ColumnMonth), df.Col(models.ColumnDay)
	for i := 0; i < n; i++ {
		p, ok := dateParts(years.Elem(i), months.Elem(i), days.Elem(i))
		if !ok {
			return nil, &models.InvalidDateError{Row: i, Year: p.Year, Month: p.Month, Day: p.Day}
		}
		dates[i] = p
	}

	numeric := make(map[string][]*float64)
	text := make(map[string][]*string)
	for _, c := range schema.Columns() {
		col := df.Col(c.Name)
		switch c.Kind {
		case models.Numeric:
			values := make([]*float64, n)
			for i := 0; i < n; i++ {
				if el := col.Elem(i); !el.IsNA() {
					if v := el.Float(); !math.IsNaN(v) && !math.IsInf(v, 0) {
						values[i] = models.Float(v)
					}
				}
			}
			numeric[c.Name] = values
		case models.Categorical:
			values := make([]*string, n)
			for i := 0; i < n; i++ {
				if el := col.Elem(i); !el.IsNA() {
					values[i] = models.String(el.String())
				}
			}
			text[c.Name] = values
		}
	}

	return models.NewDatasetFromColumns(schema, dates, numeric, text)
}

func dateParts(year, month, day series.Element) (models.DateParts, bool) {
	var p models.DateParts
	if year.IsNA() || month.IsNA() || day.IsNA() {
		return p, false
	}
	var err error
	if p.Year, err = year.Int(); err != nil {
		return p, false
	}
	if p.Month, err = month.Int(); err != nil {
		return p, false
	}
	if p.Day, err = day.Int(); err != nil {
		return p, false
	}
	return p, true
}

// PostgresSource loads ingested files back from the observation store
type PostgresSource struct {
	repo   repository.ObservationRepository
	logger *logging.StructuredLogger
}

// NewPostgresSource creates a source over the observation repository
func NewPostgresSource(repo repository.ObservationRepository, logger *logging.StructuredLogger) *PostgresSource {
	return &PostgresSource{repo: repo, logger: logger}
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load returns one batch per stored source file, ordered by file name, with
// rows in their original file order
func (s *PostgresSource) Load(ctx context.Context) ([]*models.Dataset, error) {
	sources, err := s.repo.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[SOURCE_POSTGRES] Found ingested sources", logging.Fields{
		"source_count": len(sources),
	})

	batches := make([]*models.Dataset, 0, len(sources))
	for _, src := range sources {
		observations, err := s.repo.GetObservationsBySource(ctx, src.SourceFile)
		if err != nil {
			return nil, err
		}

		d, err := models.ObservationsToDataset(observations)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild %s: %w", src.SourceFile, err)
		}
		batches = append(batches, d)
	}

	return batches, nil
}
