package repository

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/models"
)

func TestChunk(t *testing.T) {
	rows := make([]*models.Observation, 5)
	for i := range rows {
		rows[i] = &models.Observation{RowNumber: i + 1}
	}

	tests := []struct {
		size  int
		sizes []int
	}{
		{2, []int{2, 2, 1}},
		{5, []int{5}},
		{10, []int{5}},
	}

	for _, tt := range tests {
		parts := chunk(rows, tt.size)
		got := make([]int, len(parts))
		for i, p := range parts {
			got[i] = len(p)
		}
		assert.Equal(t, tt.sizes, got, "size %d", tt.size)
		assert.Equal(t, 1, parts[0][0].RowNumber)
	}

	assert.Empty(t, chunk(nil, 3))
}

func TestReplaceSourceRejectsForeignRows(t *testing.T) {
	repo := NewObservationRepository(nil, nil, nil)

	_, err := repo.ReplaceSource(context.Background(), "a.csv",
		[]*models.Observation{{SourceFile: "a.csv"}, {SourceFile: "b.csv", RowNumber: 1}}, 10)
	assert.ErrorContains(t, err, `observation from "b.csv"`)
}

func dbTags(t *testing.T) map[string]bool {
	t.Helper()
	tags := make(map[string]bool)
	typ := reflect.TypeOf(models.Observation{})
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("db"); tag != "" {
			tags[tag] = true
		}
	}
	return tags
}

func TestInsertStatementMatchesObservationFields(t *testing.T) {
	tags := dbTags(t)

	params := regexp.MustCompile(`:([a-z0-9_]+)`).FindAllStringSubmatch(insertObservationSQL, -1)
	require.NotEmpty(t, params)
	for _, p := range params {
		assert.True(t, tags[p[1]], "named parameter %q has no db tag", p[1])
	}

	// every column except the generated id is written
	assert.Len(t, params, len(tags)-1)
	assert.Less(t, len(params)*maxRowsPerStatement, 65535)
}

func TestSelectStatementMatchesObservationFields(t *testing.T) {
	tags := dbTags(t)

	body := selectObservationsSQL[strings.Index(selectObservationsSQL, "SELECT")+len("SELECT") : strings.Index(selectObservationsSQL, "FROM")]
	var columns []string
	for _, c := range strings.Split(body, ",") {
		columns = append(columns, strings.TrimSpace(c))
	}

	assert.Len(t, columns, len(tags))
	for _, c := range columns {
		assert.True(t, tags[c], "column %q has no db tag", c)
	}
	assert.Contains(t, selectObservationsSQL, "ORDER BY row_number")
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "source_file", ID: "PRSA_Data_Tiantan.csv"}
	assert.Equal(t, "source_file not found: PRSA_Data_Tiantan.csv", err.Error())
	assert.False(t, err.IsTransient())
}
