package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/config"
)

func TestOpenBackendFiles(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Data.Dir = t.TempDir()

	backend, err := OpenBackend(context.Background(), cfg, testLogger(), testMetrics())
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, "files", backend.Source.Name())
	assert.Nil(t, backend.Store)
	assert.NoError(t, backend.Close())
}

func TestOpenBackendUnknownSource(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Data.Source = "s3"

	_, err = OpenBackend(context.Background(), cfg, testLogger(), testMetrics())
	assert.ErrorContains(t, err, `unknown data source "s3"`)
}
