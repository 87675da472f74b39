package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/config"
	"airquality-platform/internal/models"
)

const stationCSV = `No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station
1,2013,3,1,0,6,18,5,NA,800,88,-0.5,1024.5,-21.4,0,NNW,5.7,Tiantan
2,2013,3,1,1,6,15,5,NA,800,88,-0.7,1025.1,-22.1,0,NW,3.9,Tiantan
3,2013,4,2,0,5,18,NA,12,700,95,NA,1025.3,-24.6,0,NNW,5.3,Tiantan
4,2014,4,3,0,8,20,6,19,900,100,3.1,1024.0,-19.0,0,NA,2.0,Tiantan
`

func TestRunWritesReportAndWorkbook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PRSA_Data_Tiantan.csv"), []byte(stationCSV), 0o644))

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Data.Dir = dir
	cfg.Logging.Level = "error"
	cfg.Report.XLSXPath = filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))

	text := out.String()
	assert.Contains(t, text, "Correlation coefficient between Temperature (TEMP) and Ozone (O3): ")
	assert.Contains(t, text, "Missing Data Pattern")
	assert.Contains(t, text, models.ColumnNO2)
	assert.Contains(t, text, "2013-02-25")
	assert.True(t, strings.Contains(text, "2014"), "heatmap spans both years")

	_, err = os.Stat(cfg.Report.XLSXPath)
	assert.NoError(t, err)
}

func TestRunEmptyDirectory(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Data.Dir = t.TempDir()
	cfg.Logging.Level = "error"

	var out bytes.Buffer
	err = run(context.Background(), cfg, &out)
	require.Error(t, err)
	assert.Equal(t, models.KindInsufficientData, models.ErrorKind(err))
	assert.Empty(t, out.String())
}
