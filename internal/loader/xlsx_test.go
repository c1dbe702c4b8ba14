package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)

	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}

	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestOpportunitiesFromXLSX(t *testing.T) {
	path := writeTestXLSX(t, "Opportunities", [][]string{
		{"destination_id", "value"},
		{"D1", "100"},
		{"D2", "50.5"},
	})

	got, err := OpportunitiesFromXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"D1": 100, "D2": 50.5}, got)
}

func TestOpportunitiesFromXLSX_BySheetName(t *testing.T) {
	path := writeTestXLSX(t, "jobs", [][]string{
		{"destination_id", "value"},
		{"D1", "7"},
	})

	got, err := OpportunitiesFromXLSX(path, XLSXOptions{SheetName: "jobs"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"D1": 7}, got)

	_, err = OpportunitiesFromXLSX(path, XLSXOptions{SheetName: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "missing" not found`)
}

func TestOpportunitiesFromXLSX_SkipsBlankRows(t *testing.T) {
	path := writeTestXLSX(t, "Sheet1", [][]string{
		{"destination_id", "value"},
		{"D1", "1"},
		{"", ""},
	})

	got, err := OpportunitiesFromXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"D1": 1}, got)
}

func TestOpportunitiesFromXLSX_RejectsNegative(t *testing.T) {
	path := writeTestXLSX(t, "Sheet1", [][]string{
		{"destination_id", "value"},
		{"D1", "-3"},
	})

	_, err := OpportunitiesFromXLSX(path, XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= 0")
}

func TestOpportunitiesFromXLSX_MissingFile(t *testing.T) {
	_, err := OpportunitiesFromXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
}
