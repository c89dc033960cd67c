package excel

import (
	"path/filepath"
	"testing"

	"github.com/natserract/splist/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "controle.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadRecords_MapsColumnsVerbatim(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Title", "Column1", "Column2"},
		{"first", "a", "b"},
		{"second", "c"},
	})

	records, err := ReadRecords(path, "")
	require.NoError(t, err)

	assert.Equal(t, []record.Record{
		{"Title": "first", "Column1": "a", "Column2": "b"},
		{"Title": "second", "Column1": "c", "Column2": ""},
	}, records)
}

func TestReadRecords_NamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Processos", [][]interface{}{
		{"PROCESSO", "DATA_ENTRADA"},
		{"50500.1/2024", "2024-01-02"},
	})

	records, err := ReadRecords(path, "Processos")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "50500.1/2024", records[0]["PROCESSO"])

	_, err = ReadRecords(path, "Missing")
	assert.Error(t, err)
}

func TestReadRecords_FileNotFound(t *testing.T) {
	_, err := ReadRecords(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestToRecords(t *testing.T) {
	_, err := toRecords(nil)
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = toRecords([][]string{{"", " "}})
	assert.ErrorIs(t, err, ErrNoHeader)

	records, err := toRecords([][]string{
		{" Title ", "", "Obs"},
		{"x", "ignored", "y"},
		{"", "  ", ""},
		{"z"},
	})
	require.NoError(t, err)
	assert.Equal(t, []record.Record{
		{"Title": "x", "Obs": "y"},
		{"Title": "z", "Obs": ""},
	}, records)
}
