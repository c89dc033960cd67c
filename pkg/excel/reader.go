// Package excel turns worksheet rows into list records.
package excel

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/natserract/splist/pkg/record"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrFileNotFound is returned when the workbook path does not exist.
	ErrFileNotFound = errors.New("excel: file not found")

	// ErrNoHeader is returned when the sheet has no header row.
	ErrNoHeader = errors.New("excel: sheet has no header row")
)

// ReadRecords reads sheet (the first sheet when empty) from the workbook at
// path. The first row names the fields; every following non-blank row becomes
// one record with its cells mapped verbatim.
func ReadRecords(path, sheet string) ([]record.Record, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return toRecords(rows)
}

func toRecords(rows [][]string) ([]record.Record, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	named := 0
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		if header[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, ErrNoHeader
	}

	records := make([]record.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(record.Record, named)
		for i, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec[name] = value
		}
		records = append(records, rec)
	}

	return records, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
