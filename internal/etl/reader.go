package etl

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// Sheet is the active worksheet of a workbook: trimmed headers and every
// non-empty data row as text.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// ReadWorkbook reads the active sheet of the workbook at path. Blank headers
// are named columna_<n>; rows with no values are skipped.
func ReadWorkbook(fs afero.Fs, path string) (*Sheet, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	wb, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	defer wb.Close()

	name := wb.GetSheetName(wb.GetActiveSheetIndex())
	rows, err := wb.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	defer rows.Close()

	sheet := &Sheet{}
	first := true
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if first {
			first = false
			sheet.Headers = make([]string, len(cols))
			for i, h := range cols {
				h = strings.TrimSpace(h)
				if h == "" {
					h = fmt.Sprintf("columna_%d", i+1)
				}
				sheet.Headers[i] = h
			}
			continue
		}
		if blank(cols) {
			continue
		}
		sheet.Rows = append(sheet.Rows, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return sheet, nil
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
