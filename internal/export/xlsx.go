package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/appri/incidentdb/internal/resultset"
)

const sheetName = "Sheet1"

type xlsxEncoder struct{}

func (xlsxEncoder) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (xlsxEncoder) Extension() string { return XLSX }

// Encode streams rows into a single sheet. Numbers stay numeric; dates and
// everything else are written as text.
func (xlsxEncoder) Encode(w io.Writer, res *resultset.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return encodeErr(XLSX, err)
	}

	header := make([]any, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return encodeErr(XLSX, err)
	}

	for r, row := range res.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return encodeErr(XLSX, err)
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return encodeErr(XLSX, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return encodeErr(XLSX, err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return encodeErr(XLSX, err)
	}
	return nil
}

func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case int64, int32, int, float64, float32, bool, string:
		return x
	default:
		return resultset.Text(x)
	}
}
