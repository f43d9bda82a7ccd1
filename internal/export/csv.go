package export

import (
	"encoding/csv"
	"io"

	"github.com/appri/incidentdb/internal/resultset"
)

type csvEncoder struct{}

func (csvEncoder) ContentType() string { return "text/csv" }
func (csvEncoder) Extension() string   { return CSV }

// Encode writes a header row followed by one line per row. NULL is empty.
func (csvEncoder) Encode(w io.Writer, res *resultset.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return encodeErr(CSV, err)
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			record[i] = resultset.Text(v)
		}
		if err := cw.Write(record); err != nil {
			return encodeErr(CSV, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return encodeErr(CSV, err)
	}
	return nil
}
