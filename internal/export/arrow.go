package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/appri/incidentdb/internal/resultset"
)

type arrowEncoder struct{}

func (arrowEncoder) ContentType() string { return "application/vnd.apache.arrow.stream" }
func (arrowEncoder) Extension() string   { return Arrow }

// Encode writes an Arrow IPC stream with one record batch. Every column is a
// nullable string, since result columns carry no reliable Arrow type.
func (arrowEncoder) Encode(w io.Writer, res *resultset.Result) error {
	allocator := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(res.Columns))
	for i, c := range res.Columns {
		fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(allocator, schema)
	defer builder.Release()

	for _, row := range res.Rows {
		for i, v := range row {
			sb := builder.Field(i).(*array.StringBuilder)
			if v == nil {
				sb.AppendNull()
				continue
			}
			sb.Append(resultset.Text(v))
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(allocator))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return encodeErr(Arrow, err)
	}
	if err := writer.Close(); err != nil {
		return encodeErr(Arrow, err)
	}
	return nil
}
