// Package resultset scans arbitrary query results into ordered, serializable
// rows.
package resultset

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Result is a materialized query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Scan reads every row. Driver byte slices become strings so results
// serialize as text.
func Scan(rows *sql.Rows) (*Result, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// ColumnIndex returns the position of column, or -1.
func (r *Result) ColumnIndex(column string) int {
	for i, c := range r.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Records converts the rows into column-ordered records.
func (r *Result) Records() []Record {
	out := make([]Record, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = Record{columns: r.Columns, values: row}
	}
	return out
}

// Record is one row that serializes as an object with keys in column order.
type Record struct {
	columns []string
	values  []any
}

// Columns returns the column names in order.
func (rec Record) Columns() []string { return rec.columns }

// Values returns the values in column order.
func (rec Record) Values() []any { return rec.values }

// Get returns the value of column.
func (rec Record) Get(column string) (any, bool) {
	for i, c := range rec.columns {
		if c == column {
			return rec.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (rec Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range rec.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rec.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeMsgpack implements msgpack.CustomEncoder, keeping column order.
func (rec Record) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(rec.columns)); err != nil {
		return err
	}
	for i, c := range rec.columns {
		if err := enc.EncodeString(c); err != nil {
			return err
		}
		if err := enc.Encode(rec.values[i]); err != nil {
			return err
		}
	}
	return nil
}

var _ msgpack.CustomEncoder = Record{}

// Text renders a scanned value for text formats. Dates at UTC midnight drop
// their time part.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
