package resultset

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/adapters/database/sqlite"
)

func TestScan(t *testing.T) {
	ctx := context.Background()
	a, err := sqlite.NewSQLiteAdapter(database.Config{URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx))
	t.Cleanup(func() { a.Disconnect(ctx) })

	rows, err := a.Query(ctx, `SELECT 'A1' AS zeta, 10 AS alfa, NULL AS nada, CAST('x' AS BLOB) AS raw`)
	require.NoError(t, err)

	res, err := Scan(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alfa", "nada", "raw"}, res.Columns)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, []any{"A1", int64(10), nil, "x"}, res.Rows[0])
	assert.Equal(t, 1, res.ColumnIndex("alfa"))
	assert.Equal(t, -1, res.ColumnIndex("missing"))
}

func TestRecord_KeepsColumnOrder(t *testing.T) {
	res := &Result{
		Columns: []string{"zeta", "alfa", "Coincidencia de Filtro"},
		Rows:    [][]any{{"A1", int64(3), "folio: a1"}},
	}
	data, err := json.Marshal(res.Records())
	require.NoError(t, err)
	assert.Equal(t, `[{"zeta":"A1","alfa":3,"Coincidencia de Filtro":"folio: a1"}]`, string(data))

	packed, err := msgpack.Marshal(res.Records()[0])
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(packed, &decoded))
	assert.Equal(t, "A1", decoded["zeta"])
	assert.EqualValues(t, 3, decoded["alfa"])

	v, ok := res.Records()[0].Get("alfa")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "2023-05-01", Text(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-05-01T10:30:00Z", Text(time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "1.5", Text(1.5))
	assert.Equal(t, "42", Text(int64(42)))
	assert.Equal(t, "true", Text(true))
}
