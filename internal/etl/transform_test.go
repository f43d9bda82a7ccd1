package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFecha(t *testing.T) {
	day := time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2023-03-09", day, true},
		{"2023-03-09 14:30:00", day, true},
		{"2023-03-09T14:30:00", day, true},
		{"2023-03-09T14:30:00-06:00", day, true},
		{"3/9/2023", day, true},
		{"03/09/2023 14:30", day, true},
		{"3/9/23", day, true},
		{"44994", day, true},
		{"44994.75", day, true},
		{" 2023-03-09 ", day, true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
		{"0", time.Time{}, false},
		{"-5", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFecha(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func rec(folio, corporacion, comentario string) Record {
	return Record{
		"folio":              folio,
		"corporacion":        corporacion,
		"comentarios":        comentario,
		"tipo":               "T-" + corporacion,
		"fecha_carga":        time.Unix(0, 0),
		"version_estructura": "principal",
	}
}

func TestSplit(t *testing.T) {
	records := []Record{
		rec("B", "POLICIA", "zeta"),
		rec("A", "BOMBEROS", ""),
		rec("B", "CRUZ ROJA", " alfa "),
		rec("B", "TRANSITO", "zeta"),
		rec("A", "POLICIA", "   "),
	}

	principal, corporaciones := Split(records)

	require.Len(t, principal, 2)
	assert.Equal(t, "B", principal[0].Folio(), "first appearance order")
	assert.Equal(t, "A", principal[1].Folio())
	assert.Equal(t, "alfa | zeta", principal[0]["comentarios"])
	assert.Equal(t, "", principal[1]["comentarios"])
	assert.Equal(t, "T-POLICIA", principal[0]["tipo"], "first row wins")
	assert.NotContains(t, principal[0], "corporacion")

	require.Len(t, corporaciones, 5)
	assert.Equal(t, "CRUZ ROJA", corporaciones[2]["corporacion"])
	assert.NotContains(t, corporaciones[0], "tipo")
	assert.NotContains(t, corporaciones[0], "comentarios")
	assert.Contains(t, corporaciones[0], "fecha_carga")
}

func TestSplit_DoesNotMutateInput(t *testing.T) {
	records := []Record{rec("A", "X", "uno"), rec("A", "Y", "dos")}
	principal, _ := Split(records)
	assert.Equal(t, "dos | uno", principal[0]["comentarios"])
	assert.Equal(t, "uno", records[0]["comentarios"])
}

func TestFilterNew(t *testing.T) {
	principal, corporaciones := Split([]Record{
		rec("A", "X", ""),
		rec("B", "Y", ""),
		rec("B", "Z", ""),
		rec("C", "X", ""),
	})

	p, c := FilterNew(principal, corporaciones, map[string]struct{}{"A": {}, "C": {}})

	require.Len(t, p, 1)
	assert.Equal(t, "B", p[0].Folio())
	require.Len(t, c, 2)
	for _, r := range c {
		assert.Equal(t, "B", r.Folio())
	}

	p, c = FilterNew(principal, corporaciones, nil)
	assert.Len(t, p, 3)
	assert.Len(t, c, 4)
}

func TestRecordValues(t *testing.T) {
	r := Record{"folio": "A", "fecha": nil}
	assert.Equal(t, []any{"A", nil, nil}, r.Values([]string{"folio", "fecha", "missing"}))
}
