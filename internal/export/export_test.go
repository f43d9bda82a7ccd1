package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/appri/incidentdb/internal/resultset"
)

func sample() *resultset.Result {
	return &resultset.Result{
		Columns: []string{"folio", "fecha", "monto", "LATITUD", "Longitud"},
		Rows: [][]any{
			{"A-1", time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC), int64(10), 25.67, "-100.31"},
			{"A-2", nil, 2.5, nil, nil},
			{"A-3", nil, nil, "25,7", -100.2},
		},
	}
}

func TestForFileType(t *testing.T) {
	tests := []struct {
		fileType string
		ext      string
		mime     string
	}{
		{"", "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"xlsx", "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"CSV", "csv", "text/csv"},
		{"pdf", "csv", "text/csv"},
		{"geojson", "geojson", "application/geo+json"},
		{"arrow", "arrow", "application/vnd.apache.arrow.stream"},
		{"csv.zst", "csv.zst", "application/zstd"},
	}
	for _, tt := range tests {
		t.Run(tt.fileType, func(t *testing.T) {
			enc := ForFileType(tt.fileType)
			assert.Equal(t, tt.ext, enc.Extension())
			assert.Equal(t, tt.mime, enc.ContentType())
			assert.Equal(t, "resultado."+tt.ext, Filename(enc))
		})
	}

	assert.True(t, Known("arrow.zst"))
	assert.True(t, Known(""))
	assert.False(t, Known("pdf"))
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ForFileType(CSV).Encode(&buf, sample()))
	assert.Equal(t,
		"folio,fecha,monto,LATITUD,Longitud\n"+
			"A-1,2023-03-09,10,25.67,-100.31\n"+
			"A-2,,2.5,,\n"+
			"A-3,,,\"25,7\",-100.2\n",
		buf.String())
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ForFileType(XLSX).Encode(&buf, sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"folio", "fecha", "monto", "LATITUD", "Longitud"}, rows[0])
	assert.Equal(t, "A-1", rows[1][0])
	assert.Equal(t, "2023-03-09", rows[1][1])
	assert.Equal(t, "10", rows[1][2])
}

func TestGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ForFileType(GeoJSON).Encode(&buf, sample()))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2, "row without coordinates is skipped")

	first := fc.Features[0]
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{-100.31, 25.67}, first.Geometry.Coordinates)
	assert.Equal(t, "A-1", first.Properties["folio"])
	assert.Equal(t, "2023-03-09", first.Properties["fecha"])
	assert.NotContains(t, first.Properties, "LATITUD")

	assert.Equal(t, []float64{-100.2, 25.7}, fc.Features[1].Geometry.Coordinates)
}

func TestGeoJSON_NoCoordinateColumns(t *testing.T) {
	var buf bytes.Buffer
	res := &resultset.Result{Columns: []string{"folio"}, Rows: [][]any{{"A"}}}
	require.NoError(t, ForFileType(GeoJSON).Encode(&buf, res))
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestArrow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ForFileType(Arrow).Encode(&buf, sample()))

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()

	assert.Equal(t, 5, len(r.Schema().Fields()))
	require.True(t, r.Next())
	rec := r.Record()
	assert.Equal(t, int64(3), rec.NumRows())

	folio := rec.Column(0).(*array.String)
	assert.Equal(t, "A-2", folio.Value(1))
	fecha := rec.Column(1).(*array.String)
	assert.Equal(t, "2023-03-09", fecha.Value(0))
	assert.True(t, fecha.IsNull(1))
}

func TestZstd(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ForFileType("csv.zst").Encode(&buf, sample()))

	dec, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer dec.Close()

	var plain bytes.Buffer
	_, err = plain.ReadFrom(dec)
	require.NoError(t, err)
	assert.Contains(t, plain.String(), "folio,fecha,monto")
}
