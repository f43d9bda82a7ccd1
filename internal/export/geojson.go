package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/appri/incidentdb/internal/resultset"
)

// Coordinate columns, matched case-insensitively.
const (
	latitudeColumn  = "latitud"
	longitudeColumn = "longitud"
)

type geoJSONEncoder struct{}

func (geoJSONEncoder) ContentType() string { return "application/geo+json" }
func (geoJSONEncoder) Extension() string   { return GeoJSON }

// Encode writes a FeatureCollection of points. Rows whose coordinates are
// missing, unparseable or out of range are skipped; the remaining columns
// become feature properties.
func (geoJSONEncoder) Encode(w io.Writer, res *resultset.Result) error {
	lat, lon := -1, -1
	for i, c := range res.Columns {
		switch strings.ToLower(c) {
		case latitudeColumn:
			lat = i
		case longitudeColumn:
			lon = i
		}
	}

	fc := geojson.NewFeatureCollection()
	if lat >= 0 && lon >= 0 {
		for _, row := range res.Rows {
			y, okLat := coordinate(row[lat], 90)
			x, okLon := coordinate(row[lon], 180)
			if !okLat || !okLon {
				continue
			}
			f := geojson.NewFeature(orb.Point{x, y})
			for i, c := range res.Columns {
				if i == lat || i == lon {
					continue
				}
				f.Properties[c] = property(row[i])
			}
			fc.Append(f)
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return encodeErr(GeoJSON, err)
	}
	if _, err := w.Write(data); err != nil {
		return encodeErr(GeoJSON, err)
	}
	return nil
}

func coordinate(v any, limit float64) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(x, ",", ".")), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < -limit || f > limit {
		return 0, false
	}
	return f, true
}

func property(v any) any {
	if t, ok := v.(time.Time); ok {
		return resultset.Text(t)
	}
	return v
}
