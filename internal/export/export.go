// Package export encodes query results into downloadable files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/appri/incidentdb/internal/resultset"
)

// Encoder writes a result in one file format.
type Encoder interface {
	// ContentType is the MIME type of the output.
	ContentType() string
	// Extension is the file extension without the dot.
	Extension() string
	// Encode writes res to w.
	Encode(w io.Writer, res *resultset.Result) error
}

// File types accepted by ForFileType.
const (
	XLSX    = "xlsx"
	CSV     = "csv"
	GeoJSON = "geojson"
	Arrow   = "arrow"

	zstdSuffix = ".zst"
)

// FileTypes lists the base formats; each also accepts a ".zst" suffix.
var FileTypes = []string{XLSX, CSV, GeoJSON, Arrow}

// ForFileType returns the encoder for a requested file type. An empty type
// means XLSX; anything unrecognized falls back to CSV.
func ForFileType(fileType string) Encoder {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	if base, ok := strings.CutSuffix(ft, zstdSuffix); ok {
		return Zstd(ForFileType(base))
	}
	switch ft {
	case "", XLSX:
		return xlsxEncoder{}
	case GeoJSON:
		return geoJSONEncoder{}
	case Arrow:
		return arrowEncoder{}
	default:
		return csvEncoder{}
	}
}

// Filename returns the attachment name for enc.
func Filename(enc Encoder) string {
	return "resultado." + enc.Extension()
}

// Known reports whether fileType names a supported format.
func Known(fileType string) bool {
	ft := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(fileType)), zstdSuffix)
	if ft == "" {
		return true
	}
	for _, t := range FileTypes {
		if t == ft {
			return true
		}
	}
	return false
}

func encodeErr(format string, err error) error {
	return fmt.Errorf("encode %s: %w", format, err)
}
