package export

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/appri/incidentdb/internal/resultset"
)

type zstdEncoder struct {
	inner Encoder
}

// Zstd wraps enc so its output is ZStandard-compressed.
func Zstd(enc Encoder) Encoder {
	return zstdEncoder{inner: enc}
}

func (z zstdEncoder) ContentType() string { return "application/zstd" }
func (z zstdEncoder) Extension() string   { return z.inner.Extension() + zstdSuffix }

func (z zstdEncoder) Encode(w io.Writer, res *resultset.Result) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return encodeErr(z.Extension(), err)
	}
	if err := z.inner.Encode(zw, res); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return encodeErr(z.Extension(), err)
	}
	return nil
}
