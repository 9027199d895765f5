package compression

import (
	"github.com/klauspost/compress/zstd"
)

// minCompressSize is the smallest payload worth compressing. Anchored
// event documents under this size are dominated by JSON key overhead
// and rarely shrink.
const minCompressSize = 128

// Codec handles optional at-rest compression of stored payload
// objects. Object identity is always the digest of the uncompressed
// bytes, so the codec must be fully transparent to readers. Whether a
// given object was stored compressed is the store's bookkeeping, not
// the codec's: payloads are opaque caller bytes and may legitimately
// begin with a zstd frame magic, so the stored form is never sniffed.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

func NewCodec(level int, enabled bool) (*Codec, error) {
	if !enabled {
		return &Codec{enabled: false}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Codec{
		encoder: encoder,
		decoder: decoder,
		enabled: true,
	}, nil
}

// Encode compresses data for storage. The second return reports
// whether the result is actually a zstd frame; it is false when
// compression is disabled, the payload is tiny, or zstd did not
// shrink it, and the input is returned unchanged in those cases.
func (c *Codec) Encode(data []byte) ([]byte, bool) {
	if !c.enabled || len(data) < minCompressSize {
		return data, false
	}

	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(compressed) >= len(data) {
		return data, false
	}
	return compressed, true
}

// Decode restores a compressed stored form to payload bytes. Callers
// only invoke it for objects recorded as compressed; a codec built
// with compression off still decodes, so a store written by a
// compressing writer stays readable.
func (c *Codec) Decode(stored []byte) ([]byte, error) {
	if c.decoder == nil {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		c.decoder = decoder
	}
	return c.decoder.DecodeAll(stored, nil)
}

func (c *Codec) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
