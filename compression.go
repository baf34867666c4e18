// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Compression specifies a compression algorithm.
type Compression string

const (
	// CompressionGzip uses Gzip compression (default for payload compression).
	CompressionGzip Compression = "gzip"

	// CompressionSnappy uses Snappy block compression.
	CompressionSnappy Compression = "snappy"

	// CompressionLz4 uses LZ4 frame compression.
	CompressionLz4 Compression = "lz4"

	// CompressionZstd uses Zstandard compression.
	CompressionZstd Compression = "zstd"

	// CompressionNone disables compression.
	CompressionNone Compression = "none"
)

// validateCompression validates the Compression enum value. Empty is valid
// and selects the default.
func validateCompression(codec Compression) error {
	switch codec {
	case "", CompressionGzip, CompressionSnappy, CompressionLz4, CompressionZstd, CompressionNone:
		return nil
	}

	return errors.Join(ErrValidation,
		fmt.Errorf("compression codec '%s' is invalid: must be 'gzip', 'snappy', 'lz4', 'zstd', 'none' or empty", codec))
}

// kgoCodec maps the codec onto franz-go batch compression.
func (c Compression) kgoCodec() kgo.CompressionCodec {
	switch c {
	case CompressionGzip:
		return kgo.GzipCompression()
	case CompressionSnappy:
		return kgo.SnappyCompression()
	case CompressionLz4:
		return kgo.Lz4Compression()
	case CompressionZstd:
		return kgo.ZstdCompression()
	default:
		return kgo.NoCompression()
	}
}

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
)

// Compressor compresses payload bytes with a single codec. It is stateless
// and safe for concurrent use. The same input always produces the same
// output.
type Compressor struct {
	// Codec selects the algorithm. Empty means gzip.
	Codec Compression
}

func (c Compressor) codec() Compression {
	if c.Codec == "" {
		return CompressionGzip
	}
	return c.Codec
}

// Compress compresses b. A nil input returns nil without error.
func (c Compressor) Compress(b []byte) ([]byte, error) {
	if b == nil {
		return nil, nil
	}

	out, err := c.compress(b)
	if err != nil {
		return nil, errors.Join(ErrCompression,
			fmt.Errorf("%s compression failed", c.codec()), err)
	}
	return out, nil
}

func (c Compressor) compress(b []byte) ([]byte, error) {
	switch c.codec() {
	case CompressionNone:
		return bytes.Clone(b), nil

	case CompressionSnappy:
		return snappy.Encode(nil, b), nil

	case CompressionZstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(b, nil), nil

	case CompressionLz4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	return nil, validateCompression(c.Codec)
}

// Decompress reverses Compress. A nil input returns nil without error.
func (c Compressor) Decompress(b []byte) ([]byte, error) {
	if b == nil {
		return nil, nil
	}

	out, err := c.decompress(b)
	if err != nil {
		return nil, errors.Join(ErrCompression,
			fmt.Errorf("%s decompression failed", c.codec()), err)
	}
	return out, nil
}

func (c Compressor) decompress(b []byte) ([]byte, error) {
	switch c.codec() {
	case CompressionNone:
		return bytes.Clone(b), nil

	case CompressionSnappy:
		return snappy.Decode(nil, b)

	case CompressionZstd:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(b, nil)

	case CompressionLz4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(b)))

	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	return nil, validateCompression(c.Codec)
}

// CompressPayload compresses a message value according to its kind:
//
//   - nil stays nil
//   - string values are compressed and returned as a standard base64 string,
//     so the result can still travel as text
//   - []byte values are compressed as is
//   - *wrp.Message values are msgpack encoded, then compressed
//   - any other value is JSON encoded, then compressed
func (c Compressor) CompressPayload(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	if s, ok := v.(string); ok {
		out, err := c.Compress([]byte(s))
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString(out), nil
	}

	encoded, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	if encoded == nil {
		return nil, nil
	}

	return c.Compress(encoded)
}
