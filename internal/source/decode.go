// Package source reads submission payloads from files, URLs, and datamule
// tar archives, handling the compression and text-encoding variants EDGAR
// content shows up in.
package source

import (
	"bytes"
	"compress/gzip"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decode turns raw submission bytes into text. A gzip or zstandard wrapper
// is detected by magic bytes and unwrapped first; the payload is then
// decoded as UTF-8 when valid, falling back to Latin-1 (which EDGAR used
// for older filings and which maps every byte).
func Decode(data []byte) (string, error) {
	unwrapped, err := unwrap(data)
	if err != nil {
		return "", err
	}
	if utf8.Valid(unwrapped) {
		return string(unwrapped), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(unwrapped)
	if err != nil {
		// Latin-1 decoding cannot fail on byte input; replacement is the
		// last resort for truly damaged payloads.
		return string(bytes.ToValidUTF8(unwrapped, []byte("�"))), nil
	}
	return string(decoded), nil
}

// unwrap removes one gzip or zstd layer, if present.
func unwrap(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, eris.Wrap(err, "source: open gzip stream")
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "source: read gzip stream")
		}
		return out, nil

	case bytes.HasPrefix(data, zstdMagic):
		return DecompressZstd(data)

	default:
		return data, nil
	}
}

// DecompressZstd decompresses a zstandard frame.
func DecompressZstd(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "source: open zstd frame")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "source: read zstd frame")
	}
	return out, nil
}

// IsZstd reports whether the payload starts with a zstandard frame header.
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}
