/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
)

// Open opens a remote HTTP resource as a seekable, read-only stream. It
// mirrors os.Open in spirit: the resource must be closed when no longer
// needed.
func Open(url string, opts ...Option) (*Reader, error) {
	return New(StaticSource(url), opts...)
}

// OpenContext is Open with a caller-supplied context for the first open.
func OpenContext(ctx context.Context, url string, opts ...Option) (*Reader, error) {
	return NewContext(ctx, StaticSource(url), opts...)
}

// OpenBuffered opens url and wraps the stream in a BufferedReader.
func OpenBuffered(url string, size int, opts ...Option) (*BufferedReader, error) {
	r, err := Open(url, opts...)
	if err != nil {
		return nil, err
	}
	return NewBufferedReader(r, size), nil
}

// OpenText opens url and wraps the stream in a buffered TextReader; a nil
// enc means UTF-8.
func OpenText(url string, enc encoding.Encoding, opts ...Option) (*TextReader, error) {
	r, err := Open(url, opts...)
	if err != nil {
		return nil, err
	}
	t, err := NewTextReader(r, enc, DefaultBufferSize)
	if err != nil {
		r.Close()
		return nil, err
	}
	return t, nil
}

// OpenMode opens url according to an os-style mode string: "r", "rt" and
// "tr" yield a UTF-8 text reader, "rb" and "br" a raw binary reader.
// Anything else is rejected; the stream never opens for writing.
func OpenMode(url, mode string, opts ...Option) (io.ReadCloser, error) {
	switch mode {
	case "r", "rt", "tr":
		return OpenText(url, nil, opts...)
	case "rb", "br":
		return Open(url, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// Compile-time interface satisfaction checks
var (
	_ io.Reader         = (*Reader)(nil)
	_ io.Seeker         = (*Reader)(nil)
	_ io.Writer         = (*Reader)(nil) // always fails: read-only view
	_ io.ReadSeekCloser = (*Reader)(nil)
	_ io.ReadCloser     = (*BufferedReader)(nil)
	_ io.Seeker         = (*BufferedReader)(nil)
	_ io.ReadCloser     = (*TextReader)(nil)
	_ Opener            = (*HTTPOpener)(nil)
	_ Opener            = (OpenerFunc)(nil)
	_ URLSource         = (SourceFunc)(nil)
	_ URLSource         = (*CachedSource)(nil)
)
