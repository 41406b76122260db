/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"bufio"
	"errors"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultBufferSize is the buffer size used when none is given.
const DefaultBufferSize = 8192

// BufferedReader adds block buffering on top of a Reader. Seek, Tell and
// Close are delegated to the wrapped reader, adjusted for locally
// buffered bytes; everything else is plain buffering.
type BufferedReader struct {
	raw *Reader
	br  *bufio.Reader
}

// NewBufferedReader wraps r with a read buffer of the given size; size <= 0
// selects DefaultBufferSize.
func NewBufferedReader(r *Reader, size int) *BufferedReader {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &BufferedReader{raw: r, br: bufio.NewReaderSize(r, size)}
}

// Raw returns the wrapped Reader.
func (b *BufferedReader) Raw() *Reader { return b.raw }

func (b *BufferedReader) Read(p []byte) (int, error) {
	return b.br.Read(p)
}

// ReadLine reads until a newline (inclusive) or end of stream.
func (b *BufferedReader) ReadLine() ([]byte, error) {
	line, err := b.br.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return line, err
	}
	return line, nil
}

// Tell returns the logical position, accounting for buffered bytes the
// underlying stream has already consumed.
func (b *BufferedReader) Tell() int64 {
	return b.raw.Tell() - int64(b.br.Buffered())
}

// Seek repositions the stream. A forward hop that stays inside the
// buffer is served from the buffer; anything else is delegated to the
// wrapped reader and the buffer is dropped.
func (b *BufferedReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset += b.Tell()
		whence = io.SeekStart
	}
	if whence == io.SeekStart {
		if d := offset - b.Tell(); d >= 0 && d <= int64(b.br.Buffered()) {
			if !b.raw.Seekable() {
				return 0, ErrNotSeekable
			}
			b.br.Discard(int(d))
			return offset, nil
		}
	}
	pos, err := b.raw.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	b.br.Reset(b.raw)
	return pos, nil
}

func (b *BufferedReader) Close() error { return b.raw.Close() }

// Seekable reports whether the wrapped reader is seekable.
func (b *BufferedReader) Seekable() bool { return b.raw.Seekable() }

// TextReader decodes the stream through a character encoding, yielding
// UTF-8. Decoding requires buffering to reassemble multi-byte sequences
// that span reads, so an unbuffered TextReader cannot be constructed.
type TextReader struct {
	buf *BufferedReader
	enc encoding.Encoding
	dec *transform.Reader
}

// NewTextReader wraps r with a decoder for enc; a nil enc means UTF-8.
// size is the underlying buffer size (size < 0 selects DefaultBufferSize);
// size == 0 is rejected with ErrUnbufferedText.
func NewTextReader(r *Reader, enc encoding.Encoding, size int) (*TextReader, error) {
	if size == 0 {
		return nil, ErrUnbufferedText
	}
	if enc == nil {
		enc = unicode.UTF8
	}
	buf := NewBufferedReader(r, size)
	return &TextReader{
		buf: buf,
		enc: enc,
		dec: transform.NewReader(buf, enc.NewDecoder()),
	}, nil
}

func (t *TextReader) Read(p []byte) (int, error) {
	return t.dec.Read(p)
}

// Seek delegates to the buffered reader and restarts the decoder at the
// new position. Offsets are raw byte offsets into the resource, not
// decoded rune counts.
func (t *TextReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := t.buf.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	t.dec = transform.NewReader(t.buf, t.enc.NewDecoder())
	return pos, nil
}

// Tell returns the raw byte offset of the buffered reader.
func (t *TextReader) Tell() int64 { return t.buf.Tell() }

func (t *TextReader) Close() error { return t.buf.Close() }
