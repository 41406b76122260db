/* SPDX-License-Identifier: BSD-2-Clause */

// Package httpfile reads remote HTTP resources as seekable binary
// streams. A Reader hides the one-shot, order-dependent nature of an
// HTTP response body behind a file-like contract: arbitrary-length
// reads, forward and backward seeks, line reading. Small forward seeks
// are served by discarding bytes on the open connection; larger hops and
// backward seeks reopen the connection with a byte-range request.
package httpfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Reader is a read-only, seekable view of a remote HTTP resource.
//
// A Reader is owned by one logical caller at a time; its operations are
// not synchronized against each other. Close is the one exception: it is
// idempotent and safe to call while another operation is in flight, after
// which every operation reports ErrClosed.
//
// Every operation that may touch the network has a Context twin
// (ReadContext, SeekContext, ...); the plain methods are blocking facades
// over the same core.
type Reader struct {
	// Frozen at construction.
	src       URLSource
	opener    Opener
	header    http.Header // caller headers + forced identity encoding
	threshold int64
	length    int64
	chunked   bool
	seekable  bool
	name      string
	meta      Metadata
	validate  bool

	// Mutable stream state. mu exists only so Close may race an
	// in-flight operation; it is never held across network calls.
	mu      sync.Mutex
	closed  bool
	body    io.ReadCloser   // nil while detached
	tracker PositionTracker // non-nil when the body reports its own position
	start   int64           // resource offset the current handle was opened at
	count   int64           // bytes consumed from the handle (manual accounting)
	ended   bool            // final EOF seen; reads stay empty without reconnecting
}

// New opens src and returns a Reader positioned at the configured start
// offset. Construction performs the first network open.
func New(src URLSource, opts ...Option) (*Reader, error) {
	return NewContext(context.Background(), src, opts...)
}

// NewContext is New with a caller-supplied context for the first open.
func NewContext(ctx context.Context, src URLSource, opts ...Option) (*Reader, error) {
	if src == nil {
		return nil, errors.New("httpfile: nil URL source")
	}
	cfg := config{threshold: DefaultSeekThreshold, opener: &HTTPOpener{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	header := make(http.Header, len(cfg.header)+1)
	for k, vv := range cfg.header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	header.Set("Accept-Encoding", "identity")

	r := &Reader{
		src:       src,
		opener:    cfg.opener,
		header:    header,
		threshold: cfg.threshold,
		validate:  cfg.validate,
	}

	link, err := src.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	req := r.requestHeader(link.Header)
	start := cfg.start
	if start > 0 {
		req.Set("Range", fmt.Sprintf("bytes=%d-", start))
	} else if start < 0 {
		req.Set("Range", fmt.Sprintf("bytes=%d", start))
	}

	resp, err := cfg.opener.Open(ctx, link.URL, req)
	if err != nil {
		return nil, err
	}

	r.length = totalLength(resp.Header)
	r.chunked = isChunked(resp)
	r.seekable = rangeConfirmed(resp)
	r.name = filename(resp.Header, link.URL)
	r.meta = extractMetadata(resp.Header)

	if start != 0 {
		if first, ok := contentRangeStart(resp.Header); ok {
			start = first
		} else {
			// The server ignored the byte range. The stream still works
			// from offset 0, but it can never honor a seek.
			start = 0
			r.seekable = false
		}
	}

	if err := r.attach(resp, start); err != nil {
		return nil, err
	}
	return r, nil
}

// requestHeader merges the frozen stream headers with per-link overrides.
func (r *Reader) requestHeader(extra http.Header) http.Header {
	h := make(http.Header, len(r.header)+len(extra))
	for k, vv := range r.header {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	for k, vv := range extra {
		h.Del(k)
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	h.Set("Accept-Encoding", "identity")
	return h
}

// attach binds a fresh transport handle opened at resource offset at.
// Whether the body tracks its own position is probed exactly once here.
func (r *Reader) attach(resp *Response, at int64) error {
	tracker, _ := resp.Body.(PositionTracker)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		resp.Body.Close()
		return ErrClosed
	}
	r.body = resp.Body
	r.tracker = tracker
	r.start = at
	r.count = 0
	r.ended = false
	r.mu.Unlock()
	return nil
}

// detach folds the consumed byte count into the position and releases the
// current handle, leaving the stream DETACHED.
func (r *Reader) detach(ended bool) {
	r.mu.Lock()
	body := r.body
	r.start = r.tellLocked()
	r.count = 0
	r.body, r.tracker = nil, nil
	if ended {
		r.ended = true
	}
	r.mu.Unlock()
	if body != nil {
		body.Close()
	}
}

func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Reader) tellLocked() int64 {
	if r.tracker != nil {
		return r.start + r.tracker.Pos()
	}
	return r.start + r.count
}

// Tell returns the logical byte offset into the full resource.
func (r *Reader) Tell() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tellLocked()
}

// prepare runs the shared read preamble: closed check, length-based fast
// EOF, implicit reconnect while detached. It returns the body to read
// from, or io.EOF when the stream has nothing left to give.
func (r *Reader) prepare(ctx context.Context) (io.ReadCloser, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if !r.chunked && r.tellLocked() >= r.length {
		r.mu.Unlock()
		return nil, io.EOF
	}
	if r.ended {
		r.mu.Unlock()
		return nil, io.EOF
	}
	body := r.body
	r.mu.Unlock()
	if body != nil {
		return body, nil
	}

	if err := r.reconnectTo(ctx, r.Tell()); err != nil {
		return nil, err
	}
	r.mu.Lock()
	body = r.body
	r.mu.Unlock()
	if body == nil {
		// Reconnect landed at or past end-of-resource.
		return nil, io.EOF
	}
	return body, nil
}

// Read fills p from the current position and advances it. It implements
// io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext is Read with a context governing any network activity,
// including an implicit reconnect while detached.
func (r *Reader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		if r.isClosed() {
			return 0, ErrClosed
		}
		return 0, nil
	}
	for attempt := 0; ; attempt++ {
		body, err := r.prepare(ctx)
		if err != nil {
			return 0, err
		}
		n, err := body.Read(p)
		if n > 0 {
			r.mu.Lock()
			if r.tracker == nil {
				r.count += int64(n)
			}
			r.mu.Unlock()
		}
		if err == nil {
			return n, nil
		}
		if errors.Is(err, io.EOF) {
			// For chunked transfers an empty read is the only end
			// signal; otherwise the handle may just have been closed
			// under us short of end-of-resource.
			final := r.chunked || r.Tell() >= r.length
			r.detach(final)
			if n > 0 {
				return n, nil
			}
			if final || attempt > 0 {
				return 0, io.EOF
			}
			continue // resume after a premature close
		}
		if r.isClosed() {
			return n, ErrClosed
		}
		r.detach(false)
		return n, err
	}
}

// ReadBytes reads and returns up to size bytes from the current position.
// A negative size reads to end of stream. At end of stream it returns
// (nil, io.EOF).
func (r *Reader) ReadBytes(size int) ([]byte, error) {
	return r.ReadBytesContext(context.Background(), size)
}

// ReadBytesContext is ReadBytes with a context.
func (r *Reader) ReadBytesContext(ctx context.Context, size int) ([]byte, error) {
	if size == 0 {
		if r.isClosed() {
			return nil, ErrClosed
		}
		return []byte{}, nil
	}
	if size < 0 {
		var out []byte
		buf := make([]byte, copyBufSize)
		for {
			n, err := r.ReadContext(ctx, buf)
			out = append(out, buf[:n]...)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return out, nil
				}
				return out, err
			}
		}
	}
	out := make([]byte, size)
	n := 0
	for n < size {
		m, err := r.ReadContext(ctx, out[n:])
		n += m
		if err != nil {
			if errors.Is(err, io.EOF) {
				if n == 0 {
					return nil, io.EOF
				}
				break
			}
			return out[:n], err
		}
	}
	return out[:n], nil
}

// ReadLine reads until a newline (inclusive) or end of stream, returning
// at most max bytes; max < 0 means no limit. The raw reader reads one
// byte at a time so the stream position stays exact; wrap the Reader in a
// BufferedReader when line reading is the dominant access pattern.
func (r *Reader) ReadLine(max int) ([]byte, error) {
	return r.ReadLineContext(context.Background(), max)
}

// ReadLineContext is ReadLine with a context.
func (r *Reader) ReadLineContext(ctx context.Context, max int) ([]byte, error) {
	if max == 0 {
		if r.isClosed() {
			return nil, ErrClosed
		}
		return []byte{}, nil
	}
	var line []byte
	var b [1]byte
	for max < 0 || len(line) < max {
		n, err := r.ReadContext(ctx, b[:])
		if n > 0 {
			line = append(line, b[0])
			if b[0] == '\n' {
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(line) > 0 {
					return line, nil
				}
				return nil, io.EOF
			}
			return line, err
		}
	}
	return line, nil
}

// ReadLines reads lines until at least hint bytes have been returned in
// total; hint <= 0 reads to end of stream.
func (r *Reader) ReadLines(hint int) ([][]byte, error) {
	return r.ReadLinesContext(context.Background(), hint)
}

// ReadLinesContext is ReadLines with a context.
func (r *Reader) ReadLinesContext(ctx context.Context, hint int) ([][]byte, error) {
	var lines [][]byte
	total := 0
	for hint <= 0 || total < hint {
		line, err := r.ReadLineContext(ctx, -1)
		if len(line) > 0 {
			lines = append(lines, line)
			total += len(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return lines, err
		}
	}
	return lines, nil
}

// Seek repositions the stream. It implements io.Seeker. Forward hops no
// larger than the seek threshold are served by discarding bytes on the
// open connection; everything else reconnects with a byte-range request.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	return r.SeekContext(context.Background(), offset, whence)
}

// SeekContext is Seek with a context.
func (r *Reader) SeekContext(ctx context.Context, offset int64, whence int) (int64, error) {
	if r.isClosed() {
		return 0, ErrClosed
	}
	if !r.seekable {
		return 0, ErrNotSeekable
	}
	cur := r.Tell()
	target, err := resolveWhence(offset, whence, cur, r.length)
	if err != nil {
		return 0, err
	}
	if target < 0 {
		return 0, ErrNegativeSeek
	}
	switch {
	case target == cur:
	case discardable(cur, target, r.threshold) && target <= r.length:
		if err := r.discard(ctx, target-cur); err != nil {
			return 0, err
		}
	default:
		if err := r.reconnectTo(ctx, target); err != nil {
			return 0, err
		}
	}
	return target, nil
}

var discardPool = sync.Pool{
	New: func() any { return make([]byte, copyBufSize) },
}

// discard advances past n bytes of the open connection in bounded chunks,
// never holding the skipped span in memory whole.
func (r *Reader) discard(ctx context.Context, n int64) error {
	buf := discardPool.Get().([]byte)
	defer discardPool.Put(buf)
	for n > 0 {
		chunk := buf
		if n < int64(len(chunk)) {
			chunk = chunk[:n]
		}
		m, err := r.ReadContext(ctx, chunk)
		n -= int64(m)
		if err != nil {
			return err
		}
	}
	return nil
}

// Reconnect closes the current handle and opens a new one at the current
// position. The core never retries a failed open on its own; callers may
// use Reconnect to retry after a transport failure.
func (r *Reader) Reconnect() error {
	return r.ReconnectContext(context.Background())
}

// ReconnectContext is Reconnect with a context.
func (r *Reader) ReconnectContext(ctx context.Context) error {
	if r.isClosed() {
		return ErrClosed
	}
	return r.reconnectTo(ctx, r.Tell())
}

// reconnectTo replaces the transport handle with one opened at target.
// A negative target is relative to end-of-resource, clamped to 0. If
// target lands at or past end-of-resource the stream stays detached with
// its position recorded; opening a connection there would be pointless.
// If the replacement open fails the stream is likewise left detached at
// target, a recoverable condition.
func (r *Reader) reconnectTo(ctx context.Context, target int64) error {
	if target < 0 {
		target = r.length + target
		if target < 0 {
			target = 0
		}
	}
	if !r.seekable && target != 0 {
		return ErrNotSeekable
	}

	// Release the old handle first; a stream owns at most one.
	r.detach(false)
	r.mu.Lock()
	r.start, r.count = target, 0
	r.mu.Unlock()

	if target >= r.length {
		return nil
	}

	link, err := r.src.Resolve(ctx)
	if err != nil {
		return err
	}
	hdr := r.requestHeader(link.Header)
	hdr.Set("Range", fmt.Sprintf("bytes=%d-", target))
	if r.validate {
		r.meta.ApplyValidators(hdr)
	}

	resp, err := r.opener.Open(ctx, link.URL, hdr)
	if err != nil {
		return err
	}
	if got := totalLength(resp.Header); got != r.length {
		resp.Body.Close()
		return &LengthChangedError{Old: r.length, New: got}
	}
	if first, ok := contentRangeStart(resp.Header); ok {
		target = first
	}
	return r.attach(resp, target)
}

// Close releases the transport handle and marks the stream closed. It is
// idempotent and safe to call while another operation is in flight.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	body := r.body
	r.body, r.tracker = nil, nil
	r.mu.Unlock()
	if body != nil {
		return body.Close()
	}
	return nil
}

// Size returns the total resource length in bytes as recorded at the
// first open; 0 for chunked transfers.
func (r *Reader) Size() int64 { return r.length }

// Name returns a best-effort resource name derived from the
// Content-Disposition header or the URL path. Cosmetic only.
func (r *Reader) Name() string { return r.name }

// Chunked reports whether the transfer carries no a-priori total length.
func (r *Reader) Chunked() bool { return r.chunked }

// Seekable reports whether the server confirmed byte-range support at
// open time. It is fixed at construction and never re-probed.
func (r *Reader) Seekable() bool { return r.seekable }

// Readable reports true; a Reader is always readable.
func (r *Reader) Readable() bool { return true }

// Writable reports false; a Reader is an intentionally read-only view.
func (r *Reader) Writable() bool { return false }

// SeekThreshold returns the configured discard-vs-reconnect boundary.
func (r *Reader) SeekThreshold() int64 { return r.threshold }

// Write always fails with ErrReadOnly.
func (r *Reader) Write([]byte) (int, error) { return 0, ErrReadOnly }

// Truncate always fails with ErrReadOnly.
func (r *Reader) Truncate(int64) error { return ErrReadOnly }
