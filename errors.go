/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation invoked after Close.
	ErrClosed = errors.New("httpfile: operation on closed stream")

	// ErrNotSeekable is returned by Seek when the initial open never
	// confirmed byte-range support. A reconnect is never substituted
	// for a real seek on such streams.
	ErrNotSeekable = errors.New("httpfile: not a seekable stream")

	// ErrReadOnly is returned by all write-family operations.
	ErrReadOnly = errors.New("httpfile: stream is read-only")

	// ErrInvalidWhence is returned by Seek for an unrecognized whence.
	ErrInvalidWhence = errors.New("httpfile: invalid seek whence")

	// ErrNegativeSeek is returned by Seek for a negative absolute target.
	ErrNegativeSeek = errors.New("httpfile: negative seek position")

	// ErrInvalidMode is returned by OpenMode for an unsupported mode string.
	ErrInvalidMode = errors.New("httpfile: invalid open mode")

	// ErrUnbufferedText is returned when a text reader is requested
	// without buffering. Decoding needs a buffer to reassemble multi-byte
	// sequences that span reads.
	ErrUnbufferedText = errors.New("httpfile: can't have unbuffered text I/O")
)

// LengthChangedError reports that a reconnect observed a total resource
// length different from the one recorded at the first open. The remote
// resource changed size underneath us; byte offsets are no longer
// meaningful and the stream must be abandoned.
type LengthChangedError struct {
	Old int64
	New int64
}

func (e *LengthChangedError) Error() string {
	return fmt.Sprintf("httpfile: resource length changed: %d -> %d", e.Old, e.New)
}
