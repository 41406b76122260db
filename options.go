/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import "net/http"

type config struct {
	header    http.Header
	start     int64
	threshold int64
	opener    Opener
	validate  bool
}

// Option configures a Reader at construction time. The resulting
// configuration is frozen for the lifetime of the stream.
type Option func(*config)

// WithHeader adds caller headers to every request. Accept-Encoding is
// always forced to identity afterwards; compressed bodies would break
// byte-offset accounting.
func WithHeader(h http.Header) Option {
	return func(c *config) {
		if c.header == nil {
			c.header = make(http.Header)
		}
		for k, vv := range h {
			for _, v := range vv {
				c.header.Add(k, v)
			}
		}
	}
}

// WithStart opens the stream at the given byte offset. A negative start
// is a suffix range: the last -start bytes of the resource.
func WithStart(start int64) Option {
	return func(c *config) { c.start = start }
}

// WithSeekThreshold sets the largest forward hop served by a discard-read
// instead of a reconnect. Negative values are clamped to 0.
func WithSeekThreshold(n int64) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.threshold = n
	}
}

// WithOpener replaces the transport opener.
func WithOpener(o Opener) Option {
	return func(c *config) { c.opener = o }
}

// WithClient is shorthand for WithOpener over the given *http.Client.
func WithClient(client *http.Client) Option {
	return func(c *config) { c.opener = &HTTPOpener{Client: client} }
}

// WithValidators sends If-Match/If-Unmodified-Since on reconnects, built
// from the ETag and Last-Modified observed at the first open.
func WithValidators() Option {
	return func(c *config) { c.validate = true }
}
