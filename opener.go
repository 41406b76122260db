/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Response is the transport handle returned by an Opener: the raw byte
// body plus the response headers the core inspects for length, range and
// chunked detection. A Response is owned exclusively by one Reader and is
// replaced wholesale on every reconnect, never shared or cloned.
type Response struct {
	Body       io.ReadCloser
	Header     http.Header
	StatusCode int
	Chunked    bool
}

// PositionTracker is implemented by handle bodies that track how many
// bytes have been consumed from them. When present, the Reader derives
// its offset from the body instead of summing read counts; the two
// accounting sources are never combined.
type PositionTracker interface {
	Pos() int64
}

// Opener performs one HTTP GET and returns the transport handle.
// Implementations must fail on non-success status; the core surfaces the
// error unchanged and never retries an open.
type Opener interface {
	Open(ctx context.Context, url string, header http.Header) (*Response, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, url string, header http.Header) (*Response, error)

func (f OpenerFunc) Open(ctx context.Context, url string, header http.Header) (*Response, error) {
	return f(ctx, url, header)
}

// HTTPOpener is the default Opener. If Client is nil, http.DefaultClient
// is used.
type HTTPOpener struct {
	Client *http.Client
}

func (o *HTTPOpener) Open(ctx context.Context, url string, header http.Header) (*Response, error) {
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	logRequest(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("httpfile: GET %s returned %s", url, resp.Status)
	}

	logResponse(resp)

	// net/http moves Transfer-Encoding and sometimes Content-Length out
	// of the header map; put the signals back where the core looks.
	h := resp.Header.Clone()
	if h.Get("Content-Length") == "" && resp.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	chunked := false
	for _, te := range resp.TransferEncoding {
		if te == "chunked" {
			chunked = true
		}
	}

	return &Response{
		Body:       resp.Body,
		Header:     h,
		StatusCode: resp.StatusCode,
		Chunked:    chunked,
	}, nil
}
