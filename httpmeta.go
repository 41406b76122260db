/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Metadata captures ETag and Last-Modified headers for reconnect validation.
type Metadata struct {
	ETag         string
	LastModified string
}

// extractMetadata extracts validator metadata from response headers.
func extractMetadata(h http.Header) Metadata {
	return Metadata{
		ETag:         h.Get("ETag"),
		LastModified: h.Get("Last-Modified"),
	}
}

// ApplyValidators adds conditional headers to a request so a reconnect
// fails fast (HTTP 412) if the resource changed since the first open.
func (m Metadata) ApplyValidators(h http.Header) {
	if m.ETag != "" {
		h.Set("If-Match", m.ETag)
	}
	if m.LastModified != "" {
		h.Set("If-Unmodified-Since", m.LastModified)
	}
}

// totalLength returns the full resource size in bytes: the total embedded
// in a Content-Range header if present, else Content-Length, else 0.
func totalLength(h http.Header) int64 {
	if cr := h.Get("Content-Range"); cr != "" {
		// Format: "bytes start-end/total"
		if parts := strings.Split(cr, "/"); len(parts) == 2 {
			if n, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				return n
			}
		}
		return 0
	}
	if cl := h.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// contentRangeStart returns the first byte offset reported by a
// Content-Range header, and whether the server confirmed the range at all.
func contentRangeStart(h http.Header) (int64, bool) {
	cr := h.Get("Content-Range")
	if !strings.HasPrefix(cr, "bytes ") {
		return 0, false
	}
	span, _, ok := strings.Cut(cr[len("bytes "):], "/")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(span, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// isChunked reports whether the transfer carries no a-priori total length.
func isChunked(resp *Response) bool {
	if resp.Chunked {
		return true
	}
	return strings.Contains(strings.ToLower(resp.Header.Get("Transfer-Encoding")), "chunked")
}

// rangeConfirmed reports whether the server demonstrated byte-range
// support at open time, either by answering with partial content or by
// advertising Accept-Ranges.
func rangeConfirmed(resp *Response) bool {
	if resp.StatusCode == http.StatusPartialContent {
		return true
	}
	if resp.Header.Get("Content-Range") != "" {
		return true
	}
	return strings.Contains(resp.Header.Get("Accept-Ranges"), "bytes")
}

// filename derives a cosmetic resource name from the Content-Disposition
// header, falling back to the last URL path element. Best effort only.
func filename(h http.Header, rawurl string) string {
	if cd := h.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(rawurl); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return ""
}
