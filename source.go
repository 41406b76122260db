/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Link is a resolved resource locator: a URL plus any headers that must
// accompany requests to it, such as the signature headers of a freshly
// signed link.
type Link struct {
	URL    string
	Header http.Header
}

// URLSource produces the URL for each open. The source is re-invoked on
// every reconnect, so expiring links stay fresh across the lifetime of a
// stream. Resolve may block on I/O; it receives the caller's context.
type URLSource interface {
	Resolve(ctx context.Context) (Link, error)
}

// SourceFunc adapts a function to the URLSource interface.
type SourceFunc func(ctx context.Context) (Link, error)

func (f SourceFunc) Resolve(ctx context.Context) (Link, error) {
	return f(ctx)
}

// StaticSource returns a URLSource that always yields the same URL.
func StaticSource(url string) URLSource {
	return staticSource(url)
}

type staticSource string

func (s staticSource) Resolve(context.Context) (Link, error) {
	return Link{URL: string(s)}, nil
}

// CachedSource caches a resolved Link for a fixed time and collapses
// concurrent refreshes into a single producer call, so many streams
// sharing one signed-URL producer do not stampede the signer on
// simultaneous reconnects.
type CachedSource struct {
	src URLSource
	ttl time.Duration

	group singleflight.Group

	mu      sync.Mutex
	link    Link
	expires time.Time
}

// NewCachedSource wraps src with a ttl-bounded cache. A ttl <= 0 caches
// forever, until Invalidate is called.
func NewCachedSource(src URLSource, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, ttl: ttl}
}

func (s *CachedSource) Resolve(ctx context.Context) (Link, error) {
	s.mu.Lock()
	if !s.expires.IsZero() && (s.ttl <= 0 || time.Now().Before(s.expires)) {
		link := s.link
		s.mu.Unlock()
		return link, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("resolve", func() (any, error) {
		link, err := s.src.Resolve(ctx)
		if err != nil {
			return Link{}, err
		}
		s.mu.Lock()
		s.link = link
		s.expires = time.Now().Add(s.ttl)
		s.mu.Unlock()
		return link, nil
	})
	if err != nil {
		return Link{}, err
	}
	return v.(Link), nil
}

// Invalidate drops the cached link so the next Resolve hits the producer.
func (s *CachedSource) Invalidate() {
	s.mu.Lock()
	s.expires = time.Time{}
	s.mu.Unlock()
}
