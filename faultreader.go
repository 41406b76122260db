//go:build linux

/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"fmt"
	"io"
	"sync"
	"unsafe"

	uffd "github.com/ricardobranco777/go-userfaultfd"
	"golang.org/x/sys/unix"
)

// FaultReader maps a remote stream into memory and materializes pages on
// demand: the first access to a page seeks the stream to the page offset
// and reads it over the wire. Faults arrive in arbitrary order, so the
// mapping exercises the stream's full seek policy (discard for short
// forward hops, reconnect otherwise).
//
// The FaultReader takes ownership of the stream; the fault loop is its
// single logical reader from then on.
type FaultReader struct {
	stream   *Reader
	ufd      *uffd.Uffd
	addr     []byte // mmap'd region
	pageSize int
	done     chan struct{}

	mu       sync.Mutex
	resident *Bitset
}

var _ io.Closer = (*FaultReader)(nil)

// NewFaultReader maps stream using userfaultfd. The stream must be
// seekable and of known length.
func NewFaultReader(stream *Reader) (*FaultReader, error) {
	if !stream.Seekable() {
		return nil, ErrNotSeekable
	}
	n := int(stream.Size())
	if n <= 0 {
		return nil, fmt.Errorf("httpfile: invalid mapping size: %d", n)
	}

	pageSize := unix.Getpagesize()
	length := (n + pageSize - 1) &^ (pageSize - 1)

	// Anonymous mapping; every first touch of a page faults into us.
	addr, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("httpfile: mmap failed: %w", err)
	}

	u, err := uffd.New(uffd.UFFD_USER_MODE_ONLY, 0)
	if err != nil {
		unix.Munmap(addr)
		return nil, fmt.Errorf("httpfile: userfaultfd: %w", err)
	}

	r := &FaultReader{
		stream:   stream,
		ufd:      u,
		addr:     addr,
		pageSize: pageSize,
		done:     make(chan struct{}),
		resident: NewBitset(length / pageSize),
	}

	_, err = u.Register(
		uintptr(unsafe.Pointer(&addr[0])),
		length,
		uffd.UFFDIO_REGISTER_MODE_MISSING,
	)
	if err != nil {
		u.Close()
		unix.Munmap(addr)
		return nil, fmt.Errorf("httpfile: userfaultfd register: %w", err)
	}

	go r.faultLoop()

	return r, nil
}

// faultLoop runs in a goroutine and resolves page faults against the
// stream. A failed page read surfaces as a zero page plus a log entry;
// the fault must be answered either way or the faulting thread hangs.
func (r *FaultReader) faultLoop() {
	base := uintptr(unsafe.Pointer(&r.addr[0]))
	buf := make([]byte, r.pageSize)

	for {
		msg, err := r.ufd.ReadMsg()
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				if logger != nil {
					logger.Error("uffd read event failed", err)
				}
				continue
			}
		}

		switch msg.Event {
		case uffd.UFFD_EVENT_PAGEFAULT:
			fault := (*uffd.UffdMsgPagefault)(unsafe.Pointer(&msg.Data))
			addr := uintptr(fault.Address)
			offset := int64(addr-base) &^ int64(r.pageSize-1)

			clear(buf)
			if err := r.readPage(buf, offset); err != nil {
				if logger != nil {
					logger.Error("page read failed", offset, err)
				}
			}

			pageAddr := addr &^ uintptr(r.pageSize-1)
			_, err = r.ufd.Copy(pageAddr, uintptr(unsafe.Pointer(&buf[0])), r.pageSize, 0)
			if err != nil {
				if logger != nil {
					logger.Error("uffd copy failed", err)
				}
				continue
			}

			r.mu.Lock()
			r.resident.Set(int(offset) / r.pageSize)
			r.mu.Unlock()

		default:
			if logger != nil {
				logger.Error("uffd: unexpected event", msg.Event)
			}
		}
	}
}

// readPage fills p with the page at the given resource offset. The last
// page of the resource is short; the tail stays zero.
func (r *FaultReader) readPage(p []byte, offset int64) error {
	if _, err := r.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if remain := r.stream.Size() - offset; remain < int64(len(p)) {
		if remain <= 0 {
			return nil
		}
		p = p[:remain]
	}
	_, err := io.ReadFull(r.stream, p)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return err
}

// Resident returns how many pages have been materialized so far.
func (r *FaultReader) Resident() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resident.Count()
}

// Bytes returns the mapped region. Accessing it triggers HTTP traffic
// lazily.
func (r *FaultReader) Bytes() []byte {
	return r.addr
}

// Close stops the fault loop, unmaps memory and closes the stream.
func (r *FaultReader) Close() error {
	close(r.done)
	r.ufd.Close()
	err := unix.Munmap(r.addr)
	if cerr := r.stream.Close(); err == nil {
		err = cerr
	}
	return err
}
