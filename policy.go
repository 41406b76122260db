/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import "io"

// DefaultSeekThreshold is the default largest forward hop served by a
// discard-read instead of a reconnect: 1 MiB.
const DefaultSeekThreshold = 1 << 20

// copyBufSize bounds discard-read chunks so a skipped span is never held
// in memory whole.
const copyBufSize = 32 * 1024

// discardable reports whether moving from cur to target can be served by
// reading and throwing away bytes on the open connection. Opening a new
// connection has a fixed cost while discarding costs transfer time
// proportional to the hop, so small forward hops stay on the wire. The
// threshold boundary is inclusive: a hop of exactly threshold bytes still
// discards.
func discardable(cur, target, threshold int64) bool {
	return target > cur && target-cur <= threshold
}

// resolveWhence normalizes a (pos, whence) pair to an absolute offset.
func resolveWhence(pos int64, whence int, cur, length int64) (int64, error) {
	switch whence {
	case io.SeekStart:
		return pos, nil
	case io.SeekCurrent:
		return cur + pos, nil
	case io.SeekEnd:
		return length + pos, nil
	default:
		return 0, ErrInvalidWhence
	}
}
