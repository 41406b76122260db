/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import "math/bits"

// Bitset tracks page residency for FaultReader mappings.
type Bitset struct {
	bits []uint64
}

func NewBitset(n int) *Bitset {
	return &Bitset{bits: make([]uint64, (n+63)/64)}
}

func (b *Bitset) Set(i int) {
	b.bits[i/64] |= 1 << (i % 64)
}

func (b *Bitset) Clear(i int) {
	b.bits[i/64] &^= 1 << (i % 64)
}

func (b *Bitset) Get(i int) bool {
	return (b.bits[i/64]>>(i%64))&1 != 0
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.bits {
		n += bits.OnesCount64(w)
	}
	return n
}
