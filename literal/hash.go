package literal

import (
	"encoding/binary"

	"github.com/chazu/builtingen/meta"
)

// murmurhash2 constants.
const (
	murmurM = 0x5bd1e995
	murmurR = 24
)

// StrHash computes the hash the runtime stores in a string header.
// Integer words are read in the target's byte order; mixed-endian
// targets only swap double halves and read integers little-endian.
func StrHash(s string, prof meta.Profile, order meta.ByteOrder) uint32 {
	var h uint32
	if prof.StrHashDense {
		h = denseHash([]byte(s), prof.HashSeed, order)
	} else {
		h = sparseHash([]byte(s), prof.HashSeed, uint(prof.SkipShift))
	}
	if prof.StrHash16 {
		h &= 0xffff
	}
	return h
}

// sparseHash samples every skip'th byte from the end of the string.
func sparseHash(s []byte, seed uint32, skipShift uint) uint32 {
	n := len(s)
	h := seed ^ uint32(n)
	step := (n >> skipShift) + 1
	for off := n; off >= step; off -= step {
		h = h*33 + uint32(s[off-1])
	}
	return h
}

func denseHash(s []byte, seed uint32, order meta.ByteOrder) uint32 {
	var bo binary.ByteOrder = binary.LittleEndian
	if order == meta.BigEndian {
		bo = binary.BigEndian
	}

	h := seed ^ uint32(len(s))
	for len(s) >= 4 {
		k := bo.Uint32(s)
		k *= murmurM
		k ^= k >> murmurR
		k *= murmurM
		h *= murmurM
		h ^= k
		s = s[4:]
	}
	switch len(s) {
	case 3:
		h ^= uint32(s[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(s[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(s[0])
		h *= murmurM
	}
	h ^= h >> 13
	h *= murmurM
	h ^= h >> 15
	return h
}

// lookupBucket is the runtime's read-only string lookup hash. It only
// depends on the length and first byte so the runtime can probe before
// computing the full hash.
func lookupBucket(s string, buckets int) int {
	var first int
	if len(s) > 0 {
		first = int(s[0])
	}
	return ((len(s) << 4) + first) & (buckets - 1)
}
