// Package codec implements the text-to-byte codecs used to ingest printed or
// scanned recovery frames: z-base-32, a permissive base64 variant, unsigned
// LEB128 varints, and CRC-32/IEEE.
package codec

import (
	"fmt"
	"strings"
)

// zBase32Alphabet is the human-friendly base32 alphabet used by printed
// frames. Unlike RFC 4648 base32 it has no padding and omits the characters
// 0, l, v and 2, so visually confusable pairs (0/o, 1/l) never both appear.
const zBase32Alphabet = "ybndrfg8ejkmcpqxot1uwisza345h769"

var zBase32Index [256]int8

func init() {
	for i := range zBase32Index {
		zBase32Index[i] = -1
	}
	for i := 0; i < len(zBase32Alphabet); i++ {
		c := zBase32Alphabet[i]
		zBase32Index[c] = int8(i)
		if c >= 'a' && c <= 'z' {
			zBase32Index[c-'a'+'A'] = int8(i)
		}
	}
}

// DecodeZBase32 decodes s, ignoring '-' and ASCII whitespace. Bits accumulate
// 5 at a time, MSB-first; any trailing group of fewer than 8 bits is
// discarded rather than padded. Any character outside the alphabet (after
// stripping separators) is an error.
func DecodeZBase32(s string) ([]byte, error) {
	var acc uint64
	var bits uint
	out := make([]byte, 0, len(s)*5/8+1)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' || c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' {
			continue
		}
		v := zBase32Index[c]
		if v < 0 {
			return nil, fmt.Errorf("codec: invalid z-base-32 character %q", c)
		}
		acc = acc<<5 | uint64(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
	}
	return out, nil
}

// EncodeZBase32 encodes b using the same alphabet and bit packing as
// DecodeZBase32. Trailing bits that do not fill a 5-bit group are zero-padded
// on the low end, matching the asymmetry DecodeZBase32 tolerates on decode.
func EncodeZBase32(b []byte) string {
	var sb strings.Builder
	var acc uint64
	var bits uint
	for _, x := range b {
		acc = acc<<8 | uint64(x)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(zBase32Alphabet[(acc>>bits)&0x1f])
		}
	}
	if bits > 0 {
		sb.WriteByte(zBase32Alphabet[(acc<<(5-bits))&0x1f])
	}
	return sb.String()
}

// IsZBase32 reports whether every character of s is either part of the
// z-base-32 alphabet (case-insensitive) or a separator ('-' or ASCII
// whitespace). It is used for line-format autodetection and does not itself
// decode anything.
func IsZBase32(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' || c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' {
			continue
		}
		if zBase32Index[c] < 0 {
			return false
		}
	}
	return true
}
