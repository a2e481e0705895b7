package codec

import "fmt"

// maxVarintShift bounds the number of 7-bit groups consumed by
// ReadUvarint: more than 8 groups implies the encoded value would require
// more than 56 bits, comfortably past the 53-bit integers the frame and
// envelope formats ever carry (lengths, indices, counts).
const maxVarintShift = 53

// ReadUvarint decodes an unsigned LEB128 varint from the front of b and
// returns the value, the number of bytes consumed, and an error. Decoding
// fails on truncated input (continuation bit set on the final byte) or when
// the accumulated shift would exceed 53 bits.
func ReadUvarint(b []byte) (value uint64, n int, err error) {
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		if shift > maxVarintShift {
			return 0, 0, fmt.Errorf("codec: varint overflow (shift %d)", shift)
		}
		value |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("codec: truncated varint")
}

// AppendUvarint appends the LEB128 encoding of v to dst and returns the
// extended slice.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}
