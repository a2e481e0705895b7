package shamir

import "fmt"

// elem is a GF(2^128) field element under the reduction polynomial
// x^128 + x^7 + x^2 + x + 1, represented as two big-endian 64-bit halves:
// hi holds coefficients of x^127..x^64, lo holds x^63..x^0.
type elem struct {
	hi, lo uint64
}

// reductionConst is the reduction polynomial x^7+x^2+x+1 = 0x87, applied to
// the low byte whenever a left-shift overflows bit 127.
const reductionConst = 0x87

var zeroElem = elem{}
var oneElem = elem{hi: 0, lo: 1}

func elemFromIndex(idx byte) elem {
	return elem{hi: 0, lo: uint64(idx)}
}

func elemFromBytes(b [16]byte) elem {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(b[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(b[i])
	}
	return elem{hi: hi, lo: lo}
}

func (e elem) bytes() [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[7-i] = byte(e.hi >> (8 * i))
	}
	for i := 0; i < 8; i++ {
		out[15-i] = byte(e.lo >> (8 * i))
	}
	return out
}

func (e elem) isZero() bool {
	return e.hi == 0 && e.lo == 0
}

func gfAdd(a, b elem) elem {
	return elem{hi: a.hi ^ b.hi, lo: a.lo ^ b.lo}
}

// gfShiftLeft1 multiplies e by x, reducing modulo x^128+x^7+x^2+x+1 when the
// shift overflows bit 127.
func gfShiftLeft1(e elem) elem {
	overflow := e.hi&(1<<63) != 0
	hi := (e.hi << 1) | (e.lo >> 63)
	lo := e.lo << 1
	if overflow {
		lo ^= reductionConst
	}
	return elem{hi: hi, lo: lo}
}

func bitAt(e elem, i int) bool {
	if i < 64 {
		return (e.lo>>uint(i))&1 != 0
	}
	return (e.hi>>uint(i-64))&1 != 0
}

// gfMul computes a*b in GF(2^128) via the standard shift-and-add
// carry-less multiplication, reducing after every shift so intermediate
// values never exceed 128 bits.
func gfMul(a, b elem) elem {
	var result elem
	av := a
	for i := 0; i < 128; i++ {
		if bitAt(b, i) {
			result = gfAdd(result, av)
		}
		av = gfShiftLeft1(av)
	}
	return result
}

// gfInverse returns a^-1 via Fermat's little theorem: in a field of order
// 2^128, a^(2^128-2) == a^-1 for any nonzero a. The exponent's binary form is
// 127 one-bits followed by a zero bit.
func gfInverse(a elem) (elem, error) {
	if a.isZero() {
		return zeroElem, fmt.Errorf("shamir: division by zero field element")
	}
	result := oneElem
	base := a
	// bits 127..1 of the exponent are 1; bit 0 is 0.
	for i := 127; i >= 1; i-- {
		result = gfMul(result, result)
		result = gfMul(result, base)
	}
	result = gfMul(result, result) // final squaring for the exponent's bit 0 (which is 0: no multiply)
	return result, nil
}
