package cbor

// MapPair is one key/value entry to encode, in caller-specified order.
// Value must already be a complete, well-formed CBOR encoding of the entry's
// value (typically produced by one of the other Encode* functions in this
// file) — EncodeMap never reorders or re-encodes its pairs.
type MapPair struct {
	Key   string
	Value []byte
}

// appendHead appends a major-type/argument head using the shortest encoding
// CBOR allows for v, matching the canonical-form requirement that signature
// transcripts depend on.
func appendHead(dst []byte, major byte, v uint64) []byte {
	switch {
	case v < 24:
		return append(dst, major<<5|byte(v))
	case v <= 0xff:
		return append(dst, major<<5|24, byte(v))
	case v <= 0xffff:
		return append(dst, major<<5|25, byte(v>>8), byte(v))
	case v <= 0xffffffff:
		return append(dst, major<<5|26, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	default:
		return append(dst, major<<5|27,
			byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

// EncodeUint returns the canonical CBOR encoding of the unsigned integer v.
func EncodeUint(v uint64) []byte {
	return appendHead(nil, 0, v)
}

// EncodeNegInt returns the canonical CBOR encoding of v, which must be < 0.
func EncodeNegInt(v int64) []byte {
	return appendHead(nil, 1, uint64(-1-v))
}

// EncodeBytes returns the canonical CBOR encoding of a definite-length byte
// string.
func EncodeBytes(b []byte) []byte {
	out := appendHead(nil, 2, uint64(len(b)))
	return append(out, b...)
}

// EncodeText returns the canonical CBOR encoding of a definite-length UTF-8
// text string.
func EncodeText(s string) []byte {
	out := appendHead(nil, 3, uint64(len(s)))
	return append(out, s...)
}

// EncodeArray concatenates the definite-length array head for len(items)
// elements with the already-encoded items, in order.
func EncodeArray(items ...[]byte) []byte {
	out := appendHead(nil, 4, uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// EncodeMap concatenates the definite-length map head for len(pairs) entries
// with each key (as a CBOR text string) and its pre-encoded value, in the
// order given. Signature transcripts rely on this order being exactly the
// order the spec documents for each payload type — EncodeMap never sorts.
func EncodeMap(pairs []MapPair) []byte {
	out := appendHead(nil, 5, uint64(len(pairs)))
	for _, p := range pairs {
		out = append(out, EncodeText(p.Key)...)
		out = append(out, p.Value...)
	}
	return out
}

// EncodeBool returns the canonical CBOR encoding of a boolean simple value.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{0xe0 | 21}
	}
	return []byte{0xe0 | 20}
}

// EncodeNull returns the canonical CBOR encoding of the null simple value.
func EncodeNull() []byte {
	return []byte{0xe0 | 22}
}
