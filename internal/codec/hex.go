package codec

import "encoding/hex"

// EncodeHex returns the lowercase hex encoding of b, used to render doc IDs
// and file hashes for human-facing output (inspect).
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a lowercase or uppercase hex string.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
