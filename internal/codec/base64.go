package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// base64Alphabet is the accepted character set for DecodeBase64Loose: the
// standard and URL-safe alphabets overlaid, plus '='. Printed frames may use
// either variant depending on which QR/barcode encoder produced them.
const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/=_-"

var base64Set [256]bool

func init() {
	for i := 0; i < len(base64Alphabet); i++ {
		base64Set[base64Alphabet[i]] = true
	}
}

// IsBase64 reports whether every non-space character of s belongs to the
// accepted base64 alphabet (standard or URL-safe, with or without padding).
// Used for line-format autodetection only.
func IsBase64(s string) bool {
	seen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if !base64Set[c] {
			return false
		}
		seen = true
	}
	return seen
}

// DecodeBase64Loose decodes s after normalizing URL-safe characters to
// standard ones and padding to a multiple of 4 with '='. A normalized length
// congruent to 1 mod 4 is never a valid base64 encoding and is rejected
// before the stdlib decoder is invoked.
func DecodeBase64Loose(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		case '-':
			return '+'
		case '_':
			return '/'
		default:
			return r
		}
	}, s)
	stripped := strings.TrimRight(s, "=")
	if rem := len(stripped) % 4; rem == 1 {
		return nil, fmt.Errorf("codec: invalid base64 length %d mod 4 == 1", len(stripped))
	} else if rem != 0 {
		stripped += strings.Repeat("=", 4-rem)
	}
	b, err := base64.StdEncoding.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("codec: base64 decode: %w", err)
	}
	return b, nil
}
