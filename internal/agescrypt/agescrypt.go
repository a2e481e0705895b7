// Package agescrypt implements the age v1 passphrase recipient: a single
// scrypt stanza followed by a STREAM-encrypted payload. Only this one
// recipient type is supported — the recovery core never needs X25519 or SSH
// recipients, and accepting them would widen the format this decrypter
// declares well-formed beyond what spec §4.5 calls for.
package agescrypt

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-i2p/ethernity-recover/internal/codec"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

// VersionLine is the required first line of every age v1 file.
const VersionLine = "age-encryption.org/v1"

// scryptLabel salts the scrypt call with the recipient stanza's domain tag,
// per the age v1 format.
const scryptLabel = "age-encryption.org/v1/scrypt"

// MaxLogN is the hard cap on the scrypt work factor (spec §4.5 step 2):
// refused before any KDF work is attempted. It is a var, not a const, so
// cmd/recover.go's --maxscryptlogn flag can lower it for testing on
// constrained hardware; callers must never raise it above 20.
var MaxLogN = 20

const (
	chunkPlainSize = 65536
	chunkCipherSize = chunkPlainSize + chacha20poly1305.Overhead // 65552
	streamNonceSize = 16
	chunkNonceSize  = chacha20poly1305.NonceSize // 12: 11-byte counter + flag byte
)

// ErrInvalidPassphrase is returned when the scrypt-derived key fails to open
// the stanza body (wrong passphrase, or corrupted stanza).
var ErrInvalidPassphrase = fmt.Errorf("agescrypt: invalid passphrase")

// ErrHeaderMAC is returned when the header HMAC does not match.
var ErrHeaderMAC = fmt.Errorf("agescrypt: invalid header HMAC")

// ErrLogNTooLarge is returned when the stanza's logN exceeds MaxLogN. It is
// returned before scrypt is ever invoked.
var ErrLogNTooLarge = fmt.Errorf("agescrypt: scrypt logN exceeds maximum")

// Decrypt parses ciphertext as an age v1 file with a single scrypt
// recipient stanza, derives the file key with passphrase, verifies the
// header HMAC, and returns the decrypted STREAM payload. passphrase is
// taken as a byte slice, not a string, so the caller (internal/session) can
// zero it immediately after use — Go strings are immutable and cannot be
// scrubbed.
func Decrypt(ciphertext []byte, passphrase []byte) ([]byte, error) {
	h, err := parseHeader(ciphertext)
	if err != nil {
		return nil, err
	}
	if h.logN > MaxLogN {
		return nil, ErrLogNTooLarge
	}

	key, err := scrypt.Key(passphrase, append([]byte(scryptLabel), h.salt...), 1<<h.logN, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("agescrypt: scrypt: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("agescrypt: chacha20poly1305: %w", err)
	}
	var zeroNonce [chacha20poly1305.NonceSize]byte
	fileKey, err := aead.Open(nil, zeroNonce[:], h.stanzaBody, nil)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	defer Zero(fileKey)

	hmacKey := hkdfBytes(fileKey, nil, []byte("header"), 32)
	defer Zero(hmacKey)
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(h.transcript)
	mac.Write([]byte("---"))
	if !hmac.Equal(mac.Sum(nil), h.mac) {
		return nil, ErrHeaderMAC
	}

	streamKey := hkdfBytes(fileKey, h.streamNonce, []byte("payload"), 32)
	defer Zero(streamKey)

	return decryptStream(streamKey, h.payload)
}

func hkdfBytes(secret, salt, info []byte, n int) []byte {
	out := make([]byte, n)
	r := hkdf.New(sha256.New, secret, salt, info)
	if _, err := r.Read(out); err != nil {
		panic("agescrypt: hkdf read failed: " + err.Error())
	}
	return out
}

// Zero overwrites b with zero bytes. Callers use it to scrub key material as
// soon as it is no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

type header struct {
	salt        []byte
	logN        int
	stanzaBody  []byte
	transcript  []byte // header bytes through the body lines, each newline-terminated
	mac         []byte
	streamNonce []byte
	payload     []byte
}

// headerLine is one '\n'-terminated line of header text together with the
// byte offset in the original input immediately following its newline.
type headerLine struct {
	text     string
	endOffset int
}

func parseHeader(data []byte) (*header, error) {
	lines, err := splitHeaderLines(data)
	if err != nil {
		return nil, err
	}
	if len(lines) < 1 || lines[0].text != VersionLine {
		return nil, fmt.Errorf("agescrypt: missing or unsupported version line")
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("agescrypt: missing recipient stanza")
	}
	tokens := strings.Split(lines[1].text, " ")
	if len(tokens) != 4 || tokens[0] != "->" || tokens[1] != "scrypt" {
		return nil, fmt.Errorf("agescrypt: unsupported recipient stanza %q", lines[1].text)
	}
	salt, err := codec.DecodeBase64Loose(tokens[2])
	if err != nil || len(salt) != 16 {
		return nil, fmt.Errorf("agescrypt: invalid scrypt salt")
	}
	logN, err := parseLogN(tokens[3])
	if err != nil {
		return nil, err
	}

	var body []byte
	consumed := 0
	for i := 2; i < len(lines); i++ {
		l := lines[i].text
		if len(l) > 48 {
			return nil, fmt.Errorf("agescrypt: stanza body line %d exceeds 48 characters", i-2)
		}
		dec, err := codec.DecodeBase64Loose(l)
		if err != nil {
			return nil, fmt.Errorf("agescrypt: stanza body line %d: %w", i-2, err)
		}
		body = append(body, dec...)
		consumed++
		if len(l) < 48 {
			break
		}
	}
	if consumed == 0 {
		return nil, fmt.Errorf("agescrypt: empty stanza body")
	}
	if len(body) != 32 {
		return nil, fmt.Errorf("agescrypt: stanza body decodes to %d bytes, want 32", len(body))
	}

	footerIdx := 2 + consumed
	if footerIdx >= len(lines) {
		return nil, fmt.Errorf("agescrypt: missing footer MAC line")
	}
	footer := lines[footerIdx].text
	if !strings.HasPrefix(footer, "--- ") {
		return nil, fmt.Errorf("agescrypt: malformed footer line %q", footer)
	}
	mac, err := codec.DecodeBase64Loose(strings.TrimPrefix(footer, "--- "))
	if err != nil || len(mac) != 32 {
		return nil, fmt.Errorf("agescrypt: invalid footer MAC")
	}

	var transcript []byte
	for _, l := range lines[:2+consumed] {
		transcript = append(transcript, l.text...)
		transcript = append(transcript, '\n')
	}

	rest := data[lines[footerIdx].endOffset:]
	if len(rest) < streamNonceSize {
		return nil, fmt.Errorf("agescrypt: truncated STREAM nonce")
	}

	return &header{
		salt:        salt,
		logN:        logN,
		stanzaBody:  body,
		transcript:  transcript,
		mac:         mac,
		streamNonce: rest[:streamNonceSize],
		payload:     rest[streamNonceSize:],
	}, nil
}

// splitHeaderLines splits data into '\n'-terminated textual lines, bounded
// generously so a binary blob with no header structure fails fast instead of
// scanning megabytes of payload looking for newlines that aren't there.
func splitHeaderLines(data []byte) ([]headerLine, error) {
	s := string(data)
	var out []headerLine
	pos := 0
	for len(out) <= 4096 {
		idx := strings.IndexByte(s[pos:], '\n')
		if idx < 0 {
			return out, nil
		}
		out = append(out, headerLine{text: s[pos : pos+idx], endOffset: pos + idx + 1})
		pos += idx + 1
	}
	return nil, fmt.Errorf("agescrypt: header exceeds maximum line count")
}

func parseLogN(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') || s == "0" {
		return 0, fmt.Errorf("agescrypt: invalid logN %q", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("agescrypt: invalid logN %q", s)
	}
	return n, nil
}

func decryptStream(streamKey, payload []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(streamKey)
	if err != nil {
		return nil, fmt.Errorf("agescrypt: chacha20poly1305: %w", err)
	}

	var counter [11]byte
	var out []byte
	remaining := payload
	first := true
	for {
		isLast := len(remaining) <= chunkCipherSize
		var chunkCT []byte
		if isLast {
			chunkCT = remaining
		} else {
			chunkCT = remaining[:chunkCipherSize]
		}
		if len(chunkCT) < chacha20poly1305.Overhead {
			if isLast && first && len(chunkCT) == 0 {
				return nil, fmt.Errorf("agescrypt: empty STREAM payload")
			}
			return nil, fmt.Errorf("agescrypt: truncated STREAM chunk")
		}
		if isLast && !first && len(chunkCT) == chacha20poly1305.Overhead {
			return nil, fmt.Errorf("agescrypt: empty final STREAM chunk not permitted after a prior chunk")
		}

		var nonce [chunkNonceSize]byte
		copy(nonce[:11], counter[:])
		if isLast {
			nonce[11] = 1
		}
		pt, err := aead.Open(nil, nonce[:], chunkCT, nil)
		if err != nil {
			return nil, fmt.Errorf("agescrypt: STREAM chunk authentication failed: %w", err)
		}
		out = append(out, pt...)

		if isLast {
			break
		}
		remaining = remaining[chunkCipherSize:]
		first = false
		incrementCounter(&counter)
	}
	return out, nil
}

func incrementCounter(c *[11]byte) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]++
		if c[i] != 0 {
			return
		}
	}
}
