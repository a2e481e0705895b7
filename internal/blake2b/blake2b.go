// Package blake2b computes the 256-bit BLAKE2b document hash used to bind
// auth and shard signatures to a reassembled ciphertext. It is a thin
// domain-named wrapper over golang.org/x/crypto/blake2b — the recovery core
// never needs keyed, salted, or personalized variants, so the wrapper
// exposes exactly the one operation the spec calls for.
package blake2b

import "golang.org/x/crypto/blake2b"

// Size is the digest length in bytes (spec §3, §4.3: 256-bit output).
const Size = 32

// Sum256 returns the unkeyed, unsalted BLAKE2b-256 digest of data.
func Sum256(data []byte) [Size]byte {
	return blake2b.Sum256(data)
}
