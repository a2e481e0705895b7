// Package sigverify verifies the Ed25519 signatures carried by auth and
// shard frames over canonical, domain-separated CBOR transcripts (spec
// §4.7). Apart from VerifyShards, which removes shards that fail
// verification from the store, it never mutates frame or shard state
// itself — callers act on the returned verdict.
package sigverify

import (
	"crypto/ed25519"

	"github.com/go-i2p/ethernity-recover/internal/blake2b"
	"github.com/go-i2p/ethernity-recover/internal/cbor"
	"github.com/go-i2p/ethernity-recover/internal/frame"
)

// DocHash computes the document hash a reassembled ciphertext is bound to:
// plain BLAKE2b-256, per spec §4.3.
func DocHash(ciphertext []byte) [32]byte {
	return blake2b.Sum256(ciphertext)
}

// AuthDomain and ShardDomain prefix the CBOR transcript before Ed25519
// verification, binding each signature to its payload kind so an auth
// signature can never be replayed as a shard signature or vice versa.
const (
	AuthDomain  = "ethernity:auth:v1"
	ShardDomain = "ethernity:shard:v1"
)

// AuthTranscript reconstructs the exact bytes an auth frame's signature was
// computed over: the domain string followed by the canonical CBOR encoding
// of {version, hash, pub}, in that field order (spec §4.7).
func AuthTranscript(p frame.AuthPayload) []byte {
	body := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(p.Version)},
		{Key: "hash", Value: cbor.EncodeBytes(p.DocHash[:])},
		{Key: "pub", Value: cbor.EncodeBytes(p.SignPub[:])},
	})
	return append([]byte(AuthDomain), body...)
}

// VerifyAuth verifies an auth frame's signature over its own fields. It does
// not check doc_id or doc_hash against the frame store — those are
// higher-level preconditions the caller evaluates first so a fine-grained
// status (doc_id mismatch vs invalid signature) can be reported.
func VerifyAuth(p frame.AuthPayload) bool {
	return ed25519.Verify(p.SignPub[:], AuthTranscript(p), p.Signature[:])
}

// ShardTranscript reconstructs the exact bytes a shard frame's signature was
// computed over: the domain string followed by the canonical CBOR encoding
// of {version, type, threshold, share_count, share_index, length, share,
// hash, pub}, in that field order (spec §4.7).
func ShardTranscript(p frame.ShardPayload) []byte {
	body := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(p.Version)},
		{Key: "type", Value: cbor.EncodeUint(uint64(p.KeyType))},
		{Key: "threshold", Value: cbor.EncodeUint(uint64(p.Threshold))},
		{Key: "share_count", Value: cbor.EncodeUint(uint64(p.ShareCount))},
		{Key: "share_index", Value: cbor.EncodeUint(uint64(p.ShareIndex))},
		{Key: "length", Value: cbor.EncodeUint(uint64(p.SecretLen))},
		{Key: "share", Value: cbor.EncodeBytes(p.Share)},
		{Key: "hash", Value: cbor.EncodeBytes(p.DocHash[:])},
		{Key: "pub", Value: cbor.EncodeBytes(p.SignPub[:])},
	})
	return append([]byte(ShardDomain), body...)
}

// VerifyShard verifies a shard frame's signature over its own fields.
func VerifyShard(p frame.ShardPayload) bool {
	return ed25519.Verify(p.SignPub[:], ShardTranscript(p), p.Signature[:])
}

// Status is the auth verification outcome reported to the UI layer (spec
// §4.7).
type Status string

const (
	StatusMissing          Status = "missing"
	StatusPending          Status = "pending"
	StatusWaitingForMain   Status = "waiting for main frames"
	StatusVerified         Status = "verified"
	StatusInvalidSignature Status = "invalid signature"
	StatusInvalidPayload   Status = "invalid payload"
	StatusDocIDMismatch    Status = "doc_id mismatch"
	StatusDocHashMismatch  Status = "doc_hash mismatch"
	StatusConflict         Status = "conflict"
)

// EvaluateAuth computes the auth_status for a session given its frame
// store's current state, per the precondition chain of spec §4.7:
// availability, doc_id agreement, reassembly readiness, doc_hash agreement,
// and finally signature verification.
func EvaluateAuth(store *frame.Store) Status {
	if store.AuthConflicts() > 0 {
		return StatusConflict
	}
	payload, ok := store.Auth()
	if !ok {
		if store.AuthErrors() > 0 {
			return StatusInvalidPayload
		}
		return StatusMissing
	}

	docID, haveDoc := store.DocID()
	if !haveDoc {
		return StatusWaitingForMain
	}
	if store.AuthDocID() != docID {
		return StatusDocIDMismatch
	}

	if !store.Ready() {
		return StatusWaitingForMain
	}
	ciphertext, err := store.Reassemble()
	if err != nil {
		return StatusWaitingForMain
	}
	docHash := DocHash(ciphertext)
	if docHash != payload.DocHash {
		return StatusDocHashMismatch
	}

	if !VerifyAuth(payload) {
		return StatusInvalidSignature
	}
	return StatusVerified
}
