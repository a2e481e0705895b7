package frame

import (
	"fmt"

	"github.com/go-i2p/ethernity-recover/internal/cbor"
)

// KeyType identifies what a shard's reconstructed secret represents.
type KeyType uint64

const (
	// KeyTypePassphrase marks a shard whose recovered secret is the ASCII
	// passphrase bytes for the age-scrypt container.
	KeyTypePassphrase KeyType = 1
	// KeyTypeSigningSeed marks a shard whose recovered secret seeds an
	// Ed25519 signing key, rather than being used directly as a passphrase.
	KeyTypeSigningSeed KeyType = 2
)

// AuthPayload is the decoded content of an Auth frame's data field: a CBOR
// map binding a document hash to a signing public key and its signature
// (spec §3).
type AuthPayload struct {
	Version   uint64
	DocHash   [32]byte
	SignPub   [32]byte
	Signature [64]byte
}

// DecodeAuthPayload decodes and validates an AuthPayload from the CBOR bytes
// carried in an Auth frame's data field.
func DecodeAuthPayload(data []byte) (AuthPayload, error) {
	item, err := cbor.Decode(data)
	if err != nil {
		return AuthPayload{}, fmt.Errorf("frame: auth payload: %w", err)
	}
	version, err := requireUint(item, "version")
	if err != nil {
		return AuthPayload{}, err
	}
	docHash, err := requireFixedBytes(item, "hash", 32)
	if err != nil {
		return AuthPayload{}, err
	}
	signPub, err := requireFixedBytes(item, "pub", 32)
	if err != nil {
		return AuthPayload{}, err
	}
	signature, err := requireFixedBytes(item, "signature", 64)
	if err != nil {
		return AuthPayload{}, err
	}

	var p AuthPayload
	p.Version = version
	copy(p.DocHash[:], docHash)
	copy(p.SignPub[:], signPub)
	copy(p.Signature[:], signature)
	return p, nil
}

// ShardPayload is the decoded content of a Key (shard) frame's data field
// (spec §3).
type ShardPayload struct {
	Version    uint64
	KeyType    KeyType
	Threshold  uint32
	ShareCount uint32
	ShareIndex uint32
	SecretLen  uint32
	Share      []byte
	DocHash    [32]byte
	SignPub    [32]byte
	Signature  [64]byte
}

// DecodeShardPayload decodes and validates a ShardPayload from the CBOR
// bytes carried in a Key frame's data field, enforcing the structural
// invariants of spec §4.4: threshold>0, share_count>=threshold, share_index
// in [1..share_count] and at most 255, secret_len>0, share length equal to
// secret_len rounded up to a multiple of 16.
func DecodeShardPayload(data []byte) (ShardPayload, error) {
	item, err := cbor.Decode(data)
	if err != nil {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: %w", err)
	}
	version, err := requireUint(item, "version")
	if err != nil {
		return ShardPayload{}, err
	}
	keyType, err := requireUint(item, "type")
	if err != nil {
		return ShardPayload{}, err
	}
	threshold, err := requireUint(item, "threshold")
	if err != nil {
		return ShardPayload{}, err
	}
	shareCount, err := requireUint(item, "share_count")
	if err != nil {
		return ShardPayload{}, err
	}
	shareIndex, err := requireUint(item, "share_index")
	if err != nil {
		return ShardPayload{}, err
	}
	secretLen, err := requireUint(item, "length")
	if err != nil {
		return ShardPayload{}, err
	}
	share, err := requireBytes(item, "share")
	if err != nil {
		return ShardPayload{}, err
	}
	docHash, err := requireFixedBytes(item, "hash", 32)
	if err != nil {
		return ShardPayload{}, err
	}
	signPub, err := requireFixedBytes(item, "pub", 32)
	if err != nil {
		return ShardPayload{}, err
	}
	signature, err := requireFixedBytes(item, "signature", 64)
	if err != nil {
		return ShardPayload{}, err
	}

	if keyType != uint64(KeyTypePassphrase) && keyType != uint64(KeyTypeSigningSeed) {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: unknown key_type %d", keyType)
	}
	if threshold == 0 {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: threshold must be positive")
	}
	if shareCount < threshold {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: share_count %d < threshold %d", shareCount, threshold)
	}
	if shareIndex == 0 || shareIndex > shareCount || shareIndex > 255 {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: share_index %d out of range [1..%d]", shareIndex, shareCount)
	}
	if secretLen == 0 {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: secret_len must be positive")
	}
	wantShareLen := ((secretLen + 15) / 16) * 16
	if uint64(len(share)) != wantShareLen {
		return ShardPayload{}, fmt.Errorf("frame: shard payload: share length %d, want %d", len(share), wantShareLen)
	}

	var p ShardPayload
	p.Version = version
	p.KeyType = KeyType(keyType)
	p.Threshold = uint32(threshold)
	p.ShareCount = uint32(shareCount)
	p.ShareIndex = uint32(shareIndex)
	p.SecretLen = uint32(secretLen)
	p.Share = share
	copy(p.DocHash[:], docHash)
	copy(p.SignPub[:], signPub)
	copy(p.Signature[:], signature)
	return p, nil
}

func requireUint(item cbor.Item, key string) (uint64, error) {
	v, ok := item.Get(key)
	if !ok {
		return 0, fmt.Errorf("frame: payload missing field %q", key)
	}
	return v.RequireUint()
}

func requireBytes(item cbor.Item, key string) ([]byte, error) {
	v, ok := item.Get(key)
	if !ok {
		return nil, fmt.Errorf("frame: payload missing field %q", key)
	}
	return v.RequireBytes()
}

func requireFixedBytes(item cbor.Item, key string, size int) ([]byte, error) {
	b, err := requireBytes(item, key)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("frame: payload field %q has length %d, want %d", key, len(b), size)
	}
	return b, nil
}
