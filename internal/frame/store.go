package frame

import (
	"bytes"
	"fmt"
)

// Outcome classifies what happened when a single frame was added to a
// Store, so callers can tally a batch result (spec §6.5 Added record)
// without re-deriving it from cumulative counters.
type Outcome int

const (
	OutcomeAdded Outcome = iota
	OutcomeDuplicate
	OutcomeConflict
	OutcomeIgnored
	OutcomeError
)

// shardMeta is the quorum metadata captured from the first accepted shard
// and frozen; every later shard must match it exactly or is counted as a
// conflict (spec §3 ShardPayload metadata freeze rule).
type shardMeta struct {
	Threshold  uint32
	ShareCount uint32
	KeyType    KeyType
	SecretLen  uint32
	DocHash    [32]byte
	SignPub    [32]byte
}

func metaOf(p ShardPayload) shardMeta {
	return shardMeta{
		Threshold:  p.Threshold,
		ShareCount: p.ShareCount,
		KeyType:    p.KeyType,
		SecretLen:  p.SecretLen,
		DocHash:    p.DocHash,
		SignPub:    p.SignPub,
	}
}

// Store accumulates decoded frames for a single backup document, enforcing
// the identity and conflict invariants of spec §3 and §4.6.
type Store struct {
	docID    [DocIDLen]byte
	haveDoc  bool
	total    uint32
	haveTot  bool
	mainByIx map[uint32]Frame

	// version is bumped every time a main frame is newly accepted, so
	// downstream caches (reassembled ciphertext, doc hash) can detect
	// staleness cheaply (spec §9 document-identity cache invalidation).
	version uint64

	Duplicates int
	Conflicts  int
	Ignored    int
	Errors     int

	auth         *AuthPayload
	authDocID    [DocIDLen]byte
	authErrors   int
	authConflict int

	shardByIx     map[uint32]ShardPayload
	shardMeta     *shardMeta
	shardErrors   int
	shardConflict int
}

// NewStore returns an empty frame store.
func NewStore() *Store {
	return &Store{
		mainByIx:  make(map[uint32]Frame),
		shardByIx: make(map[uint32]ShardPayload),
	}
}

// Version returns the monotonic counter bumped on every newly accepted main
// frame. Callers cache it alongside derived values (ciphertext, doc hash) to
// know when those derivations must be recomputed.
func (s *Store) Version() uint64 { return s.version }

// DocID reports the frozen document identity and whether one has been
// established yet.
func (s *Store) DocID() ([DocIDLen]byte, bool) { return s.docID, s.haveDoc }

// Total reports the frozen declared frame count and whether one has been
// established yet.
func (s *Store) Total() (uint32, bool) { return s.total, s.haveTot }

// MainCount returns the number of distinct accepted main frame indices.
func (s *Store) MainCount() int { return len(s.mainByIx) }

// Ready reports whether every index in [0, total) has an accepted frame.
func (s *Store) Ready() bool {
	if !s.haveTot {
		return false
	}
	if uint32(len(s.mainByIx)) != s.total {
		return false
	}
	for i := uint32(0); i < s.total; i++ {
		if _, ok := s.mainByIx[i]; !ok {
			return false
		}
	}
	return true
}

// Reassemble concatenates main frames 0..total in order. It fails if the
// store is not Ready.
func (s *Store) Reassemble() ([]byte, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("frame: store not ready: have %d of %d main frames", len(s.mainByIx), s.total)
	}
	var out []byte
	for i := uint32(0); i < s.total; i++ {
		out = append(out, s.mainByIx[i].Data...)
	}
	return out, nil
}

// Auth returns the accepted auth payload, if any.
func (s *Store) Auth() (AuthPayload, bool) {
	if s.auth == nil {
		return AuthPayload{}, false
	}
	return *s.auth, true
}

// AuthDocID returns the doc_id carried by the accepted auth frame. Valid
// only when Auth's second return value is true.
func (s *Store) AuthDocID() [DocIDLen]byte { return s.authDocID }

// Shards returns a snapshot of the currently accepted shards keyed by
// share_index.
func (s *Store) Shards() map[uint32]ShardPayload {
	out := make(map[uint32]ShardPayload, len(s.shardByIx))
	for k, v := range s.shardByIx {
		out[k] = v
	}
	return out
}

// ShardThreshold reports the frozen threshold, if shard metadata has been
// established.
func (s *Store) ShardThreshold() (uint32, bool) {
	if s.shardMeta == nil {
		return 0, false
	}
	return s.shardMeta.Threshold, true
}

// AddMain adds a decoded Main frame, applying the document-identity and
// total-consistency rules of spec §3/§4.6.
func (s *Store) AddMain(f Frame) Outcome {
	if f.Type != Main {
		return OutcomeError
	}
	if !s.haveDoc {
		s.docID = f.DocID
		s.haveDoc = true
	} else if f.DocID != s.docID {
		s.Ignored++
		return OutcomeIgnored
	}

	if !s.haveTot {
		s.total = f.Total
		s.haveTot = true
	} else if f.Total != s.total {
		s.Conflicts++
		return OutcomeConflict
	}

	existing, ok := s.mainByIx[f.Index]
	if !ok {
		s.mainByIx[f.Index] = f
		s.version++
		return OutcomeAdded
	}
	if compareBytes(existing.Data, f.Data) {
		s.Duplicates++
		return OutcomeDuplicate
	}
	s.Conflicts++
	return OutcomeConflict
}

// AddAuth adds a decoded Auth frame's payload. Unlike main frames, a doc_id
// disagreement with the store's identity is not silently ignored here: the
// spec reports it as the distinct "doc_id mismatch" auth status, which
// EvaluateAuth derives by comparing AuthDocID against the store's DocID, so
// the mismatched frame is still recorded as the accepted auth (first one
// wins, same as any other field of the payload).
func (s *Store) AddAuth(frameDocID [DocIDLen]byte, p AuthPayload) Outcome {
	if s.auth == nil {
		s.auth = &p
		s.authDocID = frameDocID
		return OutcomeAdded
	}
	if *s.auth == p && s.authDocID == frameDocID {
		s.Duplicates++
		return OutcomeDuplicate
	}
	s.authConflict++
	return OutcomeConflict
}

// AuthErrors returns the count of Auth frames that failed to decode.
func (s *Store) AuthErrors() int { return s.authErrors }

// AuthConflicts returns the count of Auth frames that disagreed with the
// first accepted one.
func (s *Store) AuthConflicts() int { return s.authConflict }

// RecordAuthError increments the auth-decode-error counter. Callers invoke
// this when DecodeAuthPayload fails for a frame classified as Auth.
func (s *Store) RecordAuthError() { s.authErrors++ }

// AddShard adds a decoded shard payload, freezing quorum metadata on first
// acceptance and checking every later shard against it (spec §3, §4.4).
func (s *Store) AddShard(p ShardPayload) Outcome {
	m := metaOf(p)
	if s.shardMeta == nil {
		s.shardMeta = &m
	} else if *s.shardMeta != m {
		s.shardConflict++
		return OutcomeConflict
	}

	existing, ok := s.shardByIx[p.ShareIndex]
	if !ok {
		s.shardByIx[p.ShareIndex] = p
		return OutcomeAdded
	}
	if shardPayloadEqual(existing, p) {
		s.Duplicates++
		return OutcomeDuplicate
	}
	s.shardConflict++
	return OutcomeConflict
}

func shardPayloadEqual(a, b ShardPayload) bool {
	return a.Version == b.Version &&
		a.KeyType == b.KeyType &&
		a.Threshold == b.Threshold &&
		a.ShareCount == b.ShareCount &&
		a.ShareIndex == b.ShareIndex &&
		a.SecretLen == b.SecretLen &&
		bytes.Equal(a.Share, b.Share) &&
		a.DocHash == b.DocHash &&
		a.SignPub == b.SignPub &&
		a.Signature == b.Signature
}

// RemoveShard removes a shard whose signature failed verification, per spec
// §4.7: "on verified-false, the shard is removed from the store and counted
// as invalid."
func (s *Store) RemoveShard(shareIndex uint32) {
	delete(s.shardByIx, shareIndex)
}

// ShardErrors returns the count of Key frames that failed to decode.
func (s *Store) ShardErrors() int { return s.shardErrors }

// ShardConflicts returns the count of shards that disagreed with the frozen
// quorum metadata or a prior shard at the same index.
func (s *Store) ShardConflicts() int { return s.shardConflict }

// RecordShardError increments the shard-decode-error counter.
func (s *Store) RecordShardError() { s.shardErrors++ }
