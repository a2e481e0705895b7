// Package session implements the recovery core's orchestrator: the state
// machine that turns ingested frames into a reassembled ciphertext, a
// combined Shamir secret, a decrypted envelope, and finally extracted files
// (spec §4.9, §5, §6.5).
package session

import (
	"fmt"

	"github.com/go-i2p/ethernity-recover/internal/agescrypt"
	"github.com/go-i2p/ethernity-recover/internal/envelope"
	"github.com/go-i2p/ethernity-recover/internal/frame"
	"github.com/go-i2p/ethernity-recover/internal/shamir"
	"github.com/go-i2p/ethernity-recover/internal/sigverify"
	"github.com/go-i2p/ethernity-recover/internal/status"
)

// Added is the batch accounting record returned by IngestMain and
// IngestShards (spec §6.5).
type Added struct {
	Added         int
	Errors        int
	Conflicts     int
	Duplicates    int
	Ignored       int
	AuthErrors    int
	AuthConflicts int
}

func (a *Added) tally(o frame.Outcome) {
	switch o {
	case frame.OutcomeAdded:
		a.Added++
	case frame.OutcomeDuplicate:
		a.Duplicates++
	case frame.OutcomeConflict:
		a.Conflicts++
	case frame.OutcomeIgnored:
		a.Ignored++
	case frame.OutcomeError:
		a.Errors++
	}
}

// Session owns a single recovery attempt's entire mutable state (spec §3
// Session, §9 Ownership). The zero value is not usable; call New.
type Session struct {
	store *frame.Store

	cipherVersion  uint64 // store.Version() as of the last successful reassembly
	ciphertext     []byte
	haveCiphertext bool

	authStatus sigverify.Status
	authGuard  status.Guard

	recoveredShardSecret []byte
	recoveredKeyType     frame.KeyType
	haveRecoveredSecret  bool

	passphrase     []byte
	havePassphrase bool

	decryptedEnvelope []byte
	manifest          envelope.Manifest
	extractedFiles    []envelope.File
}

// New returns an empty Session.
func New() *Session {
	return &Session{store: frame.NewStore(), authStatus: sigverify.StatusMissing}
}

// IngestMain decodes text as frame lines and admits any Main or Auth frames
// found, tallying the result per spec §6.5. Implicit reassembly and
// auth-status recomputation happen eagerly afterward.
func (s *Session) IngestMain(text string) (Added, error) {
	added, err := s.ingest(text, frame.Main, frame.Auth)
	s.afterIngest()
	return added, err
}

// IngestShards decodes text as frame lines and admits any Key (shard)
// frames found. Implicit shard verification, metadata freezing, and combine
// attempts happen eagerly afterward.
func (s *Session) IngestShards(text string) (Added, error) {
	added, err := s.ingest(text, frame.Key)
	s.afterIngest()
	return added, err
}

func (s *Session) ingest(text string, allowed ...frame.Type) (Added, error) {
	var added Added
	want := make(map[frame.Type]bool, len(allowed))
	for _, t := range allowed {
		want[t] = true
	}

	raw, err := frame.DecodeLines(text)
	if err != nil {
		return added, fmt.Errorf("session: %w", err)
	}
	for _, b := range raw {
		f, err := frame.Decode(b)
		if err != nil {
			added.Errors++
			continue
		}
		if !want[f.Type] {
			added.Errors++
			continue
		}
		switch f.Type {
		case frame.Main:
			added.tally(s.store.AddMain(f))
		case frame.Auth:
			payload, err := frame.DecodeAuthPayload(f.Data)
			if err != nil {
				s.store.RecordAuthError()
				added.AuthErrors++
				continue
			}
			switch s.store.AddAuth(f.DocID, payload) {
			case frame.OutcomeAdded:
				added.Added++
			case frame.OutcomeDuplicate:
				added.Duplicates++
			case frame.OutcomeConflict:
				added.AuthConflicts++
			}
		case frame.Key:
			payload, err := frame.DecodeShardPayload(f.Data)
			if err != nil {
				s.store.RecordShardError()
				added.Errors++
				continue
			}
			added.tally(s.store.AddShard(payload))
		}
	}
	return added, nil
}

// afterIngest runs the implicit transitions of spec §4.9: reassembly when
// possible, shard signature verification and combine when a quorum exists,
// and auth status recomputation.
func (s *Session) afterIngest() {
	if s.store.Ready() && s.store.Version() != s.cipherVersion {
		if ct, err := s.store.Reassemble(); err == nil {
			s.ciphertext = ct
			s.haveCiphertext = true
			s.cipherVersion = s.store.Version()
		}
	}

	sigverify.VerifyShards(s.store)
	s.tryCombineShards()

	if s.authGuard.TryEnter() {
		s.authStatus = sigverify.EvaluateAuth(s.store)
		s.authGuard.Leave()
	}
}

func (s *Session) tryCombineShards() {
	threshold, ok := s.store.ShardThreshold()
	if !ok {
		return
	}
	shards := s.store.Shards()
	if len(shards) < int(threshold) {
		return
	}
	secret, keyType, err := combine(threshold, shards)
	if err != nil {
		return
	}
	s.recoveredShardSecret = secret
	s.recoveredKeyType = keyType
	s.haveRecoveredSecret = true
	if keyType == frame.KeyTypePassphrase {
		s.passphrase = append([]byte{}, secret...)
		s.havePassphrase = true
	}
}

func combine(threshold uint32, shards map[uint32]frame.ShardPayload) ([]byte, frame.KeyType, error) {
	var secretLen uint32
	var keyType frame.KeyType
	shamirShares := make([]shamir.Share, 0, len(shards))
	for idx, p := range shards {
		if idx == 0 || idx > 255 {
			return nil, 0, fmt.Errorf("session: shard index %d out of range", idx)
		}
		secretLen = p.SecretLen
		keyType = p.KeyType
		shamirShares = append(shamirShares, shamir.Share{Index: byte(idx), Bytes: p.Share})
	}
	secret, err := shamir.Combine(int(threshold), int(secretLen), shamirShares)
	if err != nil {
		return nil, 0, err
	}
	return secret, keyType, nil
}

// ReassembleCiphertext returns the currently cached reassembled ciphertext,
// recomputing it first if the store has changed since the last cache.
func (s *Session) ReassembleCiphertext() ([]byte, error) {
	if s.store.Ready() && s.store.Version() != s.cipherVersion {
		ct, err := s.store.Reassemble()
		if err != nil {
			return nil, fmt.Errorf("session: reassemble: %w", err)
		}
		s.ciphertext = ct
		s.haveCiphertext = true
		s.cipherVersion = s.store.Version()
	}
	if !s.haveCiphertext {
		return nil, fmt.Errorf("session: not enough main frames to reassemble")
	}
	return s.ciphertext, nil
}

// CombineShards returns the currently combined shard secret, attempting a
// fresh combine first. Exposed for callers that want to force the attempt
// explicitly rather than rely on the implicit post-ingest combine.
func (s *Session) CombineShards() ([]byte, error) {
	s.tryCombineShards()
	if !s.haveRecoveredSecret {
		threshold, ok := s.store.ShardThreshold()
		if !ok {
			return nil, fmt.Errorf("session: no shards ingested")
		}
		return nil, fmt.Errorf("session: have %d shards, need threshold %d", len(s.store.Shards()), threshold)
	}
	return s.recoveredShardSecret, nil
}

// RecoveredPassphrase returns the passphrase recovered from a combined
// Passphrase-type shard quorum, if any.
func (s *Session) RecoveredPassphrase() ([]byte, bool) {
	if !s.havePassphrase {
		return nil, false
	}
	return append([]byte{}, s.passphrase...), true
}

// Decrypt reassembles the ciphertext if needed, decrypts it with
// passphrase, and returns the resulting envelope bytes unparsed (Extract
// parses them). passphrase is
// zeroized on successful return (spec §9 Zeroization); the session does not
// retain it afterward.
func (s *Session) Decrypt(passphrase []byte) ([]byte, error) {
	ct, err := s.ReassembleCiphertext()
	if err != nil {
		return nil, err
	}
	plaintext, err := agescrypt.Decrypt(ct, passphrase)
	if err != nil {
		return nil, err
	}
	agescrypt.Zero(passphrase)
	if s.havePassphrase {
		agescrypt.Zero(s.passphrase)
		s.havePassphrase = false
	}
	if s.haveRecoveredSecret && s.recoveredKeyType == frame.KeyTypePassphrase {
		agescrypt.Zero(s.recoveredShardSecret)
		s.haveRecoveredSecret = false
	}
	s.decryptedEnvelope = plaintext
	return plaintext, nil
}

// Extract parses envelopeBytes (normally the return value of Decrypt) into
// an ordered list of recovered files (spec §4.8).
func (s *Session) Extract(envelopeBytes []byte) ([]envelope.File, error) {
	files, m, err := envelope.Decode(envelopeBytes)
	if err != nil {
		return nil, err
	}
	s.manifest = m
	s.extractedFiles = files
	return files, nil
}

// Reset returns the session to its initial empty state, zeroizing the
// passphrase and recovered shard secret buffers first (spec §5
// Cancellation, §9 Zeroization).
func (s *Session) Reset() {
	if s.havePassphrase {
		agescrypt.Zero(s.passphrase)
	}
	if s.haveRecoveredSecret {
		agescrypt.Zero(s.recoveredShardSecret)
	}
	*s = Session{store: frame.NewStore(), authStatus: sigverify.StatusMissing}
}

// Progress exposes the counters internal/status.RenderProgressChart needs,
// without handing the chart renderer the whole Session.
func (s *Session) Progress() status.ProgressCounts {
	total, _ := s.store.Total()
	threshold, _ := s.store.ShardThreshold()
	return status.ProgressCounts{
		MainFrames:      s.store.MainCount(),
		MainFramesTotal: int(total),
		ShardFrames:     len(s.store.Shards()),
		ShardThreshold:  int(threshold),
	}
}

// AuthStatus returns the most recently computed auth verification status.
func (s *Session) AuthStatus() sigverify.Status { return s.authStatus }

// DocID returns the session's established document ID, if any.
func (s *Session) DocID() ([frame.DocIDLen]byte, bool) { return s.store.DocID() }

// ExtractedFiles returns the files parsed by the last successful Extract.
func (s *Session) ExtractedFiles() []envelope.File { return s.extractedFiles }

// Snapshot returns the current state as a structured {lines, tone} report
// for a presenter to render (spec §6.5 snapshot(), spec §7).
func (s *Session) Snapshot() status.Snapshot {
	_, haveDoc := s.store.DocID()
	total, haveTotal := s.store.Total()
	threshold, haveThreshold := s.store.ShardThreshold()

	if !haveDoc {
		return status.Snapshot{Lines: []string{"no frames ingested"}, Tone: status.ToneIdle}
	}

	var lines []string
	tone := status.ToneProgress

	if haveTotal {
		lines = append(lines, fmt.Sprintf("main frames: %d/%d", s.store.MainCount(), total))
	} else {
		lines = append(lines, fmt.Sprintf("main frames: %d (total unknown)", s.store.MainCount()))
	}
	if s.haveCiphertext {
		tone = status.ToneOK
	}

	lines = append(lines, fmt.Sprintf("auth status: %s", s.authStatus))
	switch s.authStatus {
	case sigverify.StatusVerified, sigverify.StatusMissing, sigverify.StatusWaitingForMain, sigverify.StatusPending:
	default:
		tone = status.ToneWarn
	}

	if haveThreshold {
		lines = append(lines, fmt.Sprintf("shards: %d/%d", len(s.store.Shards()), threshold))
	}
	if s.decryptedEnvelope != nil {
		lines = append(lines, fmt.Sprintf("extracted files: %d", len(s.extractedFiles)))
		tone = status.ToneOK
	}
	return status.Snapshot{Lines: lines, Tone: tone}
}
