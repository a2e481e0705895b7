package session

import (
	"bytes"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"testing"

	"github.com/go-i2p/ethernity-recover/internal/cbor"
	"github.com/go-i2p/ethernity-recover/internal/codec"
	"github.com/go-i2p/ethernity-recover/internal/frame"
	"github.com/go-i2p/ethernity-recover/internal/sigverify"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

// --- fixture builders -------------------------------------------------

func lines(frames ...[]byte) string {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString(base64.StdEncoding.EncodeToString(f))
		b.WriteByte('\n')
	}
	return b.String()
}

func mainFrames(t *testing.T, docID [16]byte, ciphertext []byte, chunkSize int) [][]byte {
	t.Helper()
	var chunks [][]byte
	for i := 0; i < len(ciphertext); i += chunkSize {
		end := i + chunkSize
		if end > len(ciphertext) {
			end = len(ciphertext)
		}
		chunks = append(chunks, ciphertext[i:end])
	}
	total := uint32(len(chunks))
	var out [][]byte
	for i, c := range chunks {
		out = append(out, frame.Encode(frame.Frame{
			Version: frame.Version,
			Type:    frame.Main,
			DocID:   docID,
			Index:   uint32(i),
			Total:   total,
			Data:    c,
		}))
	}
	return out
}

func authFrame(t *testing.T, docID [16]byte, pub ed25519.PublicKey, priv ed25519.PrivateKey, docHash [32]byte, corruptSig bool) []byte {
	t.Helper()
	payload := frame.AuthPayload{Version: 1, DocHash: docHash}
	copy(payload.SignPub[:], pub)
	msg := sigverify.AuthTranscript(payload)
	sig := ed25519.Sign(priv, msg)
	copy(payload.Signature[:], sig)
	if corruptSig {
		payload.Signature[0] ^= 0xFF
	}

	data := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(payload.Version)},
		{Key: "hash", Value: cbor.EncodeBytes(payload.DocHash[:])},
		{Key: "pub", Value: cbor.EncodeBytes(payload.SignPub[:])},
		{Key: "signature", Value: cbor.EncodeBytes(payload.Signature[:])},
	})
	return frame.Encode(frame.Frame{
		Version: frame.Version,
		Type:    frame.Auth,
		DocID:   docID,
		Index:   0,
		Total:   1,
		Data:    data,
	})
}

// shardFrame builds a threshold-1 shard: with a degree-0 polynomial the
// share value at any index equals the secret itself, so no GF(2^128)
// arithmetic is needed to produce a valid fixture.
func shardFrame(t *testing.T, docID [16]byte, pub ed25519.PublicKey, priv ed25519.PrivateKey, docHash [32]byte, shareIndex uint32, secret []byte, keyType frame.KeyType) []byte {
	t.Helper()
	padded := make([]byte, ((len(secret)+15)/16)*16)
	copy(padded, secret)

	payload := frame.ShardPayload{
		Version:    1,
		KeyType:    keyType,
		Threshold:  1,
		ShareCount: 1,
		ShareIndex: shareIndex,
		SecretLen:  uint32(len(secret)),
		Share:      padded,
		DocHash:    docHash,
	}
	copy(payload.SignPub[:], pub)
	msg := sigverify.ShardTranscript(payload)
	sig := ed25519.Sign(priv, msg)
	copy(payload.Signature[:], sig)

	data := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(payload.Version)},
		{Key: "type", Value: cbor.EncodeUint(uint64(payload.KeyType))},
		{Key: "threshold", Value: cbor.EncodeUint(uint64(payload.Threshold))},
		{Key: "share_count", Value: cbor.EncodeUint(uint64(payload.ShareCount))},
		{Key: "share_index", Value: cbor.EncodeUint(uint64(payload.ShareIndex))},
		{Key: "length", Value: cbor.EncodeUint(uint64(payload.SecretLen))},
		{Key: "share", Value: cbor.EncodeBytes(payload.Share)},
		{Key: "hash", Value: cbor.EncodeBytes(payload.DocHash[:])},
		{Key: "pub", Value: cbor.EncodeBytes(payload.SignPub[:])},
		{Key: "signature", Value: cbor.EncodeBytes(payload.Signature[:])},
	})
	return frame.Encode(frame.Frame{
		Version: frame.Version,
		Type:    frame.Key,
		DocID:   docID,
		Index:   0,
		Total:   1,
		Data:    data,
	})
}

// buildAgeFile mirrors the construction used in internal/agescrypt's tests:
// a byte-exact single-chunk age v1 scrypt file.
func buildAgeFile(t *testing.T, passphrase string, logN int, salt [16]byte, streamNonce [16]byte, plaintext []byte) []byte {
	t.Helper()
	b64 := base64.RawStdEncoding.EncodeToString
	const versionLine = "age-encryption.org/v1"
	const scryptLabel = "age-encryption.org/v1/scrypt"

	var buf bytes.Buffer
	buf.WriteString(versionLine + "\n")
	buf.WriteString("-> scrypt " + b64(salt[:]) + " " + strconv.Itoa(logN) + "\n")

	fileKey := []byte("0123456789ABCDEF")
	key, err := scrypt.Key([]byte(passphrase), append([]byte(scryptLabel), salt[:]...), 1<<logN, 8, 1, 32)
	if err != nil {
		t.Fatal(err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		t.Fatal(err)
	}
	var zeroNonce [chacha20poly1305.NonceSize]byte
	sealed := aead.Seal(nil, zeroNonce[:], fileKey, nil)
	buf.WriteString(b64(sealed) + "\n")

	hmacKey := make([]byte, 32)
	if _, err := hkdf.New(sha256.New, fileKey, nil, []byte("header")).Read(hmacKey); err != nil {
		t.Fatal(err)
	}
	h := hmac.New(sha256.New, hmacKey)
	h.Write(buf.Bytes())
	h.Write([]byte("---"))
	buf.WriteString("--- " + b64(h.Sum(nil)) + "\n")
	buf.Write(streamNonce[:])

	streamKey := make([]byte, 32)
	if _, err := hkdf.New(sha256.New, fileKey, streamNonce[:], []byte("payload")).Read(streamKey); err != nil {
		t.Fatal(err)
	}
	streamAEAD, err := chacha20poly1305.New(streamKey)
	if err != nil {
		t.Fatal(err)
	}
	var chunkNonce [chacha20poly1305.NonceSize]byte
	chunkNonce[11] = 1
	buf.Write(streamAEAD.Seal(nil, chunkNonce[:], plaintext, nil))
	return buf.Bytes()
}

func buildEnvelope(t *testing.T, files map[string]string) []byte {
	t.Helper()
	type fileRec struct {
		path string
		data []byte
		hash [32]byte
	}
	var recs []fileRec
	for path, content := range files {
		data := []byte(content)
		recs = append(recs, fileRec{path: path, data: data, hash: sha256.Sum256(data)})
	}

	var fileEntries [][]byte
	var payload []byte
	for _, r := range recs {
		fileEntries = append(fileEntries, cbor.EncodeMap([]cbor.MapPair{
			{Key: "path", Value: cbor.EncodeText(r.path)},
			{Key: "size", Value: cbor.EncodeUint(uint64(len(r.data)))},
			{Key: "hash", Value: cbor.EncodeBytes(r.hash[:])},
		}))
		payload = append(payload, r.data...)
	}

	manifest := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(1)},
		{Key: "created", Value: cbor.EncodeUint(1700000000)},
		{Key: "sealed", Value: cbor.EncodeBool(true)},
		{Key: "seed", Value: cbor.EncodeNull()},
		{Key: "files", Value: cbor.EncodeArray(fileEntries...)},
	})

	var out []byte
	out = append(out, 'E', 'V')
	out = codec.AppendUvarint(out, 1)
	out = codec.AppendUvarint(out, uint64(len(manifest)))
	out = append(out, manifest...)
	out = codec.AppendUvarint(out, uint64(len(payload)))
	out = append(out, payload...)
	return out
}

// --- tests --------------------------------------------------------------

func TestSessionHappyPathPassphrase(t *testing.T) {
	envelopeBytes := buildEnvelope(t, map[string]string{"notes.txt": "hello recovery"})

	salt := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	nonce := [16]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	ciphertext := buildAgeFile(t, "correct horse battery staple", 10, salt, nonce, envelopeBytes)

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	docID := [16]byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	docHash := sigverify.DocHash(ciphertext)

	s := New()
	main := mainFrames(t, docID, ciphertext, 200)
	added, err := s.IngestMain(lines(main...))
	if err != nil {
		t.Fatalf("IngestMain: %v", err)
	}
	if added.Added != len(main) {
		t.Fatalf("added=%d want %d", added.Added, len(main))
	}

	auth := authFrame(t, docID, pub, priv, docHash, false)
	if _, err := s.IngestMain(lines(auth)); err != nil {
		t.Fatalf("IngestMain(auth): %v", err)
	}

	if got := s.AuthStatus(); got != sigverify.StatusVerified {
		t.Fatalf("auth status = %q want verified", got)
	}

	plaintext, err := s.Decrypt([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(plaintext, envelopeBytes) {
		t.Fatal("decrypted envelope bytes do not match")
	}

	files, err := s.Extract(plaintext)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(files) != 1 || files[0].Path != "notes.txt" || string(files[0].Data) != "hello recovery" {
		t.Fatalf("unexpected extracted files: %+v", files)
	}

	snap := s.Snapshot()
	if snap.Tone != "ok" {
		t.Fatalf("snapshot tone = %q want ok", snap.Tone)
	}
}

func TestSessionShardRecovery(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	docID := [16]byte{2}
	docHash := [32]byte{7, 7, 7}
	passphrase := []byte("recovered-secret")

	s := New()
	shard := shardFrame(t, docID, pub, priv, docHash, 1, passphrase, frame.KeyTypePassphrase)
	if _, err := s.IngestShards(lines(shard)); err != nil {
		t.Fatalf("IngestShards: %v", err)
	}

	got, ok := s.RecoveredPassphrase()
	if !ok {
		t.Fatal("expected a recovered passphrase")
	}
	if !bytes.Equal(got, passphrase) {
		t.Fatalf("recovered passphrase = %q want %q", got, passphrase)
	}
}

func TestSessionConflictingTotal(t *testing.T) {
	docID := [16]byte{3}
	s := New()

	f1 := frame.Encode(frame.Frame{Version: frame.Version, Type: frame.Main, DocID: docID, Index: 0, Total: 2, Data: []byte("a")})
	f2 := frame.Encode(frame.Frame{Version: frame.Version, Type: frame.Main, DocID: docID, Index: 0, Total: 3, Data: []byte("a")})

	added, err := s.IngestMain(lines(f1, f2))
	if err != nil {
		t.Fatalf("IngestMain: %v", err)
	}
	if added.Added != 1 || added.Conflicts != 1 {
		t.Fatalf("added=%+v", added)
	}
}

func TestSessionCRCTamperRejected(t *testing.T) {
	docID := [16]byte{4}
	s := New()
	f := frame.Encode(frame.Frame{Version: frame.Version, Type: frame.Main, DocID: docID, Index: 0, Total: 1, Data: []byte("a")})
	f[len(f)-1] ^= 0xFF

	added, err := s.IngestMain(lines(f))
	if err != nil {
		t.Fatalf("IngestMain: %v", err)
	}
	if added.Errors != 1 || added.Added != 0 {
		t.Fatalf("added=%+v want 1 error", added)
	}
}

func TestSessionWrongPassphrase(t *testing.T) {
	envelopeBytes := buildEnvelope(t, map[string]string{"a.txt": "x"})
	salt := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	nonce := [16]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	ciphertext := buildAgeFile(t, "correct horse battery staple", 10, salt, nonce, envelopeBytes)
	docID := [16]byte{5}

	s := New()
	main := mainFrames(t, docID, ciphertext, 500)
	if _, err := s.IngestMain(lines(main...)); err != nil {
		t.Fatalf("IngestMain: %v", err)
	}

	if _, err := s.Decrypt([]byte("wrong passphrase")); err == nil {
		t.Fatal("expected decrypt to fail with wrong passphrase")
	}
}

func TestSessionInvalidSignatureStillAllowsDecrypt(t *testing.T) {
	envelopeBytes := buildEnvelope(t, map[string]string{"a.txt": "x"})
	salt := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	nonce := [16]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	ciphertext := buildAgeFile(t, "correct horse battery staple", 10, salt, nonce, envelopeBytes)
	docID := [16]byte{6}
	docHash := sigverify.DocHash(ciphertext)

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	main := mainFrames(t, docID, ciphertext, 500)
	if _, err := s.IngestMain(lines(main...)); err != nil {
		t.Fatalf("IngestMain: %v", err)
	}

	auth := authFrame(t, docID, pub, priv, docHash, true)
	if _, err := s.IngestMain(lines(auth)); err != nil {
		t.Fatalf("IngestMain(auth): %v", err)
	}

	if got := s.AuthStatus(); got != sigverify.StatusInvalidSignature {
		t.Fatalf("auth status = %q want invalid signature", got)
	}

	plaintext, err := s.Decrypt([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Decrypt should still succeed despite invalid auth: %v", err)
	}
	if !bytes.Equal(plaintext, envelopeBytes) {
		t.Fatal("decrypted bytes mismatch")
	}
}

func TestSessionReset(t *testing.T) {
	docID := [16]byte{8}
	s := New()
	f := frame.Encode(frame.Frame{Version: frame.Version, Type: frame.Main, DocID: docID, Index: 0, Total: 1, Data: []byte("a")})
	if _, err := s.IngestMain(lines(f)); err != nil {
		t.Fatal(err)
	}
	if _, have := s.DocID(); !have {
		t.Fatal("expected doc id before reset")
	}
	s.Reset()
	if _, have := s.DocID(); have {
		t.Fatal("expected no doc id after reset")
	}
	snap := s.Snapshot()
	if snap.Tone != "idle" {
		t.Fatalf("snapshot after reset = %+v", snap)
	}
}
