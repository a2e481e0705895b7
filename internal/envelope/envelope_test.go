package envelope

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/go-i2p/ethernity-recover/internal/cbor"
	"github.com/go-i2p/ethernity-recover/internal/codec"
	"github.com/google/go-cmp/cmp"
)

func buildEnvelope(t *testing.T, manifest []byte, payload []byte) []byte {
	t.Helper()
	var out []byte
	out = append(out, Magic[0], Magic[1])
	out = codec.AppendUvarint(out, Version)
	out = codec.AppendUvarint(out, uint64(len(manifest)))
	out = append(out, manifest...)
	out = codec.AppendUvarint(out, uint64(len(payload)))
	out = append(out, payload...)
	return out
}

func fileEntry(path string, data []byte) []byte {
	hash := sha256.Sum256(data)
	return cbor.EncodeMap([]cbor.MapPair{
		{Key: "path", Value: cbor.EncodeText(path)},
		{Key: "size", Value: cbor.EncodeUint(uint64(len(data)))},
		{Key: "hash", Value: cbor.EncodeBytes(hash[:])},
		{Key: "mtime", Value: cbor.EncodeNull()},
	})
}

func TestDecodeHappyPath(t *testing.T) {
	f1, f2 := []byte("first file"), []byte("second file, longer")
	manifest := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(ManifestVersion)},
		{Key: "created", Value: cbor.EncodeUint(1700000000)},
		{Key: "sealed", Value: cbor.EncodeBool(true)},
		{Key: "seed", Value: cbor.EncodeNull()},
		{Key: "files", Value: cbor.EncodeArray(fileEntry("a.txt", f1), fileEntry("b.txt", f2))},
	})
	payload := append(append([]byte{}, f1...), f2...)
	data := buildEnvelope(t, manifest, payload)

	files, m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []File{{Path: "a.txt", Data: f1}, {Path: "b.txt", Data: f2}}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if !m.Sealed || m.Seed != nil {
		t.Fatalf("manifest sealed/seed wrong: %+v", m)
	}
}

func TestDecodeUnsealedRequiresSeed(t *testing.T) {
	manifest := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(ManifestVersion)},
		{Key: "created", Value: cbor.EncodeUint(0)},
		{Key: "sealed", Value: cbor.EncodeBool(false)},
		{Key: "seed", Value: cbor.EncodeBytes(bytes.Repeat([]byte{7}, 32))},
		{Key: "files", Value: cbor.EncodeArray()},
	})
	data := buildEnvelope(t, manifest, nil)
	files, m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(files) != 0 || m.Sealed || len(m.Seed) != 32 {
		t.Fatalf("got files=%v manifest=%+v", files, m)
	}
}

func TestDecodeRejectsSHA256Mismatch(t *testing.T) {
	data := []byte("real content")
	badHash := sha256.Sum256([]byte("different content"))
	manifest := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(ManifestVersion)},
		{Key: "created", Value: cbor.EncodeUint(0)},
		{Key: "sealed", Value: cbor.EncodeBool(true)},
		{Key: "seed", Value: cbor.EncodeNull()},
		{Key: "files", Value: cbor.EncodeArray(cbor.EncodeMap([]cbor.MapPair{
			{Key: "path", Value: cbor.EncodeText("x.bin")},
			{Key: "size", Value: cbor.EncodeUint(uint64(len(data)))},
			{Key: "hash", Value: cbor.EncodeBytes(badHash[:])},
			{Key: "mtime", Value: cbor.EncodeNull()},
		}))},
	})
	env := buildEnvelope(t, manifest, data)
	if _, _, err := Decode(env); err == nil {
		t.Fatal("expected sha256 mismatch error")
	}
}

func TestDecodeRejectsDuplicateNFCPaths(t *testing.T) {
	// "café" as precomposed é (U+00E9) vs decomposed e + combining acute
	// (U+0065 U+0301) must be treated as the same path after NFC.
	precomposed := "café.txt"
	decomposed := "café.txt"
	manifest := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(ManifestVersion)},
		{Key: "created", Value: cbor.EncodeUint(0)},
		{Key: "sealed", Value: cbor.EncodeBool(true)},
		{Key: "seed", Value: cbor.EncodeNull()},
		{Key: "files", Value: cbor.EncodeArray(fileEntry(precomposed, nil), fileEntry(decomposed, nil))},
	})
	env := buildEnvelope(t, manifest, nil)
	if _, _, err := Decode(env); err == nil {
		t.Fatal("expected duplicate-path-after-NFC rejection")
	}
}

func TestDecodeAcceptsZeroByteFile(t *testing.T) {
	manifest := cbor.EncodeMap([]cbor.MapPair{
		{Key: "version", Value: cbor.EncodeUint(ManifestVersion)},
		{Key: "created", Value: cbor.EncodeUint(0)},
		{Key: "sealed", Value: cbor.EncodeBool(true)},
		{Key: "seed", Value: cbor.EncodeNull()},
		{Key: "files", Value: cbor.EncodeArray(fileEntry("empty.txt", nil))},
	})
	env := buildEnvelope(t, manifest, nil)
	files, _, err := Decode(env)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(files) != 1 || len(files[0].Data) != 0 {
		t.Fatalf("got %+v", files)
	}
}

func TestDecodeRejectsArrayFormManifest(t *testing.T) {
	manifest := cbor.EncodeArray(cbor.EncodeUint(1), cbor.EncodeUint(0))
	env := buildEnvelope(t, manifest, nil)
	if _, _, err := Decode(env); err != ErrSchemaVersion {
		t.Fatalf("got %v want ErrSchemaVersion", err)
	}
}
