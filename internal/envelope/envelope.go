// Package envelope decodes the structured container produced by decrypting
// an age-scrypt ciphertext: an outer length-prefixed frame around a CBOR
// manifest and a concatenated file payload, with per-file SHA-256
// verification (spec §3, §4.8, §6.3).
package envelope

import (
	"crypto/sha256"
	"fmt"

	"github.com/go-i2p/ethernity-recover/internal/cbor"
	"github.com/go-i2p/ethernity-recover/internal/codec"
	"golang.org/x/text/unicode/norm"
)

// Magic is the two-byte prefix of the envelope binary layout.
var Magic = [2]byte{'E', 'V'}

// Version is the only envelope layout version this decoder accepts.
const Version = 1

// ManifestVersion is the only manifest schema version this decoder accepts.
const ManifestVersion = 1

// ErrSchemaVersion is returned when the manifest is encoded as a CBOR array
// instead of the map form this decoder requires (spec §9 Open Question:
// the map form is canonical; array-form envelopes get an explicit
// schema-version error rather than silent best-effort parsing).
var ErrSchemaVersion = fmt.Errorf("envelope: manifest is array-form; only the map-form schema is supported")

// File is one recovered file in manifest order.
type File struct {
	Path  string
	Data  []byte
	Mtime *int64
}

// Manifest is the decoded metadata preceding the file payload (spec §3).
type Manifest struct {
	Version uint64
	Created int64
	Sealed  bool
	Seed    []byte // nil when Sealed is true
	Files   []ManifestFile
}

// ManifestFile is one manifest entry before its bytes are sliced out of the
// payload.
type ManifestFile struct {
	Path  string
	Size  uint64
	Hash  [32]byte
	Mtime *int64
}

// Decode parses the outer envelope layout, decodes and validates the
// manifest, verifies every file's SHA-256, and returns the files in
// manifest order (spec §4.8).
func Decode(data []byte) ([]File, Manifest, error) {
	off := 0
	if len(data) < 2 || data[0] != Magic[0] || data[1] != Magic[1] {
		return nil, Manifest{}, fmt.Errorf("envelope: bad magic")
	}
	off += 2

	version, n, err := codec.ReadUvarint(data[off:])
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("envelope: version: %w", err)
	}
	off += n
	if version != Version {
		return nil, Manifest{}, fmt.Errorf("envelope: unsupported version %d", version)
	}

	manifestLen, n, err := codec.ReadUvarint(data[off:])
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("envelope: manifest_len: %w", err)
	}
	off += n
	if manifestLen > uint64(len(data)-off) {
		return nil, Manifest{}, fmt.Errorf("envelope: manifest_len overruns input")
	}
	manifestBytes := data[off : off+int(manifestLen)]
	off += int(manifestLen)

	payloadLen, n, err := codec.ReadUvarint(data[off:])
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("envelope: payload_len: %w", err)
	}
	off += n
	if payloadLen > uint64(len(data)-off) {
		return nil, Manifest{}, fmt.Errorf("envelope: payload_len overruns input")
	}
	payload := data[off : off+int(payloadLen)]
	off += int(payloadLen)
	if off != len(data) {
		return nil, Manifest{}, fmt.Errorf("envelope: %d trailing byte(s) after payload", len(data)-off)
	}

	manifest, err := decodeManifest(manifestBytes)
	if err != nil {
		return nil, Manifest{}, err
	}

	files, err := sliceFiles(manifest, payload)
	if err != nil {
		return nil, Manifest{}, err
	}
	return files, manifest, nil
}

func decodeManifest(b []byte) (Manifest, error) {
	item, err := cbor.Decode(b)
	if err != nil {
		return Manifest{}, fmt.Errorf("envelope: manifest: %w", err)
	}
	if item.Type == cbor.Array {
		return Manifest{}, ErrSchemaVersion
	}
	if item.Type != cbor.Map {
		return Manifest{}, fmt.Errorf("envelope: manifest: expected map, got type %d", item.Type)
	}

	version, err := requireUint(item, "version")
	if err != nil {
		return Manifest{}, err
	}
	if version != ManifestVersion {
		return Manifest{}, fmt.Errorf("envelope: unsupported manifest version %d", version)
	}
	created, err := requireUint(item, "created")
	if err != nil {
		return Manifest{}, err
	}
	sealedItem, ok := item.Get("sealed")
	if !ok {
		return Manifest{}, fmt.Errorf("envelope: manifest missing field \"sealed\"")
	}
	sealed, err := sealedItem.RequireBool()
	if err != nil {
		return Manifest{}, fmt.Errorf("envelope: manifest: %w", err)
	}

	seedItem, ok := item.Get("seed")
	if !ok {
		return Manifest{}, fmt.Errorf("envelope: manifest missing field \"seed\"")
	}
	var seed []byte
	switch {
	case sealed && !seedItem.IsNull():
		return Manifest{}, fmt.Errorf("envelope: manifest: sealed=true requires seed=null")
	case !sealed:
		seed, err = seedItem.RequireBytes()
		if err != nil {
			return Manifest{}, fmt.Errorf("envelope: manifest: seed: %w", err)
		}
		if len(seed) != 32 {
			return Manifest{}, fmt.Errorf("envelope: manifest: seed length %d, want 32", len(seed))
		}
	}

	filesItem, ok := item.Get("files")
	if !ok {
		return Manifest{}, fmt.Errorf("envelope: manifest missing field \"files\"")
	}
	filesArr, err := filesItem.RequireArray()
	if err != nil {
		return Manifest{}, fmt.Errorf("envelope: manifest: files: %w", err)
	}

	seenPaths := make(map[string]bool, len(filesArr))
	files := make([]ManifestFile, 0, len(filesArr))
	for i, fi := range filesArr {
		mf, err := decodeManifestFile(fi)
		if err != nil {
			return Manifest{}, fmt.Errorf("envelope: manifest: file %d: %w", i, err)
		}
		normPath := norm.NFC.String(mf.Path)
		if normPath == "" {
			return Manifest{}, fmt.Errorf("envelope: manifest: file %d: empty path", i)
		}
		if seenPaths[normPath] {
			return Manifest{}, fmt.Errorf("envelope: manifest: duplicate path %q after NFC normalization", normPath)
		}
		seenPaths[normPath] = true
		mf.Path = normPath
		files = append(files, mf)
	}

	return Manifest{
		Version: version,
		Created: int64(created),
		Sealed:  sealed,
		Seed:    seed,
		Files:   files,
	}, nil
}

func decodeManifestFile(item cbor.Item) (ManifestFile, error) {
	path, err := requireText(item, "path")
	if err != nil {
		return ManifestFile{}, err
	}
	size, err := requireUint(item, "size")
	if err != nil {
		return ManifestFile{}, err
	}
	hash, err := requireFixedBytes(item, "hash", 32)
	if err != nil {
		return ManifestFile{}, err
	}

	var mtime *int64
	mtimeItem, ok := item.Get("mtime")
	if ok && !mtimeItem.IsNull() {
		switch mtimeItem.Type {
		case cbor.Uint:
			v := int64(mtimeItem.U)
			mtime = &v
		case cbor.NegInt:
			v := mtimeItem.N
			mtime = &v
		default:
			return ManifestFile{}, fmt.Errorf("envelope: mtime must be an integer or null")
		}
	}

	var mf ManifestFile
	mf.Path = path
	mf.Size = size
	copy(mf.Hash[:], hash)
	mf.Mtime = mtime
	return mf, nil
}

// sliceFiles walks manifest.Files in order, taking a contiguous size-byte
// slice of payload for each and verifying its SHA-256 (spec §4.8).
func sliceFiles(m Manifest, payload []byte) ([]File, error) {
	off := 0
	files := make([]File, 0, len(m.Files))
	for _, mf := range m.Files {
		if mf.Size > uint64(len(payload)-off) {
			return nil, fmt.Errorf("envelope: file %q size %d overruns payload", mf.Path, mf.Size)
		}
		data := payload[off : off+int(mf.Size)]
		off += int(mf.Size)

		got := sha256.Sum256(data)
		if got != mf.Hash {
			return nil, fmt.Errorf("envelope: sha256 mismatch for %s", mf.Path)
		}
		files = append(files, File{Path: mf.Path, Data: append([]byte{}, data...), Mtime: mf.Mtime})
	}
	if off != len(payload) {
		return nil, fmt.Errorf("envelope: %d trailing payload byte(s) not claimed by any file", len(payload)-off)
	}
	return files, nil
}

func requireUint(item cbor.Item, key string) (uint64, error) {
	v, ok := item.Get(key)
	if !ok {
		return 0, fmt.Errorf("manifest missing field %q", key)
	}
	return v.RequireUint()
}

func requireText(item cbor.Item, key string) (string, error) {
	v, ok := item.Get(key)
	if !ok {
		return "", fmt.Errorf("manifest missing field %q", key)
	}
	return v.RequireText()
}

func requireFixedBytes(item cbor.Item, key string, size int) ([]byte, error) {
	v, ok := item.Get(key)
	if !ok {
		return nil, fmt.Errorf("manifest missing field %q", key)
	}
	b, err := v.RequireBytes()
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("manifest field %q has length %d, want %d", key, len(b), size)
	}
	return b, nil
}
