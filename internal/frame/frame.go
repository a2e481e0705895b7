// Package frame decodes the text lines of a printed or scanned recovery
// document into Frame values and accumulates them in a FrameStore keyed by
// document identity, following the layout and conflict-accounting rules of
// spec §3, §4.6, §6.1-§6.2.
package frame

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-i2p/ethernity-recover/internal/codec"
)

// Type identifies the role of a decoded frame.
type Type byte

const (
	Main Type = iota
	Auth
	Key
)

func (t Type) String() string {
	switch t {
	case Main:
		return "main"
	case Auth:
		return "auth"
	case Key:
		return "shard"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// DocIDLen is the fixed size of a document identifier (spec §6.6 DOC_ID_LEN).
const DocIDLen = 16

// Magic is the two-byte prefix every frame's binary layout begins with.
var Magic = [2]byte{'E', 'F'}

// Version is the only frame layout version this decoder accepts.
const Version = 1

// Frame is one decoded line of frame input (spec §3).
type Frame struct {
	Version byte
	Type    Type
	DocID   [DocIDLen]byte
	Index   uint32
	Total   uint32
	Data    []byte
}

// Decode parses the binary layout of spec §6.2 from b, verifying the
// trailing CRC-32 and the index < total invariant (relaxed to index==0,
// total==1 for Auth and Key frames per spec §3).
func Decode(b []byte) (Frame, error) {
	if len(b) < 4 {
		return Frame{}, fmt.Errorf("frame: input too short for CRC trailer")
	}
	body, trailer := b[:len(b)-4], b[len(b)-4:]
	wantCRC := uint32(trailer[0])<<24 | uint32(trailer[1])<<16 | uint32(trailer[2])<<8 | uint32(trailer[3])
	if gotCRC := codec.CRC32(body); gotCRC != wantCRC {
		return Frame{}, fmt.Errorf("frame: CRC mismatch: got %#x want %#x", gotCRC, wantCRC)
	}

	if len(body) < 2 || body[0] != Magic[0] || body[1] != Magic[1] {
		return Frame{}, fmt.Errorf("frame: bad magic")
	}
	off := 2

	version, n, err := codec.ReadUvarint(body[off:])
	if err != nil {
		return Frame{}, fmt.Errorf("frame: version: %w", err)
	}
	off += n
	if version != Version {
		return Frame{}, fmt.Errorf("frame: unsupported version %d", version)
	}

	if off >= len(body) {
		return Frame{}, fmt.Errorf("frame: truncated before frame_type")
	}
	ftype := Type(body[off])
	off++
	if ftype != Main && ftype != Auth && ftype != Key {
		return Frame{}, fmt.Errorf("frame: unknown frame_type %d", ftype)
	}

	if off+DocIDLen > len(body) {
		return Frame{}, fmt.Errorf("frame: truncated doc_id")
	}
	var docID [DocIDLen]byte
	copy(docID[:], body[off:off+DocIDLen])
	off += DocIDLen

	index, n, err := codec.ReadUvarint(body[off:])
	if err != nil {
		return Frame{}, fmt.Errorf("frame: index: %w", err)
	}
	off += n
	total, n, err := codec.ReadUvarint(body[off:])
	if err != nil {
		return Frame{}, fmt.Errorf("frame: total: %w", err)
	}
	off += n
	dataLen, n, err := codec.ReadUvarint(body[off:])
	if err != nil {
		return Frame{}, fmt.Errorf("frame: data_len: %w", err)
	}
	off += n

	if dataLen > uint64(len(body)-off) {
		return Frame{}, fmt.Errorf("frame: data_len overruns input")
	}
	data := make([]byte, dataLen)
	copy(data, body[off:off+int(dataLen)])
	off += int(dataLen)
	if off != len(body) {
		return Frame{}, fmt.Errorf("frame: %d trailing byte(s) before CRC", len(body)-off)
	}

	if index >= total {
		return Frame{}, fmt.Errorf("frame: index %d >= total %d", index, total)
	}
	if (ftype == Auth || ftype == Key) && (index != 0 || total != 1) {
		return Frame{}, fmt.Errorf("frame: %s frame must have index=0, total=1 (got %d, %d)", ftype, index, total)
	}
	if index > (1<<32)-1 || total > (1<<32)-1 {
		return Frame{}, fmt.Errorf("frame: index/total exceed u32 range")
	}

	return Frame{
		Version: byte(version),
		Type:    ftype,
		DocID:   docID,
		Index:   uint32(index),
		Total:   uint32(total),
		Data:    data,
	}, nil
}

// Encode is the inverse of Decode. It is used only by tests to build
// fixtures — frame encoding is the write side and is out of scope for the
// recovery core itself (spec §1).
func Encode(f Frame) []byte {
	var body []byte
	body = append(body, Magic[0], Magic[1])
	body = codec.AppendUvarint(body, uint64(f.Version))
	body = append(body, byte(f.Type))
	body = append(body, f.DocID[:]...)
	body = codec.AppendUvarint(body, uint64(f.Index))
	body = codec.AppendUvarint(body, uint64(f.Total))
	body = codec.AppendUvarint(body, uint64(len(f.Data)))
	body = append(body, f.Data...)

	crc := codec.CRC32(body)
	out := append(body, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return out
}

// sectionMarkers are the case-insensitive substrings that switch a text
// block from per-line autodetection to marker-delimited fallback decoding
// (spec §4.1, §6.1).
var sectionMarkers = []string{"main frame", "auth frame", "shard frame", "shard payload"}

// DecodeLines splits text into newline-separated lines and decodes each as a
// binary Frame, auto-detecting base64 vs z-base-32 per line, or falling back
// to marker-delimited z-base-32 sections when any section marker is present
// anywhere in the text (spec §4.1, §6.1). It returns one decoded byte slice
// per recognized frame; callers run Decode on each to obtain a Frame.
func DecodeLines(text string) ([][]byte, error) {
	if hasSectionMarker(text) {
		return decodeMarkedSections(text)
	}

	var out [][]byte
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		b, err := decodeAutodetect(trimmed)
		if err != nil {
			return nil, fmt.Errorf("frame: line %q: %w", trimmed, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// decodeAutodetect tries base64 first. Because the z-base-32 character set is
// a subset of the base64 one, a line that is also valid z-base-32 is decoded
// as z-base-32 when its base64 reading does not yield a well-formed frame.
func decodeAutodetect(line string) ([]byte, error) {
	if codec.IsBase64(line) {
		b, err := codec.DecodeBase64Loose(line)
		if !codec.IsZBase32(line) {
			return b, err
		}
		if err == nil {
			if _, ferr := Decode(b); ferr == nil {
				return b, nil
			}
		}
	}
	if codec.IsZBase32(line) {
		return codec.DecodeZBase32(line)
	}
	return nil, fmt.Errorf("not recognized as base64 or z-base-32")
}

func hasSectionMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range sectionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// decodeMarkedSections splits text at any section-marker line into
// sections, concatenates each section's non-marker lines (without a
// separator), and decodes the result as one z-base-32 frame per section.
func decodeMarkedSections(text string) ([][]byte, error) {
	var out [][]byte
	var current strings.Builder
	inSection := false

	flush := func() error {
		if !inSection {
			return nil
		}
		b, err := codec.DecodeZBase32(current.String())
		if err != nil {
			return fmt.Errorf("frame: marked section: %w", err)
		}
		if len(b) > 0 {
			out = append(out, b)
		}
		current.Reset()
		return nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if hasSectionMarker(trimmed) {
			if err := flush(); err != nil {
				return nil, err
			}
			inSection = true
			continue
		}
		if inSection {
			current.WriteString(trimmed)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// compareBytes reports whether a and b hold identical content, used to tell
// a duplicate redelivery from a conflicting one.
func compareBytes(a, b []byte) bool {
	return bytes.Equal(a, b)
}
