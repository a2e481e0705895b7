package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-i2p/ethernity-recover/internal/codec"
	"github.com/go-i2p/ethernity-recover/internal/envelope"
	"github.com/go-i2p/ethernity-recover/internal/frame"
	"github.com/spf13/cobra"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Decode a single frame text file or decrypted envelope file and dump its fields as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("inspect: %v", err)
		}

		out, err := inspect(data)
		if err != nil {
			log.Fatalf("inspect: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("inspect: encode: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// frameView and envelopeView are the JSON shapes inspect renders; they exist
// so a reader can see field names in the output without reflecting on the
// decoded frame.Frame or envelope.Manifest types directly.
type frameView struct {
	Kind    string `json:"kind"`
	Type    string `json:"type"`
	DocID   string `json:"doc_id"`
	Index   uint32 `json:"index"`
	Total   uint32 `json:"total"`
	DataLen int    `json:"data_len"`
}

type envelopeView struct {
	Kind    string     `json:"kind"`
	Version uint64     `json:"version"`
	Created int64      `json:"created"`
	Sealed  bool       `json:"sealed"`
	Files   []fileView `json:"files"`
}

type fileView struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
	Hash string `json:"hash"`
}

// inspect tries to decode data first as a single frame text line, then as a
// decrypted envelope container, reporting structure without fully acting on
// it (no decryption, no file extraction).
func inspect(data []byte) (interface{}, error) {
	if lines, err := frame.DecodeLines(string(data)); err == nil && len(lines) > 0 {
		f, ferr := frame.Decode(lines[0])
		if ferr == nil {
			return frameView{
				Kind:    "frame",
				Type:    f.Type.String(),
				DocID:   codec.EncodeHex(f.DocID[:]),
				Index:   f.Index,
				Total:   f.Total,
				DataLen: len(f.Data),
			}, nil
		}
	}

	_, m, err := envelope.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("not a recognizable frame or envelope: %w", err)
	}
	files := make([]fileView, 0, len(m.Files))
	for _, mf := range m.Files {
		files = append(files, fileView{Path: mf.Path, Size: mf.Size, Hash: codec.EncodeHex(mf.Hash[:])})
	}
	return envelopeView{
		Kind:    "envelope",
		Version: m.Version,
		Created: m.Created,
		Sealed:  m.Sealed,
		Files:   files,
	}, nil
}
