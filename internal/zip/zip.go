// Package zip bundles recovered files into a single ZIP archive for
// download convenience. It is ambient, out-of-core tooling (spec §1: "a ZIP
// writer... is not part of the core") invoked only from cmd/recover.go, never
// from internal/session.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/go-i2p/ethernity-recover/internal/envelope"
)

// WriteArchive writes files into a stored-only (uncompressed) ZIP archive,
// preserving manifest order and each file's modification time when present.
// Storing rather than deflating keeps the archive's bytes a direct function
// of the recovered file contents — useful when an operator diffs a recovery
// run against a previous one.
func WriteArchive(w *bytes.Buffer, files []envelope.File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		hdr := &zip.FileHeader{
			Name:   f.Path,
			Method: zip.Store,
		}
		if f.Mtime != nil {
			hdr.Modified = mtimeToTime(*f.Mtime)
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", f.Path, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", f.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip: close: %w", err)
	}
	return nil
}

// mtimeToTime interprets a manifest mtime field as Unix seconds, per
// spec §3's ManifestFile.mtime.
func mtimeToTime(unixSeconds int64) time.Time {
	return time.Unix(unixSeconds, 0).UTC()
}
