package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-i2p/ethernity-recover/internal/agescrypt"
	"github.com/go-i2p/ethernity-recover/internal/envelope"
	"github.com/go-i2p/ethernity-recover/internal/session"
	"github.com/go-i2p/ethernity-recover/internal/zip"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// recoverCmd represents the recover command
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Ingest frame and shard text files and extract the recovered files",
	Run: func(cmd *cobra.Command, args []string) {
		viper.Unmarshal(c)
		runID := uuid.NewString()
		if c.MaxScryptLogN > 0 && c.MaxScryptLogN < agescrypt.MaxLogN {
			agescrypt.MaxLogN = c.MaxScryptLogN
		}

		sess := session.New()
		if err := ingestDir(sess, c.FramesDir, false); err != nil {
			log.Fatalf("recover[%s]: %v", runID, err)
		}
		if c.ShardsDir != "" {
			if err := ingestDir(sess, c.ShardsDir, true); err != nil {
				log.Fatalf("recover[%s]: %v", runID, err)
			}
		}

		passphrase, err := resolvePassphrase(sess)
		if err != nil {
			log.Fatalf("recover[%s]: %v", runID, err)
		}

		envelopeBytes, err := sess.Decrypt(passphrase)
		if err != nil {
			log.Fatalf("recover[%s]: decrypt: %v", runID, err)
		}

		files, err := sess.Extract(envelopeBytes)
		if err != nil {
			log.Fatalf("recover[%s]: extract: %v", runID, err)
		}

		if err := writeFiles(c.OutDir, files); err != nil {
			log.Fatalf("recover[%s]: write files: %v", runID, err)
		}
		if !c.Quiet {
			log.Printf("recover[%s]: wrote %d file(s) to %s", runID, len(files), c.OutDir)
		}

		if c.Zip {
			var buf bytes.Buffer
			if err := zip.WriteArchive(&buf, files); err != nil {
				log.Fatalf("recover[%s]: zip: %v", runID, err)
			}
			zipPath := strings.TrimSuffix(c.OutDir, string(filepath.Separator)) + ".zip"
			if err := os.WriteFile(zipPath, buf.Bytes(), 0o600); err != nil {
				log.Fatalf("recover[%s]: write zip: %v", runID, err)
			}
			if !c.Quiet {
				log.Printf("recover[%s]: wrote %s", runID, zipPath)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)

	recoverCmd.Flags().String("framesdir", "frames", "Directory of main/auth frame text files")
	recoverCmd.Flags().String("shardsdir", "", "Directory of shard frame text files (optional)")
	recoverCmd.Flags().String("outdir", "recovered", "Directory recovered files are extracted into")
	recoverCmd.Flags().Bool("zip", false, "Also bundle recovered files into outdir.zip")
	recoverCmd.Flags().Int("maxscryptlogn", 20, "Maximum accepted scrypt work factor (logN)")
	recoverCmd.Flags().Bool("quiet", false, "Suppress progress log lines")

	viper.BindPFlags(recoverCmd.Flags())
}

// ingestDir reads every regular file in dir as frame text and ingests it,
// logging per-file accounting the way fetch's walk logged per-URL results.
// A file whose text cannot be decoded as frame lines is logged and skipped;
// a directory or file read failure is returned as an error.
func ingestDir(sess *session.Session, dir string, shards bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var added session.Added
		if shards {
			added, err = sess.IngestShards(string(data))
		} else {
			added, err = sess.IngestMain(string(data))
		}
		if err != nil {
			log.Printf("ingest %s: %v", path, err)
			continue
		}
		if added.Conflicts > 0 || added.Errors > 0 || added.AuthConflicts > 0 {
			log.Printf("ingest %s: added=%d duplicates=%d ignored=%d conflicts=%d errors=%d auth_conflicts=%d",
				path, added.Added, added.Duplicates, added.Ignored, added.Conflicts, added.Errors, added.AuthConflicts)
		}
	}
	return nil
}

// resolvePassphrase returns the passphrase to decrypt with: a shard quorum's
// recovered passphrase takes precedence (it was combined from the user's own
// printed shards), falling back to ETHERNITY_PASSPHRASE and finally an
// interactive stdin prompt.
func resolvePassphrase(sess *session.Session) ([]byte, error) {
	if pw, ok := sess.RecoveredPassphrase(); ok {
		return pw, nil
	}
	if pw := viper.GetString("passphrase"); pw != "" {
		return []byte(pw), nil
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// writeFiles creates outDir and writes each recovered file beneath it,
// rejecting any manifest path that would escape outDir (spec §4.8 implies
// paths are relative; an adversarial envelope must not be able to write
// outside the chosen destination).
func writeFiles(outDir string, files []envelope.File) error {
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", outDir, err)
	}
	for _, f := range files {
		dest := filepath.Join(outDir, filepath.FromSlash(f.Path))
		rel, err := filepath.Rel(outDir, dest)
		if err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("file %q escapes output directory", f.Path)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			return fmt.Errorf("mkdir for %s: %w", dest, err)
		}
		if err := os.WriteFile(dest, f.Data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}
	return nil
}
