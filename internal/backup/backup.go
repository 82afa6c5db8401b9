// Package backup archives stored runs into checksummed, compressed files.
//
// An archive is a JSON header line followed by the gzip-compressed JSONL
// export of the run store (see store.ExportJSONL). The header carries a
// SHA-256 checksum of the compressed payload.
package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/nvandessel/porewalk/internal/store"
)

// FormatVersion is the archive format written by Backup.
const FormatVersion = 1

// Ext is the file extension of archives.
const Ext = ".backup"

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (1GB).
const MaxDecompressedSize = 1 << 30

// ErrChecksum is returned when an archive payload does not match its header.
var ErrChecksum = errors.New("backup: checksum mismatch")

// Header is the plain-text first line of an archive.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	Runs       int       `json:"runs"`
	Compressed bool      `json:"compressed"`
}

// DefaultDir returns the backup directory of a store directory.
func DefaultDir(storeDir string) string {
	return filepath.Join(storeDir, "backups")
}

// GeneratePath creates a timestamped archive filename in dir.
func GeneratePath(dir string, t time.Time) string {
	return filepath.Join(dir, "porewalk-"+t.UTC().Format("20060102-150405")+Ext)
}

// Backup writes every run of s to an archive at path.
func Backup(ctx context.Context, s store.RunStore, path string) (*Header, error) {
	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	n, err := store.ExportJSONL(ctx, s, gzw)
	if err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	header := &Header{
		Version:    FormatVersion,
		CreatedAt:  time.Now().UTC(),
		Checksum:   checksum(compressed.Bytes()),
		Runs:       n,
		Compressed: true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	return header, f.Close()
}

// Restore imports the runs of an archive into s. Runs whose IDs already
// exist are skipped. It returns the header and the number of imported runs.
func Restore(ctx context.Context, s store.RunStore, path string) (*Header, int, error) {
	header, payload, err := read(path)
	if err != nil {
		return nil, 0, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	limited := &io.LimitedReader{R: gzr, N: MaxDecompressedSize + 1}
	n, err := store.ImportJSONL(ctx, s, limited)
	if err != nil {
		return nil, n, err
	}
	if limited.N <= 0 {
		return nil, n, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}
	return header, n, nil
}

// ReadHeader reads only the header line of an archive.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Verify checks the integrity of an archive without decompressing it.
func Verify(path string) error {
	_, _, err := read(path)
	return err
}

// read returns the header and the verified compressed payload.
func read(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(payload); actual != header.Checksum {
		return nil, nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksum, header.Checksum, actual)
	}
	return header, payload, nil
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version %d", header.Version)
	}
	return &header, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Rotate keeps only the keep most recent archives in dir, deleting older
// ones, and returns the deleted paths.
func Rotate(dir string, keep int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, e.Name())
		}
	}
	// Timestamped names sort chronologically; newest first.
	slices.Sort(names)
	slices.Reverse(names)

	var deleted []string
	for _, name := range names[min(keep, len(names)):] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
		deleted = append(deleted, path)
	}
	return deleted, nil
}
