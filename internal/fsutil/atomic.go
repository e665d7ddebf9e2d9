// Package fsutil persists small JSON records to disk.
//
// Records are wrapped in an envelope carrying a blake3 checksum of the payload
// and are replaced through a temp file plus rename, so a reader sees either the
// previous record or the new one in full.
package fsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

var (
	// ErrNotExist is returned by ReadRecord when no record file exists.
	ErrNotExist = errors.New("record does not exist")

	// ErrChecksum is returned by ReadRecord when the payload does not match its checksum
	// or the envelope cannot be decoded.
	ErrChecksum = errors.New("record checksum mismatch")
)

const envelopeVersion = 1

type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Data     json.RawMessage `json:"data"`
}

// Checksum returns the hex blake3 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// WriteRecord marshals v and atomically replaces the file at path.
func WriteRecord(path string, v any, perm os.FileMode) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	data, err := json.MarshalIndent(envelope{
		Version:  envelopeVersion,
		Checksum: Checksum(payload),
		Data:     payload,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return WriteFileAtomic(path, data, perm)
}

// ReadRecord loads the record at path into v.
func ReadRecord(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("read record: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	// The envelope is indented on disk; the checksum covers the compact payload.
	var payload bytes.Buffer
	if err := json.Compact(&payload, env.Data); err != nil {
		return fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	if env.Checksum == "" || Checksum(payload.Bytes()) != env.Checksum {
		return ErrChecksum
	}

	if err := json.Unmarshal(payload.Bytes(), v); err != nil {
		return fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	return nil
}

// RemoveRecord deletes the record at path. A missing file is not an error.
func RemoveRecord(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path, syncs it, and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}
