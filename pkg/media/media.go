// Package media stores uploaded interview blobs (audio answers, screen
// recordings) behind opaque references. The reference never encodes a
// filesystem path; clients get it back from answer payloads and the server
// resolves it internally.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reference resolves to nothing.
var ErrNotFound = errors.New("blob not found")

// MaxUploadBytes bounds one upload; recordings are chunked client-side.
const MaxUploadBytes = 64 << 20

// SavedBlob describes a stored blob.
type SavedBlob struct {
	Ref      string
	Size     int64
	Checksum string // sha256, lowercase hex
}

// BlobStore persists opaque blobs.
type BlobStore interface {
	// Save streams r to storage and returns the new blob's ref, size, and
	// sha256 checksum.
	Save(ctx context.Context, sessionID string, r io.Reader) (SavedBlob, error)
	// Open returns a reader for the blob, or ErrNotFound.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, ref string) error
	// DeleteSession removes every blob stored for the session.
	DeleteSession(ctx context.Context, sessionID string) error
}

// DiskStore keeps blobs under root/<sessionID>/<uuid>. The ref is
// "<sessionID>/<uuid>"; both components are server-generated, so refs are
// never attacker-controlled paths.
type DiskStore struct {
	root string
}

var _ BlobStore = (*DiskStore)(nil)

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating upload root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) Save(_ context.Context, sessionID string, r io.Reader) (SavedBlob, error) {
	dir := filepath.Join(d.root, sessionID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return SavedBlob{}, fmt.Errorf("creating session dir: %w", err)
	}
	id := uuid.NewString()
	path := filepath.Join(dir, id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return SavedBlob{}, fmt.Errorf("creating blob file: %w", err)
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), io.LimitReader(r, MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size > MaxUploadBytes {
		err = fmt.Errorf("blob exceeds %d bytes", int64(MaxUploadBytes))
	}
	if err != nil {
		os.Remove(path)
		return SavedBlob{}, fmt.Errorf("writing blob: %w", err)
	}

	return SavedBlob{
		Ref:      sessionID + "/" + id,
		Size:     size,
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// resolve validates the two-component ref shape before touching the disk.
func (d *DiskStore) resolve(ref string) (string, error) {
	dir, file := filepath.Split(filepath.Clean(ref))
	dir = filepath.Clean(dir)
	if dir == "" || dir == "." || dir == ".." || file == "" || filepath.IsAbs(ref) {
		return "", ErrNotFound
	}
	if _, err := uuid.Parse(file); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(d.root, dir, file), nil
}

func (d *DiskStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	path, err := d.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *DiskStore) Delete(_ context.Context, ref string) error {
	path, err := d.resolve(ref)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

func (d *DiskStore) DeleteSession(_ context.Context, sessionID string) error {
	if sessionID == "" || sessionID == "." || sessionID == ".." {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(d.root, sessionID)); err != nil {
		return fmt.Errorf("deleting session blobs: %w", err)
	}
	return nil
}
