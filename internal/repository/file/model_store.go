// Package file stores trained models as one compressed file per user.
//
// Each file holds a gob-encoded record whose payload is gzip-compressed and
// protected by a SHA-256 checksum. Saves write a temporary file in the same
// directory and rename it over the old one, so readers see either the previous
// model or the new one.
package file

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"moodwave/internal/logger"
	"moodwave/internal/repository/db"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const fileSuffix = ".gob.gz"

var _ db.ModelStore = (*ModelStore)(nil)

// ModelStore implements db.ModelStore on a directory
type ModelStore struct {
	dir string
	mu  sync.Mutex
}

// record is the on-disk format
type record struct {
	UserID         string
	Kind           string
	TrainedRows    int
	Version        int
	TrainedAt      time.Time
	Checksum       string
	CompressedData []byte
}

// NewModelStore creates the directory if needed
func NewModelStore(dir string) (*ModelStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	return &ModelStore{dir: dir}, nil
}

// SaveModel atomically replaces the user's model file
func (s *ModelStore) SaveModel(ctx context.Context, m db.StoredModel) (*db.StoredModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.read(m.UserID)
	switch {
	case err == nil:
		m.Version = prev.Version + 1
	case errors.Is(err, db.ErrModelNotFound):
		m.Version = 1
	default:
		// an unreadable previous file is overwritten, but the version restarts
		logger.Log.WithFields(logrus.Fields{"user_id": m.UserID, "error": err}).Warn("Replacing unreadable model file")
		m.Version = 1
	}
	m.TrainedAt = time.Now().UTC()

	hash := sha256.Sum256(m.Data)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(m.Data); err != nil {
		return nil, db.NewStoreError("save model", m.UserID, fmt.Errorf("compress model: %w", err))
	}
	if err := gzw.Close(); err != nil {
		return nil, db.NewStoreError("save model", m.UserID, fmt.Errorf("finalize compression: %w", err))
	}

	rec := record{
		UserID:         m.UserID,
		Kind:           m.Kind,
		TrainedRows:    m.TrainedRows,
		Version:        m.Version,
		TrainedAt:      m.TrainedAt,
		Checksum:       hex.EncodeToString(hash[:]),
		CompressedData: compressed.Bytes(),
	}

	if err := s.writeAtomic(m.UserID, rec); err != nil {
		return nil, db.NewStoreError("save model", m.UserID, err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": m.UserID, "version": m.Version, "bytes": compressed.Len()}).Info("Saved model file")

	return &m, nil
}

// LoadModel reads and verifies the user's model file
func (s *ModelStore) LoadModel(ctx context.Context, userID string) (*db.StoredModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read(userID)
	if err != nil {
		if errors.Is(err, db.ErrModelNotFound) {
			return nil, err
		}
		return nil, db.NewStoreError("load model", userID, err)
	}
	return m, nil
}

// DeleteModel removes the user's model file if present
func (s *ModelStore) DeleteModel(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return db.NewStoreError("delete model", userID, err)
	}
	return nil
}

func (s *ModelStore) read(userID string) (*db.StoredModel, error) {
	f, err := os.Open(s.path(userID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, db.ErrModelNotFound
		}
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	var rec record
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: read model file: %v", db.ErrCorruptData, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(rec.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress model: %v", db.ErrCorruptData, err)
	}
	defer gzr.Close()

	data, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("%w: read decompressed data: %v", db.ErrCorruptData, err)
	}

	hash := sha256.Sum256(data)
	if checksum := hex.EncodeToString(hash[:]); checksum != rec.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch: expected %s, got %s", db.ErrCorruptData, rec.Checksum, checksum)
	}

	return &db.StoredModel{
		UserID:      rec.UserID,
		Kind:        rec.Kind,
		Data:        data,
		TrainedRows: rec.TrainedRows,
		Version:     rec.Version,
		TrainedAt:   rec.TrainedAt,
	}, nil
}

func (s *ModelStore) writeAtomic(userID string, rec record) error {
	tmp, err := os.CreateTemp(s.dir, ".model-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := gob.NewEncoder(tmp).Encode(rec); err != nil {
		tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(userID)); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

func (s *ModelStore) path(userID string) string {
	return filepath.Join(s.dir, FileName(userID))
}

// FileName maps a user id to a safe file name. Ids made only of letters,
// digits, '-' and '_' keep their text behind a "u-" prefix; anything else is
// hex-encoded behind "x-", so the two forms never collide.
func FileName(userID string) string {
	for _, r := range userID {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return "x-" + hex.EncodeToString([]byte(userID)) + fileSuffix
		}
	}
	return "u-" + userID + fileSuffix
}
