// Package backup writes point-in-time copies of the SQLite database to the
// blob store, optionally encrypted.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var ErrNotConfigured = errors.New("backup destination not configured")

// Uploader is the blob store a snapshot is written to.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Snapshotter copies a live database with VACUUM INTO and uploads the copy.
type Snapshotter struct {
	db         *sql.DB
	uploader   Uploader
	passphrase string
	now        func() time.Time
	logger     *slog.Logger
}

// NewSnapshotter returns a Snapshotter. An empty passphrase uploads the
// snapshot unencrypted.
func NewSnapshotter(db *sql.DB, uploader Uploader, passphrase string, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{
		db:         db,
		uploader:   uploader,
		passphrase: passphrase,
		now:        time.Now,
		logger:     logger,
	}
}

// Name is the object name for a snapshot taken at t.
func Name(t time.Time, encrypted bool) string {
	name := "familyfeed-" + t.UTC().Format("2006-01-02T150405Z") + ".db"
	if encrypted {
		name += ".enc"
	}
	return name
}

// Snapshot uploads a consistent copy of the database and returns its
// location.
func (s *Snapshotter) Snapshot(ctx context.Context) (string, error) {
	if s.uploader == nil {
		return "", ErrNotConfigured
	}
	start := s.now()

	dir, err := os.MkdirTemp("", "familyfeed-backup-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	copyPath := filepath.Join(dir, "snapshot.db")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", copyPath); err != nil {
		return "", fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(copyPath)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}

	encrypted := s.passphrase != ""
	if encrypted {
		if data, err = Seal(data, s.passphrase); err != nil {
			return "", fmt.Errorf("encrypt snapshot: %w", err)
		}
	}

	location, err := s.uploader.Upload(ctx, Name(start, encrypted), data)
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	s.logger.Info("database snapshot uploaded", "location", location, "bytes", len(data), "encrypted", encrypted,
		"duration", time.Since(start))
	return location, nil
}

// Decrypt turns an encrypted snapshot file back into a SQLite database file.
func Decrypt(srcPath, dstPath, passphrase string) error {
	sealed, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read encrypted snapshot: %w", err)
	}
	plain, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, plain, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
