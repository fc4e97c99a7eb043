package roster

import (
	"log/slog"
	"sync"
)

// Directory hands out one Synchronizer per owner so each signed-in user has a
// collection of their own.
type Directory struct {
	records  RecordStore
	blobs    BlobStore
	cfg      Config
	logger   *slog.Logger
	onChange ChangeFunc

	mu    sync.Mutex
	syncs map[string]*Synchronizer
}

func NewDirectory(records RecordStore, blobs BlobStore, cfg Config, logger *slog.Logger, onChange ChangeFunc) *Directory {
	return &Directory{
		records:  records,
		blobs:    blobs,
		cfg:      cfg,
		logger:   logger,
		onChange: onChange,
		syncs:    make(map[string]*Synchronizer),
	}
}

// For returns the Synchronizer for ownerID, creating it on first use.
func (d *Directory) For(ownerID string) *Synchronizer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.syncs[ownerID]; ok {
		return s
	}
	s := New(d.records, d.blobs, d.cfg, d.logger)
	s.OnChange(d.onChange)
	d.syncs[ownerID] = s
	return s
}

// Forget drops ownerID's collection. Logout calls it once the user's last
// session ends, and account deletion calls it unconditionally.
func (d *Directory) Forget(ownerID string) {
	d.mu.Lock()
	delete(d.syncs, ownerID)
	d.mu.Unlock()
}

// Len returns the number of owners with a live collection.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.syncs)
}
