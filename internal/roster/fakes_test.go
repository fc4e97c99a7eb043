package roster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/store"
)

// fakeRecords is an in-memory RecordStore.
type fakeRecords struct {
	mu     sync.Mutex
	rows   map[string]model.FamilyMember
	order  []string
	nextID int

	findErr   error
	getErr    error
	saveErr   error
	deleteErr map[string]error
	saveDelay time.Duration

	saves   []model.FamilyMember
	deletes []string
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: make(map[string]model.FamilyMember), deleteErr: make(map[string]error)}
}

// seed stores m directly, bypassing Save bookkeeping.
func (f *fakeRecords) seed(m model.FamilyMember) model.FamilyMember {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		f.nextID++
		m.ID = fmt.Sprintf("m%d", f.nextID)
	}
	f.rows[m.ID] = m.Clone()
	f.order = append(f.order, m.ID)
	return m
}

func (f *fakeRecords) Find(_ context.Context, flt store.Filter) ([]model.FamilyMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.FamilyMember
	for _, id := range f.order {
		m, ok := f.rows[id]
		if !ok {
			continue
		}
		if flt.OwnerID != "" && m.OwnerID != flt.OwnerID {
			continue
		}
		if flt.ID != "" && m.ID != flt.ID {
			continue
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (*model.FamilyMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	m, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	c := m.Clone()
	return &c, nil
}

func (f *fakeRecords) Save(ctx context.Context, m *model.FamilyMember) (*model.FamilyMember, error) {
	if f.saveDelay > 0 {
		select {
		case <-time.After(f.saveDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	c := m.Clone()
	if c.ID == "" {
		f.nextID++
		c.ID = fmt.Sprintf("m%d", f.nextID)
		f.order = append(f.order, c.ID)
	} else if _, ok := f.rows[c.ID]; !ok {
		return nil, store.ErrNotFound
	}
	f.rows[c.ID] = c
	f.saves = append(f.saves, c.Clone())
	out := c.Clone()
	return &out, nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	delete(f.rows, id)
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRecords) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

// fakeBlobs is an in-memory BlobStore.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   int
	err     error
	delay   time.Duration

	deleted   []string
	deleteErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(ctx context.Context, name string, data []byte) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.err != nil {
		return "", b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = data
	return "https://blobs.example.com/" + name, nil
}

func (b *fakeBlobs) Delete(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, name)
	delete(b.objects, name)
	return b.deleteErr
}

func (b *fakeBlobs) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

var (
	alice = auth.AuthContext{UserID: "alice", Username: "alice"}
	bob   = auth.AuthContext{UserID: "bob", Username: "bob"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSync(records RecordStore, blobs BlobStore) *Synchronizer {
	return New(records, blobs, Config{
		MaxAssetBytes: 1000,
		UploadTimeout: time.Second,
		SaveTimeout:   time.Second,
	}, discardLogger())
}

func ownedBy(ac auth.AuthContext, name, relationship string) model.FamilyMember {
	return model.FamilyMember{
		Name:         name,
		Relationship: relationship,
		DateOfBirth:  time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		OwnerID:      ac.UserID,
		ACL:          model.OwnerOnly(ac.UserID),
	}
}
