// Package roster keeps a signed-in user's family members in memory and in
// step with the record store.
//
// Local state only ever reflects records the store has confirmed. Remote calls
// run without holding the collection lock; each local change is one
// replace, append or remove under the lock.
package roster

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/store"
)

// RecordStore is the system of record for family members.
type RecordStore interface {
	Find(ctx context.Context, f store.Filter) ([]model.FamilyMember, error)
	// Get returns nil, nil when no record has the id.
	Get(ctx context.Context, id string) (*model.FamilyMember, error)
	// Save assigns an id when m has none.
	Save(ctx context.Context, m *model.FamilyMember) (*model.FamilyMember, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore holds binary assets and hands back a retrievable location.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ChangeFunc is called after every confirmed mutation.
type ChangeFunc func(ownerID string, action Action, id string)

type Config struct {
	MaxAssetBytes int
	UploadTimeout time.Duration
	SaveTimeout   time.Duration
	// PurgeConcurrency caps parallel deletes in PurgeOwner. Zero means no cap.
	PurgeConcurrency int
}

func DefaultConfig() Config {
	return Config{
		MaxAssetBytes:    10_000_000,
		UploadTimeout:    30 * time.Second,
		SaveTimeout:      15 * time.Second,
		PurgeConcurrency: 8,
	}
}

type Synchronizer struct {
	records  RecordStore
	blobs    BlobStore
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	onChange ChangeFunc

	mu      sync.RWMutex
	members []model.FamilyMember
	loaded  bool
	// gen counts local mutations. A fetch whose snapshot predates a
	// mutation must not overwrite it.
	gen uint64
}

// fetchAttempts bounds how often FetchAll retries a snapshot that raced a
// local mutation.
const fetchAttempts = 3

// New returns a Synchronizer with an empty collection. blobs may be nil, in
// which case asset uploads fail with a RemoteError.
func New(records RecordStore, blobs BlobStore, cfg Config, logger *slog.Logger) *Synchronizer {
	def := DefaultConfig()
	if cfg.MaxAssetBytes <= 0 {
		cfg.MaxAssetBytes = def.MaxAssetBytes
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = def.UploadTimeout
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = def.SaveTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		records: records,
		blobs:   blobs,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// OnChange registers fn to be told about confirmed mutations. Call it before
// the Synchronizer is shared.
func (s *Synchronizer) OnChange(fn ChangeFunc) {
	s.onChange = fn
}

func (s *Synchronizer) notify(ownerID string, action Action, id string) {
	if s.onChange != nil {
		s.onChange(ownerID, action, id)
	}
}

// Members returns a copy of the local collection in insertion order.
func (s *Synchronizer) Members() []model.FamilyMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.FamilyMember, len(s.members))
	for i, m := range s.members {
		out[i] = m.Clone()
	}
	return out
}

// Member returns a copy of the local record with the given id.
func (s *Synchronizer) Member(id string) (model.FamilyMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return model.FamilyMember{}, false
}

// Loaded reports whether FetchAll has succeeded at least once.
func (s *Synchronizer) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Synchronizer) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// replaceAll swaps in members unless the collection changed since gen was
// read. It reports whether the swap happened.
func (s *Synchronizer) replaceAll(members []model.FamilyMember, gen uint64) bool {
	fresh := make([]model.FamilyMember, len(members))
	for i, m := range members {
		fresh[i] = m.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.members = fresh
	s.loaded = true
	return true
}

func (s *Synchronizer) appendLocal(m model.FamilyMember) {
	s.mu.Lock()
	s.members = append(s.members, m.Clone())
	s.gen++
	s.mu.Unlock()
}

func (s *Synchronizer) replaceLocal(m model.FamilyMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if i := slices.IndexFunc(s.members, func(e model.FamilyMember) bool { return e.ID == m.ID }); i >= 0 {
		s.members[i] = m.Clone()
	}
}

func (s *Synchronizer) removeLocal(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.members = slices.DeleteFunc(s.members, func(e model.FamilyMember) bool {
		return slices.Contains(ids, e.ID)
	})
}

// FetchAll replaces the local collection with every record ac's user owns.
// On failure the local collection is left as it was. A snapshot taken before
// a concurrent Create, Update or Delete finished is discarded and fetched
// again; if that keeps happening the local collection, which holds only
// confirmed records, is returned as is.
func (s *Synchronizer) FetchAll(ctx context.Context, ac auth.AuthContext) ([]model.FamilyMember, error) {
	if !ac.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		gen := s.generation()
		members, err := s.records.Find(ctx, store.Filter{OwnerID: ac.UserID})
		if err != nil {
			return nil, classify("fetch family members", err)
		}
		if s.replaceAll(members, gen) {
			s.logger.Debug("fetched family members", "owner", ac.UserID, "count", len(members))
			return s.Members(), nil
		}
		s.logger.Debug("fetch raced a local change", "owner", ac.UserID, "attempt", attempt)
	}
	s.logger.Warn("fetch kept racing local changes; keeping local collection", "owner", ac.UserID)
	return s.Members(), nil
}

// Create persists draft as a new record owned by ac's user, readable and
// writable by that user only, and appends the stored record locally. Any id
// on draft is ignored.
func (s *Synchronizer) Create(ctx context.Context, ac auth.AuthContext, draft model.FamilyMember) (model.FamilyMember, error) {
	if !ac.Authenticated() {
		return model.FamilyMember{}, ErrNotAuthenticated
	}
	saved, err := s.persistNew(ctx, ac, draft)
	if err != nil {
		return model.FamilyMember{}, err
	}
	s.appendLocal(saved)
	s.logger.Info("family member created", "id", saved.ID, "owner", ac.UserID)
	s.notify(ac.UserID, ActionCreated, saved.ID)
	return saved, nil
}

func (s *Synchronizer) persistNew(ctx context.Context, ac auth.AuthContext, draft model.FamilyMember) (model.FamilyMember, error) {
	rec := draft.Clone()
	rec.ID = ""
	rec.OwnerID = ac.UserID
	rec.ACL = model.OwnerOnly(ac.UserID)

	saved, err := s.records.Save(ctx, &rec)
	if err != nil {
		return model.FamilyMember{}, classify("create family member", err)
	}
	return *saved, nil
}

// Update re-reads the stored record, copies the editable fields of rec onto
// it and saves the result, then replaces the local entry with the same id.
//
// The read and the write are not atomic. A concurrent update landing between
// them is overwritten: the last writer wins.
func (s *Synchronizer) Update(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember) (model.FamilyMember, error) {
	if !ac.Authenticated() {
		return model.FamilyMember{}, ErrNotAuthenticated
	}
	if rec.ID == "" {
		return model.FamilyMember{}, ErrRecordNotIdentified
	}
	saved, err := s.persistMerge(ctx, ac, rec)
	if err != nil {
		return model.FamilyMember{}, err
	}
	s.replaceLocal(saved)
	s.logger.Info("family member updated", "id", saved.ID, "owner", ac.UserID)
	s.notify(ac.UserID, ActionUpdated, saved.ID)
	return saved, nil
}

// fetchWritable reads id from the store and checks ac may change it.
func (s *Synchronizer) fetchWritable(ctx context.Context, ac auth.AuthContext, id, op string) (*model.FamilyMember, error) {
	existing, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, classify(op, err)
	}
	if existing == nil || !existing.ACL.CanRead(ac.UserID) {
		return nil, ErrRecordNotFound
	}
	if !existing.ACL.CanWrite(ac.UserID) {
		return nil, &RemoteError{Op: op, Err: ErrPermissionDenied}
	}
	return existing, nil
}

func (s *Synchronizer) persistMerge(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember) (model.FamilyMember, error) {
	existing, err := s.fetchWritable(ctx, ac, rec.ID, "read family member")
	if err != nil {
		return model.FamilyMember{}, err
	}

	src := rec.Clone()
	merged := existing.Clone()
	merged.Name = src.Name
	merged.Relationship = src.Relationship
	merged.DateOfBirth = src.DateOfBirth
	merged.BirthPlace = src.BirthPlace
	merged.BirthChart = src.BirthChart
	merged.ImportantDates = src.ImportantDates

	saved, err := s.records.Save(ctx, &merged)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between the read and the write.
		return model.FamilyMember{}, ErrRecordNotFound
	}
	if err != nil {
		return model.FamilyMember{}, classify("update family member", err)
	}
	return *saved, nil
}

// Delete removes the stored record and then the local entry with its id.
func (s *Synchronizer) Delete(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember) error {
	if !ac.Authenticated() {
		return ErrNotAuthenticated
	}
	if rec.ID == "" {
		return ErrRecordNotIdentified
	}
	existing, err := s.fetchWritable(ctx, ac, rec.ID, "read family member")
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, existing.ID); err != nil {
		return classify("delete family member", err)
	}
	s.dropAsset(ctx, *existing)
	s.removeLocal(existing.ID)
	s.logger.Info("family member deleted", "id", existing.ID, "owner", ac.UserID)
	s.notify(ac.UserID, ActionDeleted, existing.ID)
	return nil
}

// AddImportantDate appends d to rec's dates and saves rec. Duplicates are
// not rejected.
func (s *Synchronizer) AddImportantDate(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember, d model.ImportantDate) (model.FamilyMember, error) {
	updated := rec.Clone()
	updated.AddImportantDate(d)
	return s.Update(ctx, ac, updated)
}

// RemoveImportantDate drops every date on rec with the same date and
// description as d and saves rec.
func (s *Synchronizer) RemoveImportantDate(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember, d model.ImportantDate) (model.FamilyMember, error) {
	updated := rec.Clone()
	updated.RemoveImportantDate(d)
	return s.Update(ctx, ac, updated)
}
