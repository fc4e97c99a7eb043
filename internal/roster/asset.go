package roster

import (
	"context"
	"fmt"
	"path"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/blob"
	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/timeout"
	"github.com/google/uuid"
)

// AssetName is the blob name a record's birth chart is stored under. Records
// without an id get a fresh random name.
func AssetName(id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	return id + "_birthchart.jpg"
}

// dropAsset removes the birth chart of a deleted record. Failures are logged
// and leave the object orphaned.
func (s *Synchronizer) dropAsset(ctx context.Context, m model.FamilyMember) {
	if s.blobs == nil || m.BirthChart == nil || *m.BirthChart == "" {
		return
	}
	name := path.Base(*m.BirthChart)
	if err := s.blobs.Delete(ctx, name); err != nil {
		s.logger.Warn("delete birth chart", "id", m.ID, "name", name, "error", err)
	}
}

func (s *Synchronizer) checkPayload(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}
	if len(data) > s.cfg.MaxAssetBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, len(data), s.cfg.MaxAssetBytes)
	}
	return nil
}

// UploadAsset stores data as rec's birth chart and saves the new location on
// the record. The upload and the save are each bounded by their own timeout.
// A timeout fails with ErrOperationTimedOut and leaves the local collection
// alone even if the remote side later completes.
//
// A record without an id is created rather than updated.
func (s *Synchronizer) UploadAsset(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember, data []byte) (model.FamilyMember, error) {
	if !ac.Authenticated() {
		return model.FamilyMember{}, ErrNotAuthenticated
	}
	if err := s.checkPayload(data); err != nil {
		return model.FamilyMember{}, err
	}
	if s.blobs == nil {
		return model.FamilyMember{}, &RemoteError{Op: "upload birth chart", Err: blob.ErrNotConfigured}
	}

	name := AssetName(rec.ID)
	location, err := timeout.Do(ctx, s.cfg.UploadTimeout, func(ctx context.Context) (string, error) {
		return s.blobs.Upload(ctx, name, data)
	})
	if err != nil {
		s.logger.Warn("birth chart upload failed", "id", rec.ID, "owner", ac.UserID, "bytes", len(data), "error", err)
		return model.FamilyMember{}, classify("upload birth chart", err)
	}

	updated := rec.Clone()
	updated.BirthChart = &location

	if rec.ID == "" {
		saved, err := timeout.Do(ctx, s.cfg.SaveTimeout, func(ctx context.Context) (model.FamilyMember, error) {
			return s.persistNew(ctx, ac, updated)
		})
		if err != nil {
			return model.FamilyMember{}, classify("save birth chart", err)
		}
		s.appendLocal(saved)
		s.logger.Info("family member created with birth chart", "id", saved.ID, "owner", ac.UserID)
		s.notify(ac.UserID, ActionCreated, saved.ID)
		return saved, nil
	}

	saved, err := timeout.Do(ctx, s.cfg.SaveTimeout, func(ctx context.Context) (model.FamilyMember, error) {
		return s.persistMerge(ctx, ac, updated)
	})
	if err != nil {
		return model.FamilyMember{}, classify("save birth chart", err)
	}
	s.replaceLocal(saved)
	s.logger.Info("birth chart uploaded", "id", saved.ID, "owner", ac.UserID, "bytes", len(data))
	s.notify(ac.UserID, ActionUpdated, saved.ID)
	return saved, nil
}

// ReplaceAsset clears rec's current birth chart with a saved update and then
// uploads data. The two steps are not atomic: if the upload fails or the
// process dies in between, the record is left with no birth chart at all.
// An invalid payload is rejected before anything is cleared.
func (s *Synchronizer) ReplaceAsset(ctx context.Context, ac auth.AuthContext, rec model.FamilyMember, data []byte) (model.FamilyMember, error) {
	if !ac.Authenticated() {
		return model.FamilyMember{}, ErrNotAuthenticated
	}
	if err := s.checkPayload(data); err != nil {
		return model.FamilyMember{}, err
	}

	if rec.BirthChart != nil {
		cleared := rec.Clone()
		cleared.BirthChart = nil
		if rec.ID != "" {
			saved, err := s.Update(ctx, ac, cleared)
			if err != nil {
				return model.FamilyMember{}, err
			}
			cleared = saved
		}
		rec = cleared
	}
	return s.UploadAsset(ctx, ac, rec, data)
}
