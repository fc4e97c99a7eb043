package roster

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/store"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// PurgeOwner deletes every record ac's user owns, one goroutine per record.
// A failed delete does not stop the others, but any failure fails the call
// with every error combined. It returns how many records were deleted;
// those leave the local collection whatever the outcome.
func (s *Synchronizer) PurgeOwner(ctx context.Context, ac auth.AuthContext) (int, error) {
	if !ac.Authenticated() {
		return 0, ErrNotAuthenticated
	}
	members, err := s.records.Find(ctx, store.Filter{OwnerID: ac.UserID})
	if err != nil {
		return 0, classify("list family members", err)
	}

	var (
		mu      sync.Mutex
		errs    error
		deleted []string
	)
	var g errgroup.Group
	if s.cfg.PurgeConcurrency > 0 {
		g.SetLimit(s.cfg.PurgeConcurrency)
	}
	for _, m := range members {
		g.Go(func() error {
			err := s.records.Delete(ctx, m.ID)
			if err == nil {
				s.dropAsset(ctx, m)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", m.ID, err))
				return nil
			}
			deleted = append(deleted, m.ID)
			return nil
		})
	}
	g.Wait()

	s.removeLocal(deleted...)
	for _, id := range deleted {
		s.notify(ac.UserID, ActionDeleted, id)
	}

	if errs != nil {
		s.logger.Error("purge family members", "owner", ac.UserID, "deleted", len(deleted), "failed", len(multierr.Errors(errs)))
		return len(deleted), &RemoteError{Op: "purge family members", Err: errs}
	}
	s.logger.Info("purged family members", "owner", ac.UserID, "deleted", len(deleted))
	return len(deleted), nil
}
