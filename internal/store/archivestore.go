package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/session"

	"gorm.io/gorm"
)

// ArchiveStore owns the archived_activities table, the parallel store for
// soft-deleted entries. Archived rows carry their own id sequence; moving an
// activity between the two stores is an explicit copy+delete driven by the
// caller.
type ArchiveStore struct {
	db      *gorm.DB
	session *session.Session

	mu       sync.Mutex
	archived []models.ArchivedActivity
}

// NewArchiveStore constructs an ArchiveStore bound to the shared session.
func NewArchiveStore(db *gorm.DB, sess *session.Session) *ArchiveStore {
	return &ArchiveStore{db: db, session: sess}
}

func (s *ArchiveStore) guard() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("archive store: %w", errs.ErrStorageUnavailable)
	}
	return nil
}

func (s *ArchiveStore) actor() (*models.User, error) {
	actor := s.session.Current()
	if actor == nil {
		return nil, fmt.Errorf("%w: sign in to manage the archive", errs.ErrAuthentication)
	}
	return actor, nil
}

// ArchivedActivities returns the cached rows from the last refresh.
func (s *ArchiveStore) ArchivedActivities() []models.ArchivedActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ArchivedActivity, len(s.archived))
	copy(out, s.archived)
	return out
}

// Reload refreshes the cache with the session user's archived rows, newest
// archival first.
func (s *ArchiveStore) Reload(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *ArchiveStore) refreshLocked(ctx context.Context) error {
	actor := s.session.Current()
	if actor == nil {
		s.archived = nil
		return nil
	}
	var rows []models.ArchivedActivity
	errFind := s.db.WithContext(ctx).
		Where("userId = ?", actor.ID).
		Order("archivedAt DESC").
		Find(&rows).Error
	if errFind != nil {
		return fmt.Errorf("archive store: load archived: %w", errFind)
	}
	s.archived = rows
	return nil
}

// ArchiveActivity inserts a new archived row owned by the session user,
// stamped with the current archival time. The caller deletes the source
// activity afterwards; this store never reaches into the activities table.
func (s *ArchiveStore) ArchiveActivity(ctx context.Context, steps int64, date int64) (*models.ArchivedActivity, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	actor, errActor := s.actor()
	if errActor != nil {
		return nil, errActor
	}
	if steps < 0 {
		return nil, fmt.Errorf("%w: steps cannot be negative", errs.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	archived := models.ArchivedActivity{
		Steps:      steps,
		Date:       date,
		ArchivedAt: nowUnix(),
		UserID:     actor.ID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&archived).Error; errCreate != nil {
		return nil, fmt.Errorf("archive store: archive activity: %w", errCreate)
	}
	if errRefresh := s.refreshLocked(ctx); errRefresh != nil {
		return nil, errRefresh
	}
	return &archived, nil
}

// UnarchiveActivity removes the archived row. Restoration of an Activity is
// the caller's job: this store only discards its copy.
func (s *ArchiveStore) UnarchiveActivity(ctx context.Context, id uint64) error {
	return s.remove(ctx, id)
}

// DeleteArchivedActivity discards the archived row permanently. At the store
// level this is the same delete as unarchiving; the intent differs only for
// the caller.
func (s *ArchiveStore) DeleteArchivedActivity(ctx context.Context, id uint64) error {
	return s.remove(ctx, id)
}

func (s *ArchiveStore) remove(ctx context.Context, id uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	actor, errActor := s.actor()
	if errActor != nil {
		return errActor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := ownerScope(s.db.WithContext(ctx).Where("id = ?", id), actor).
		Delete(&models.ArchivedActivity{})
	if res.Error != nil {
		return fmt.Errorf("archive store: delete archived: %w", res.Error)
	}
	return s.refreshLocked(ctx)
}

// DeleteAllArchived removes every archived row owned by the acting user.
// Same own-rows-only scope as the activity store's bulk delete, admins
// included.
func (s *ArchiveStore) DeleteAllArchived(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	actor, errActor := s.actor()
	if errActor != nil {
		return errActor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errDelete := s.db.WithContext(ctx).
		Where("userId = ?", actor.ID).
		Delete(&models.ArchivedActivity{}).Error
	if errDelete != nil {
		return fmt.Errorf("archive store: delete all archived: %w", errDelete)
	}
	return s.refreshLocked(ctx)
}

// GetArchivedActivitiesByUserID returns another user's archived rows by
// explicit target id. Admin/inspection path; does not touch the cache.
func (s *ArchiveStore) GetArchivedActivitiesByUserID(ctx context.Context, userID uint64) ([]models.ArchivedActivity, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var rows []models.ArchivedActivity
	errFind := s.db.WithContext(ctx).
		Where("userId = ?", userID).
		Order("archivedAt DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("archive store: load archived for user %d: %w", userID, errFind)
	}
	return rows, nil
}
