package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/session"

	"gorm.io/gorm"
)

// ActivityStore owns the activities table. Every row belongs to exactly one
// user; a non-admin actor only ever touches rows it owns, while an admin may
// mutate any row by id. The cache always holds the acting user's rows only.
type ActivityStore struct {
	db      *gorm.DB
	session *session.Session

	mu         sync.Mutex
	activities []models.Activity
}

// NewActivityStore constructs an ActivityStore bound to the shared session.
func NewActivityStore(db *gorm.DB, sess *session.Session) *ActivityStore {
	return &ActivityStore{db: db, session: sess}
}

func (s *ActivityStore) guard() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("activity store: %w", errs.ErrStorageUnavailable)
	}
	return nil
}

func (s *ActivityStore) actor() (*models.User, error) {
	actor := s.session.Current()
	if actor == nil {
		return nil, fmt.Errorf("%w: sign in to manage activities", errs.ErrAuthentication)
	}
	return actor, nil
}

// ownerScope constrains q to rows the actor owns unless the actor is admin.
func ownerScope(q *gorm.DB, actor *models.User) *gorm.DB {
	if actor.IsAdmin {
		return q
	}
	return q.Where("userId = ?", actor.ID)
}

// Activities returns the cached rows from the last refresh.
func (s *ActivityStore) Activities() []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// Reload refreshes the cache with the session user's rows, newest date
// first. With nobody signed in the cache empties.
func (s *ActivityStore) Reload(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked re-reads the acting user's rows into the cache. Admins see
// only their own rows here; cross-user visibility goes through
// GetActivitiesByUserID.
func (s *ActivityStore) refreshLocked(ctx context.Context) error {
	actor := s.session.Current()
	if actor == nil {
		s.activities = nil
		return nil
	}
	var rows []models.Activity
	errFind := s.db.WithContext(ctx).
		Where("userId = ?", actor.ID).
		Order("date DESC").
		Find(&rows).Error
	if errFind != nil {
		return fmt.Errorf("activity store: load activities: %w", errFind)
	}
	s.activities = rows
	return nil
}

// AddActivity inserts a step-count entry owned by the session user. A zero
// date defaults to the current time in epoch seconds.
func (s *ActivityStore) AddActivity(ctx context.Context, steps int64, date int64) (*models.Activity, error) {
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
	if date == 0 {
		date = nowUnix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	activity := models.Activity{Steps: steps, Date: date, UserID: actor.ID}
	if errCreate := s.db.WithContext(ctx).Create(&activity).Error; errCreate != nil {
		return nil, fmt.Errorf("activity store: add activity: %w", errCreate)
	}
	if errRefresh := s.refreshLocked(ctx); errRefresh != nil {
		return nil, errRefresh
	}
	return &activity, nil
}

// UpdateActivity changes the step count of one entry. Ownership is enforced
// for non-admin actors.
func (s *ActivityStore) UpdateActivity(ctx context.Context, id uint64, steps int64) error {
	if err := s.guard(); err != nil {
		return err
	}
	actor, errActor := s.actor()
	if errActor != nil {
		return errActor
	}
	if steps < 0 {
		return fmt.Errorf("%w: steps cannot be negative", errs.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := ownerScope(s.db.WithContext(ctx).Model(&models.Activity{}).Where("id = ?", id), actor).
		Update("steps", steps)
	if res.Error != nil {
		return fmt.Errorf("activity store: update activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: activity %d", errs.ErrNotFound, id)
	}
	return s.refreshLocked(ctx)
}

// DeleteActivity removes one entry. Deleting an id that is already gone is a
// no-op, so a second rapid delete degrades gracefully.
func (s *ActivityStore) DeleteActivity(ctx context.Context, id uint64) error {
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
		Delete(&models.Activity{})
	if res.Error != nil {
		return fmt.Errorf("activity store: delete activity: %w", res.Error)
	}
	return s.refreshLocked(ctx)
}

// DeleteAllActivities removes every entry owned by the acting user. The
// scope is the actor's own rows even for admins.
func (s *ActivityStore) DeleteAllActivities(ctx context.Context) error {
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
		Delete(&models.Activity{}).Error
	if errDelete != nil {
		return fmt.Errorf("activity store: delete all activities: %w", errDelete)
	}
	return s.refreshLocked(ctx)
}

// DeleteAllUnprotected removes the acting user's entries that are not
// protected. Protected rows always survive.
func (s *ActivityStore) DeleteAllUnprotected(ctx context.Context) error {
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
		Where("userId = ? AND isProtected = ?", actor.ID, false).
		Delete(&models.Activity{}).Error
	if errDelete != nil {
		return fmt.Errorf("activity store: delete unprotected: %w", errDelete)
	}
	return s.refreshLocked(ctx)
}

// ProtectActivity exempts one entry from bulk unprotected deletes.
func (s *ActivityStore) ProtectActivity(ctx context.Context, id uint64) error {
	return s.setProtected(ctx, id, true)
}

// UnprotectActivity clears the protection flag.
func (s *ActivityStore) UnprotectActivity(ctx context.Context, id uint64) error {
	return s.setProtected(ctx, id, false)
}

func (s *ActivityStore) setProtected(ctx context.Context, id uint64, protected bool) error {
	if err := s.guard(); err != nil {
		return err
	}
	actor, errActor := s.actor()
	if errActor != nil {
		return errActor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := ownerScope(s.db.WithContext(ctx).Model(&models.Activity{}).Where("id = ?", id), actor).
		Update("isProtected", protected)
	if res.Error != nil {
		return fmt.Errorf("activity store: set protection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: activity %d", errs.ErrNotFound, id)
	}
	return s.refreshLocked(ctx)
}

// GetActivitiesByUserID returns another user's rows by explicit target id.
// This is the admin/inspection path; it does not touch the cache.
func (s *ActivityStore) GetActivitiesByUserID(ctx context.Context, userID uint64) ([]models.Activity, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var rows []models.Activity
	errFind := s.db.WithContext(ctx).
		Where("userId = ?", userID).
		Order("date DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("activity store: load activities for user %d: %w", userID, errFind)
	}
	return rows, nil
}

// Summary aggregates a user's step log.
type Summary struct {
	Count   int64
	Total   int64
	Average int64
	Max     int64
	Min     int64
}

// Summarize aggregates the session user's activities.
func (s *ActivityStore) Summarize(ctx context.Context) (Summary, error) {
	actor, errActor := s.actor()
	if errActor != nil {
		return Summary{}, errActor
	}
	return s.SummarizeForUser(ctx, actor.ID)
}

// SummarizeForUser aggregates one user's activities by explicit target id.
func (s *ActivityStore) SummarizeForUser(ctx context.Context, userID uint64) (Summary, error) {
	if err := s.guard(); err != nil {
		return Summary{}, err
	}

	var row struct {
		Count int64         `gorm:"column:count"`
		Total sql.NullInt64 `gorm:"column:total"`
		Max   sql.NullInt64 `gorm:"column:max"`
		Min   sql.NullInt64 `gorm:"column:min"`
	}
	errScan := s.db.WithContext(ctx).Model(&models.Activity{}).
		Select("COUNT(*) AS count, SUM(steps) AS total, MAX(steps) AS max, MIN(steps) AS min").
		Where("userId = ?", userID).
		Scan(&row).Error
	if errScan != nil {
		return Summary{}, fmt.Errorf("activity store: summarize user %d: %w", userID, errScan)
	}
	if row.Count == 0 {
		return Summary{}, nil
	}
	return Summary{
		Count:   row.Count,
		Total:   row.Total.Int64,
		Average: int64(math.Round(float64(row.Total.Int64) / float64(row.Count))),
		Max:     row.Max.Int64,
		Min:     row.Min.Int64,
	}, nil
}
