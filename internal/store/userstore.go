package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/security"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/session"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/validate"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Bootstrap admin account created on first initialization.
const (
	bootstrapAdminEmail    = "atlas@studentmail.com"
	bootstrapAdminUsername = "admin22"
	bootstrapAdminPassword = "@Atlas22"
	bootstrapAdminPhone    = "0000000000"
)

// UserStore owns the users and password_reset_requests tables. It is the
// sole authority for authentication state: only its Login/Logout paths write
// the shared session.
type UserStore struct {
	db      *gorm.DB
	session *session.Session

	mu    sync.Mutex
	users []models.User
}

// NewUserStore constructs a UserStore bound to the shared session.
func NewUserStore(db *gorm.DB, sess *session.Session) *UserStore {
	return &UserStore{db: db, session: sess}
}

func (s *UserStore) guard() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("user store: %w", errs.ErrStorageUnavailable)
	}
	return nil
}

// Init creates the bootstrap admin account when absent and marks the session
// as done loading. Called once at startup.
func (s *UserStore) Init(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	defer s.session.FinishLoading()

	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", bootstrapAdminEmail).Count(&count).Error; errCount != nil {
		return fmt.Errorf("user store: check bootstrap admin: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(bootstrapAdminPassword)
	if errHash != nil {
		return fmt.Errorf("user store: hash bootstrap password: %w", errHash)
	}
	admin := models.User{
		Email:     bootstrapAdminEmail,
		Username:  bootstrapAdminUsername,
		Password:  hash,
		FirstName: "Admin",
		LastName:  "User",
		Phone:     bootstrapAdminPhone,
		IsAdmin:   true,
		CreatedAt: nowMillis(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			// Another startup path won the race; the account exists.
			return nil
		}
		return fmt.Errorf("user store: create bootstrap admin: %w", errCreate)
	}
	log.Info("bootstrap admin account created")
	return nil
}

// RegisterData carries the fields collected by the registration form.
type RegisterData struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Register validates the input, enforces email/username uniqueness, inserts
// the user, and signs the new account in.
func (s *UserStore) Register(ctx context.Context, data RegisterData) (*models.User, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	if !validate.Email(data.Email) {
		return nil, fmt.Errorf("%w: please enter a valid email address", errs.ErrValidation)
	}
	if !validate.Username(data.Username) {
		return nil, fmt.Errorf("%w: username must be 3-15 characters, letters and numbers only", errs.ErrValidation)
	}
	if errPassword := validate.Password(data.Password); errPassword != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, errPassword)
	}
	if !validate.Phone(data.Phone) {
		return nil, fmt.Errorf("%w: please enter a valid 10-digit phone number", errs.ErrValidation)
	}
	if strings.TrimSpace(data.FirstName) == "" || strings.TrimSpace(data.LastName) == "" {
		return nil, fmt.Errorf("%w: please enter your first and last name", errs.ErrValidation)
	}

	emailTaken, errEmail := s.exists(ctx, "email = ?", data.Email)
	if errEmail != nil {
		return nil, errEmail
	}
	if emailTaken {
		return nil, fmt.Errorf("%w: this email is already registered", errs.ErrConflict)
	}
	usernameTaken, errUsername := s.exists(ctx, "username = ?", data.Username)
	if errUsername != nil {
		return nil, errUsername
	}
	if usernameTaken {
		return nil, fmt.Errorf("%w: this username is already taken", errs.ErrConflict)
	}

	hash, errHash := security.HashPassword(data.Password)
	if errHash != nil {
		return nil, fmt.Errorf("user store: hash password: %w", errHash)
	}

	user := models.User{
		Email:     data.Email,
		Username:  data.Username,
		Password:  hash,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Phone:     data.Phone,
		IsAdmin:   false,
		CreatedAt: nowMillis(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			// Lost the race between the pre-check and the insert.
			return nil, fmt.Errorf("%w: email or username is already taken", errs.ErrConflict)
		}
		return nil, fmt.Errorf("user store: create user: %w", errCreate)
	}

	s.session.Set(&user)
	return &user, nil
}

// Login matches usernameOrEmail against either column and verifies the
// password. The failure message never reveals which part was wrong.
func (s *UserStore) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", usernameOrEmail, usernameOrEmail).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAuthentication
		}
		return nil, fmt.Errorf("user store: login query: %w", errFind)
	}
	if !security.VerifyPassword(user.Password, password) {
		return nil, errs.ErrAuthentication
	}

	s.session.Set(&user)
	return &user, nil
}

// Logout clears the session synchronously. No database interaction.
func (s *UserStore) Logout() {
	if s == nil || s.session == nil {
		return
	}
	s.session.Clear()
}

// UpdateUserData carries the optional profile fields; nil means unchanged.
type UpdateUserData struct {
	Username *string
	Password *string
	Email    *string
	Phone    *string
}

// UpdateUser applies a sparse profile update after re-running the
// registration rules on each provided field. Uniqueness checks exclude the
// user being updated. Updating the session user refreshes session state.
func (s *UserStore) UpdateUser(ctx context.Context, id uint64, data UpdateUserData) error {
	if err := s.guard(); err != nil {
		return err
	}
	if data.Username == nil && data.Password == nil && data.Email == nil && data.Phone == nil {
		return fmt.Errorf("%w: no fields to update", errs.ErrValidation)
	}

	updates := map[string]any{}

	if data.Username != nil {
		if !validate.Username(*data.Username) {
			return fmt.Errorf("%w: username must be 3-15 characters, letters and numbers only", errs.ErrValidation)
		}
		taken, errCheck := s.exists(ctx, "username = ? AND id != ?", *data.Username, id)
		if errCheck != nil {
			return errCheck
		}
		if taken {
			return fmt.Errorf("%w: this username is already taken", errs.ErrConflict)
		}
		updates["username"] = *data.Username
	}
	if data.Email != nil {
		if !validate.Email(*data.Email) {
			return fmt.Errorf("%w: please enter a valid email address", errs.ErrValidation)
		}
		taken, errCheck := s.exists(ctx, "email = ? AND id != ?", *data.Email, id)
		if errCheck != nil {
			return errCheck
		}
		if taken {
			return fmt.Errorf("%w: this email is already registered", errs.ErrConflict)
		}
		updates["email"] = *data.Email
	}
	if data.Password != nil {
		if errPassword := validate.Password(*data.Password); errPassword != nil {
			return fmt.Errorf("%w: %v", errs.ErrValidation, errPassword)
		}
		hash, errHash := security.HashPassword(*data.Password)
		if errHash != nil {
			return fmt.Errorf("user store: hash password: %w", errHash)
		}
		updates["password"] = hash
	}
	if data.Phone != nil {
		if !validate.Phone(*data.Phone) {
			return fmt.Errorf("%w: please enter a valid 10-digit phone number", errs.ErrValidation)
		}
		updates["phone"] = *data.Phone
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: email or username is already taken", errs.ErrConflict)
		}
		return fmt.Errorf("user store: update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", errs.ErrNotFound, id)
	}

	if current := s.session.Current(); current != nil && current.ID == id {
		var refreshed models.User
		if errFind := s.db.WithContext(ctx).First(&refreshed, id).Error; errFind == nil {
			s.session.Set(&refreshed)
		}
	}
	return nil
}

// DeleteUser removes the account and its password reset requests. Deleting
// the signed-in account logs it out.
func (s *UserStore) DeleteUser(ctx context.Context, id uint64) error {
	if err := s.guard(); err != nil {
		return err
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errRequests := tx.Where("userId = ?", id).Delete(&models.PasswordResetRequest{}).Error; errRequests != nil {
			return errRequests
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: user %d", errs.ErrNotFound, id)
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, errs.ErrNotFound) {
			return errTx
		}
		return fmt.Errorf("user store: delete user: %w", errTx)
	}

	if current := s.session.Current(); current != nil && current.ID == id {
		s.session.Clear()
	}
	return nil
}

// GetAllUsers returns every account ordered by creation time descending and
// refreshes the in-memory user list cache.
func (s *UserStore) GetAllUsers(ctx context.Context) ([]models.User, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var rows []models.User
	if errFind := s.db.WithContext(ctx).Order("createdAt DESC, id DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("user store: list users: %w", errFind)
	}

	s.mu.Lock()
	s.users = rows
	s.mu.Unlock()

	out := make([]models.User, len(rows))
	copy(out, rows)
	return out, nil
}

// Users returns the cached user list from the last GetAllUsers call.
func (s *UserStore) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

// ResetUserPassword overwrites the user's password unconditionally after
// validating the policy. Intended for admin-initiated resets; no old
// password is required.
func (s *UserStore) ResetUserPassword(ctx context.Context, id uint64, newPassword string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if errPassword := validate.Password(newPassword); errPassword != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, errPassword)
	}
	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		return fmt.Errorf("user store: hash password: %w", errHash)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("user store: reset password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", errs.ErrNotFound, id)
	}
	return nil
}

func (s *UserStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where(query, args...).Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("user store: existence check: %w", errCount)
	}
	return count > 0, nil
}
