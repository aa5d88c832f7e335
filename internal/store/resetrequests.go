package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/security"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/validate"

	"gorm.io/gorm"
)

// RequestPasswordReset opens a pending reset request for the user matching
// both username and email. At most one pending request may exist per user.
func (s *UserStore) RequestPasswordReset(ctx context.Context, username, email string) (*models.PasswordResetRequest, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("username = ? AND email = ?", username, email).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no account matches that username and email", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("user store: find account: %w", errFind)
	}

	var pending int64
	if errCount := s.db.WithContext(ctx).Model(&models.PasswordResetRequest{}).
		Where("userId = ? AND status = ?", user.ID, models.ResetStatusPending).
		Count(&pending).Error; errCount != nil {
		return nil, fmt.Errorf("user store: check pending requests: %w", errCount)
	}
	if pending > 0 {
		return nil, fmt.Errorf("%w: a reset request is already pending for this account", errs.ErrConflict)
	}

	request := models.PasswordResetRequest{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		RequestedAt: nowMillis(),
		Status:      models.ResetStatusPending,
	}
	if errCreate := s.db.WithContext(ctx).Create(&request).Error; errCreate != nil {
		return nil, fmt.Errorf("user store: create reset request: %w", errCreate)
	}
	return &request, nil
}

// ApprovePasswordReset moves a pending request to approved, stamping the
// acting user and approval time. Requires an authenticated actor; gating to
// admins is a presentation concern.
func (s *UserStore) ApprovePasswordReset(ctx context.Context, requestID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}
	actor := s.session.Current()
	if actor == nil {
		return fmt.Errorf("%w: sign in to approve reset requests", errs.ErrAuthentication)
	}

	request, errLoad := s.loadResetRequest(ctx, requestID)
	if errLoad != nil {
		return errLoad
	}
	if request.Status != models.ResetStatusPending {
		return fmt.Errorf("%w: request %d is %s, not pending", errs.ErrConflict, requestID, request.Status)
	}

	now := nowMillis()
	errUpdate := s.db.WithContext(ctx).Model(request).Updates(map[string]any{
		"status":     models.ResetStatusApproved,
		"approvedBy": actor.ID,
		"approvedAt": now,
	}).Error
	if errUpdate != nil {
		return fmt.Errorf("user store: approve reset request: %w", errUpdate)
	}
	return nil
}

// CompletePasswordReset lets the requesting user finish an approved request
// by re-authenticating with the username+email pair and supplying a new
// password that passes the policy.
func (s *UserStore) CompletePasswordReset(ctx context.Context, username, email, newPassword string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if errPassword := validate.Password(newPassword); errPassword != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, errPassword)
	}

	var request models.PasswordResetRequest
	errFind := s.db.WithContext(ctx).
		Where("username = ? AND email = ? AND status = ?", username, email, models.ResetStatusApproved).
		First(&request).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no approved reset request for that account", errs.ErrNotFound)
		}
		return fmt.Errorf("user store: find approved request: %w", errFind)
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		return fmt.Errorf("user store: hash password: %w", errHash)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", request.UserID).Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("user store: set new password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", errs.ErrNotFound, request.UserID)
	}

	errUpdate := s.db.WithContext(ctx).Model(&request).Updates(map[string]any{
		"status":      models.ResetStatusCompleted,
		"completedAt": nowMillis(),
	}).Error
	if errUpdate != nil {
		return fmt.Errorf("user store: complete reset request: %w", errUpdate)
	}
	return nil
}

// CancelPasswordReset abandons a pending or approved request.
func (s *UserStore) CancelPasswordReset(ctx context.Context, requestID uint64) error {
	if err := s.guard(); err != nil {
		return err
	}

	request, errLoad := s.loadResetRequest(ctx, requestID)
	if errLoad != nil {
		return errLoad
	}
	if request.Status != models.ResetStatusPending && request.Status != models.ResetStatusApproved {
		return fmt.Errorf("%w: request %d is %s", errs.ErrConflict, requestID, request.Status)
	}

	errUpdate := s.db.WithContext(ctx).Model(request).
		Update("status", models.ResetStatusCancelled).Error
	if errUpdate != nil {
		return fmt.Errorf("user store: cancel reset request: %w", errUpdate)
	}
	return nil
}

// GetPendingResetRequests returns all pending requests, newest first.
func (s *UserStore) GetPendingResetRequests(ctx context.Context) ([]models.PasswordResetRequest, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var rows []models.PasswordResetRequest
	errFind := s.db.WithContext(ctx).
		Where("status = ?", models.ResetStatusPending).
		Order("requestedAt DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("user store: list pending requests: %w", errFind)
	}
	return rows, nil
}

func (s *UserStore) loadResetRequest(ctx context.Context, requestID uint64) (*models.PasswordResetRequest, error) {
	var request models.PasswordResetRequest
	if errFind := s.db.WithContext(ctx).First(&request, requestID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reset request %d", errs.ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("user store: load reset request: %w", errFind)
	}
	return &request, nil
}
