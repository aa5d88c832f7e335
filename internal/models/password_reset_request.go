package models

// Password reset request lifecycle states.
const (
	ResetStatusPending   = "pending"
	ResetStatusApproved  = "approved"
	ResetStatusCompleted = "completed"
	ResetStatusCancelled = "cancelled"
)

// PasswordResetRequest tracks a forgot-password request through the
// pending -> approved -> completed (or cancelled) workflow.
type PasswordResetRequest struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"column:userId;not null;index"` // Owning user.

	Username string `gorm:"column:username;type:text;not null"` // Username captured at request time.
	Email    string `gorm:"column:email;type:text;not null"`    // Email captured at request time.

	RequestedAt int64  `gorm:"column:requestedAt;not null"`                      // Request time, epoch milliseconds.
	Status      string `gorm:"column:status;type:text;not null;default:pending"` // Lifecycle state.

	ApprovedBy  *uint64 `gorm:"column:approvedBy"`  // Admin who approved the request.
	ApprovedAt  *int64  `gorm:"column:approvedAt"`  // Approval time, epoch milliseconds.
	CompletedAt *int64  `gorm:"column:completedAt"` // Completion time, epoch milliseconds.
}

// TableName pins the legacy on-device table name.
func (PasswordResetRequest) TableName() string { return "password_reset_requests" }
