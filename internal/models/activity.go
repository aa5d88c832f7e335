package models

// Activity is a single step-count log entry owned by one user.
type Activity struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"` // Primary key.

	Steps int64 `gorm:"column:steps;not null"` // Recorded step count, never negative.
	Date  int64 `gorm:"column:date;not null"`  // Logical activity date, epoch seconds.

	UserID uint64 `gorm:"column:userId;not null;default:0;index"` // Owning user.

	IsProtected bool `gorm:"column:isProtected;not null;default:false"` // Exempt from bulk unprotected deletes.
}

// TableName pins the legacy on-device table name.
func (Activity) TableName() string { return "activities" }
