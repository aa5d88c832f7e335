package models

// ArchivedActivity is a soft-deleted step-count entry moved out of the
// active log. It carries its own id sequence; it is not a foreign key back
// to the activity it was copied from.
type ArchivedActivity struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"` // Primary key.

	Steps int64 `gorm:"column:steps;not null"` // Step count carried over from the activity.
	Date  int64 `gorm:"column:date;not null"`  // Original activity date, epoch seconds.

	ArchivedAt int64 `gorm:"column:archivedAt;not null;default:0"` // Archival time, epoch seconds.

	UserID uint64 `gorm:"column:userId;not null;default:0;index"` // Owning user.
}

// TableName pins the legacy on-device table name.
func (ArchivedActivity) TableName() string { return "archived_activities" }
