package models

// User represents an account stored in the local database.
type User struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"column:email;type:text;not null;uniqueIndex"`    // Unique email address.
	Username string `gorm:"column:username;type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"column:password;type:text;not null"`             // Hashed password.

	FirstName string `gorm:"column:firstName;type:text;not null"` // Given name.
	LastName  string `gorm:"column:lastName;type:text;not null"`  // Family name.
	Phone     string `gorm:"column:phone;type:text;not null"`     // 10-digit phone number.

	IsAdmin bool `gorm:"column:isAdmin;not null;default:false"` // Administrator flag.

	CreatedAt int64 `gorm:"column:createdAt;not null"` // Creation time, epoch milliseconds.
}

// TableName pins the legacy on-device table name.
func (User) TableName() string { return "users" }
