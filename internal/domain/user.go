package domain

import "time"

// User is an account that can own documents and collaborate on them.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(150);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:varchar(255);not null"` // bcrypt hash
	Email     string    `gorm:"type:varchar(191);index:idx_email"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
