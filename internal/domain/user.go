package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record created at registration. UUID is the only key
// used to join users with face profiles and is never reused.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UUID         string    `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	Username     string    `gorm:"uniqueIndex;size:255;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Phone        string    `gorm:"size:32" json:"phone"`
	PasswordHash string    `gorm:"size:1024;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUserID generates a registration identifier: a v4 UUID extended with the
// first four characters of a second v4 UUID, matching the identifier format
// already present in stored profiles.
func NewUserID() string {
	return uuid.NewString() + uuid.NewString()[:4]
}
