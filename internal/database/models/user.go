package models

import (
	"time"
)

// User represents a registered seller or buyer account
type User struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `gorm:"size:60;not null" json:"nombre"`
	Email     string `gorm:"size:60;uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	Confirmed bool   `gorm:"not null;default:false" json:"confirmado"`

	// Token holds the pending confirmation or password-reset token, nil once consumed
	Token          *string    `gorm:"size:64;index" json:"-"`
	TokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships
	Listings []Listing `gorm:"foreignKey:UserID" json:"-"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// HasPendingToken returns true if the given token matches and has not expired
func (u *User) HasPendingToken(token string, now time.Time) bool {
	if u.Token == nil || *u.Token == "" || *u.Token != token {
		return false
	}
	if u.TokenExpiresAt != nil && now.After(*u.TokenExpiresAt) {
		return false
	}
	return true
}

// ClearToken consumes the one-time token
func (u *User) ClearToken() {
	u.Token = nil
	u.TokenExpiresAt = nil
}
