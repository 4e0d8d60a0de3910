package models

import (
	"time"
)

// Message is an inquiry sent by a buyer about a listing. Messages are append-only.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Body      string    `gorm:"size:500;not null" json:"mensaje"`
	ListingID uint      `gorm:"not null;index" json:"propiedadId"`
	UserID    uint      `gorm:"not null;index" json:"usuarioId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships
	User    *User    `gorm:"foreignKey:UserID" json:"usuario,omitempty"`
	Listing *Listing `gorm:"foreignKey:ListingID" json:"-"`
}

// TableName overrides the table name
func (Message) TableName() string {
	return "messages"
}
