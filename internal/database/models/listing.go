package models

import (
	"time"
)

// Listing represents a property offered for sale.
// A listing is created unpublished with no image; attaching the image publishes it.
// JSON names follow the contract consumed by the map widget.
type Listing struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Title       string  `gorm:"size:100;not null" json:"titulo"`
	Description string  `gorm:"type:text;not null" json:"descripcion"`
	Rooms       int     `gorm:"not null" json:"habitaciones"`
	Parking     int     `gorm:"not null" json:"estacionamiento"`
	Bathrooms   int     `gorm:"not null" json:"wc"`
	Street      string  `gorm:"size:60;not null" json:"calle"`
	Lat         float64 `gorm:"not null" json:"lat"`
	Lng         float64 `gorm:"not null" json:"lng"`
	Image       string  `gorm:"size:255;not null" json:"imagen"`
	Published   bool    `gorm:"not null;default:false;index" json:"publicado"`

	UserID     uint `gorm:"not null;index" json:"usuarioId"`
	CategoryID uint `gorm:"not null;index" json:"categoriaId"`
	PriceID    uint `gorm:"not null;index" json:"precioId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships
	User     *User     `gorm:"foreignKey:UserID" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"categoria,omitempty"`
	Price    *Price    `gorm:"foreignKey:PriceID" json:"precio,omitempty"`
	Messages []Message `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (Listing) TableName() string {
	return "listings"
}

// IsOwnedBy returns true if userID is the listing's seller
func (l *Listing) IsOwnedBy(userID uint) bool {
	return userID != 0 && l.UserID == userID
}

// HasImage returns true once the upload step attached an image
func (l *Listing) HasImage() bool {
	return l.Image != ""
}
