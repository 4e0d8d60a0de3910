package repository

import (
	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
)

// MessageRepository defines the interface for inquiry data operations
type MessageRepository interface {
	Create(message *models.Message) error
	ListByListing(listingID uint) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// ListByListing returns the listing's messages with the sender attached, newest first.
// The sender's password hash is never selected.
func (r *messageRepository) ListByListing(listingID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("listing_id = ?", listingID).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	return messages, err
}
