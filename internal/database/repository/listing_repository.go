package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
)

// ListingRepository defines the interface for listing data operations.
// Every owner mutation is a single conditional statement keyed on (id, user_id),
// so ownership cannot change between the check and the write.
type ListingRepository interface {
	Create(listing *models.Listing) error
	FindByID(id uint) (*models.Listing, error)
	FindPublished(id uint) (*models.Listing, error)

	// Owner mutations, ErrListingNotOwned when no row matched
	UpdateFields(id, ownerID uint, fields map[string]interface{}) error
	AttachImage(id, ownerID uint, image string) error
	ToggleVisibility(id, ownerID uint) (bool, error)
	Delete(id, ownerID uint) error

	// Queries
	ListByOwner(ownerID uint, offset, limit int) ([]models.Listing, int64, error)
	ListPublishedByCategory(categoryID uint, limit int) ([]models.Listing, error)
	SearchPublished(term string) ([]models.Listing, error)
	ListPublished() ([]models.Listing, error)
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(listing *models.Listing) error {
	return r.db.Create(listing).Error
}

func (r *listingRepository) FindByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.Preload("Category").Preload("Price").First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindPublished treats unpublished listings exactly like missing ones
func (r *listingRepository) FindPublished(id uint) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.Where("published = ?", true).
		Preload("Category").
		Preload("Price").
		First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// ==================== Owner Mutations ====================

func (r *listingRepository) UpdateFields(id, ownerID uint, fields map[string]interface{}) error {
	result := r.db.Model(&models.Listing{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListingNotOwned
	}
	return nil
}

// AttachImage only matches while the listing is unpublished
func (r *listingRepository) AttachImage(id, ownerID uint, image string) error {
	result := r.db.Model(&models.Listing{}).
		Where("id = ? AND user_id = ? AND published = ?", id, ownerID, false).
		Updates(map[string]interface{}{
			"image":     image,
			"published": true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListingNotOwned
	}
	return nil
}

// ToggleVisibility flips the published flag in place and returns the new value
func (r *listingRepository) ToggleVisibility(id, ownerID uint) (bool, error) {
	var published bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Listing{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Update("published", gorm.Expr("NOT published"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrListingNotOwned
		}

		var listing models.Listing
		if err := tx.Select("id", "published").First(&listing, id).Error; err != nil {
			return err
		}
		published = listing.Published
		return nil
	})
	return published, err
}

// Delete removes the listing and its messages
func (r *listingRepository) Delete(id, ownerID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Listing{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrListingNotOwned
		}

		// sqlite does not enforce the cascade unless foreign keys are enabled
		return tx.Where("listing_id = ?", id).Delete(&models.Message{}).Error
	})
}

// ==================== Queries ====================

func (r *listingRepository) ListByOwner(ownerID uint, offset, limit int) ([]models.Listing, int64, error) {
	var listings []models.Listing
	var total int64

	if err := r.db.Model(&models.Listing{}).
		Where("user_id = ?", ownerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("user_id = ?", ownerID).
		Preload("Category").
		Preload("Price").
		Preload("Messages").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&listings).Error
	return listings, total, err
}

func (r *listingRepository) ListPublishedByCategory(categoryID uint, limit int) ([]models.Listing, error) {
	var listings []models.Listing
	query := r.db.Where("category_id = ? AND published = ?", categoryID, true).
		Preload("Category").
		Preload("Price").
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&listings).Error
	return listings, err
}

// likeEscaper makes user input match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPublished matches term literally, so % and _ are not wildcards
func (r *listingRepository) SearchPublished(term string) ([]models.Listing, error) {
	var listings []models.Listing
	pattern := "%" + likeEscaper.Replace(term) + "%"
	err := r.db.Where(`published = ? AND LOWER(title) LIKE LOWER(?) ESCAPE '\'`, true, pattern).
		Preload("Category").
		Preload("Price").
		Order("created_at DESC, id DESC").
		Find(&listings).Error
	return listings, err
}

func (r *listingRepository) ListPublished() ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.Where("published = ?", true).
		Preload("Category").
		Preload("Price").
		Order("id ASC").
		Find(&listings).Error
	return listings, err
}

// Repository errors
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrListingNotOwned = errors.New("listing not owned by caller or not in the expected state")
)
