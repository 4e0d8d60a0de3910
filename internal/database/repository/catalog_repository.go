package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
)

// CatalogRepository reads the static category and price tier lookups
type CatalogRepository interface {
	ListCategories() ([]models.Category, error)
	ListPrices() ([]models.Price, error)
	FindCategory(id uint) (*models.Category, error)
	CategoryExists(id uint) (bool, error)
	PriceExists(id uint) (bool, error)

	// Seeding
	SeedCategories(categories []models.Category) error
	SeedPrices(prices []models.Price) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository instance
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Order("id ASC").Find(&categories).Error
	return categories, err
}

func (r *catalogRepository) ListPrices() ([]models.Price, error) {
	var prices []models.Price
	err := r.db.Order("id ASC").Find(&prices).Error
	return prices, err
}

func (r *catalogRepository) FindCategory(id uint) (*models.Category, error) {
	var category models.Category
	err := r.db.First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *catalogRepository) CategoryExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *catalogRepository) PriceExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Price{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *catalogRepository) SeedCategories(categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	return r.db.Create(&categories).Error
}

func (r *catalogRepository) SeedPrices(prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}
	return r.db.Create(&prices).Error
}

// Repository errors
var (
	ErrCategoryNotFound = errors.New("category not found")
)
