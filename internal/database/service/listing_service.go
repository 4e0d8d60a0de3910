package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
	"github.com/EgehanKilicarslan/bienesraices/internal/storage"
	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
)

// homeSectionSize is how many listings each home page section shows
const homeSectionSize = 3

// ListingService defines the interface for listing ownership and browsing logic
type ListingService interface {
	// Owner workflow
	CreateListing(ownerID uint, input ListingInput) (*models.Listing, error)
	GetOwnedListing(listingID, callerID uint) (*models.Listing, error)
	AttachImage(listingID, callerID uint, filename string) error
	EditListing(listingID, callerID uint, input ListingInput) error
	ToggleVisibility(listingID, callerID uint) (bool, error)
	DeleteListing(ctx context.Context, listingID, callerID uint) error
	ListOwned(ownerID uint, rawPage string) (*ListingPage, error)

	// Public browsing
	GetPublicListing(listingID uint) (*models.Listing, error)
	Home() (*HomeData, error)
	ListByCategory(categoryID uint) (*models.Category, []models.Listing, error)
	Search(term string) ([]models.Listing, error)
	PublishedFeed() ([]models.Listing, error)
	Catalog() ([]models.Category, []models.Price, error)
}

// ImageStore removes uploaded listing images
type ImageStore interface {
	Delete(ctx context.Context, key string) error
}

// ListingInput is the create/edit form. Numeric fields are pointers so a missing
// value is told apart from zero.
type ListingInput struct {
	Title       string   `form:"titulo" label:"El título" validate:"required,max=100"`
	Description string   `form:"descripcion" label:"La descripción" validate:"required,max=200"`
	CategoryID  uint     `form:"categoria" label:"La categoría" validate:"required"`
	PriceID     uint     `form:"precio" label:"El precio" validate:"required"`
	Rooms       *int     `form:"habitaciones" label:"El número de habitaciones" validate:"required,min=1,max=10"`
	Parking     *int     `form:"estacionamiento" label:"El número de estacionamientos" validate:"required,min=0,max=10"`
	Bathrooms   *int     `form:"wc" label:"El número de baños" validate:"required,min=1,max=10"`
	Street      string   `form:"calle" label:"La calle" validate:"required,max=60"`
	Lat         *float64 `form:"lat" label:"La latitud" validate:"required,latitude"`
	Lng         *float64 `form:"lng" label:"La longitud" validate:"required,longitude"`
}

func (in *ListingInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Street = strings.TrimSpace(in.Street)
}

// fields returns the mutable columns. Image and published are never part of an edit.
func (in *ListingInput) fields() map[string]interface{} {
	return map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
		"category_id": in.CategoryID,
		"price_id":    in.PriceID,
		"rooms":       *in.Rooms,
		"parking":     *in.Parking,
		"bathrooms":   *in.Bathrooms,
		"street":      in.Street,
		"lat":         *in.Lat,
		"lng":         *in.Lng,
	}
}

// ListingPage is one page of an owner's listings
type ListingPage struct {
	Listings []models.Listing
	Total    int64
	Page     int
	PageSize int
	Pages    int
}

// Offset is the index of the first listing on the page
func (p *ListingPage) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// HomeData feeds the landing page
// The first two categories in id order are featured, whatever ids the seed received.
type HomeData struct {
	Categories        []models.Category
	Prices            []models.Price
	HouseCategory     *models.Category
	ApartmentCategory *models.Category
	Houses            []models.Listing
	Apartments        []models.Listing
}

type listingService struct {
	listingRepo repository.ListingRepository
	catalogRepo repository.CatalogRepository
	images      ImageStore
	validator   *validation.Validator
	pageSize    int
	logger      *slog.Logger
}

// NewListingService creates a new listing service instance
func NewListingService(
	listingRepo repository.ListingRepository,
	catalogRepo repository.CatalogRepository,
	images ImageStore,
	validator *validation.Validator,
	cfg *config.Config,
	logger *slog.Logger,
) ListingService {
	pageSize := int(cfg.ListingsPageSize)
	if pageSize <= 0 {
		pageSize = 3
	}

	return &listingService{
		listingRepo: listingRepo,
		catalogRepo: catalogRepo,
		images:      images,
		validator:   validator,
		pageSize:    pageSize,
		logger:      logger,
	}
}

// ==================== Owner Workflow ====================

func (s *listingService) CreateListing(ownerID uint, input ListingInput) (*models.Listing, error) {
	s.logger.Info("🏠 [ListingService] Creating listing", "owner_id", ownerID)

	if ownerID == 0 {
		return nil, ErrForbidden
	}
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		Title:       input.Title,
		Description: input.Description,
		Rooms:       *input.Rooms,
		Parking:     *input.Parking,
		Bathrooms:   *input.Bathrooms,
		Street:      input.Street,
		Lat:         *input.Lat,
		Lng:         *input.Lng,
		Image:       "",
		Published:   false,
		UserID:      ownerID,
		CategoryID:  input.CategoryID,
		PriceID:     input.PriceID,
	}

	if err := s.listingRepo.Create(listing); err != nil {
		s.logger.Error("❌ [ListingService] Failed to create listing", "owner_id", ownerID, "error", err)
		return nil, err
	}

	s.logger.Info("✅ [ListingService] Listing created", "listing_id", listing.ID, "owner_id", ownerID)
	return listing, nil
}

func (s *listingService) GetOwnedListing(listingID, callerID uint) (*models.Listing, error) {
	return s.authorize(listingID, callerID)
}

// AttachImage is the one-way Draft to Published transition
func (s *listingService) AttachImage(listingID, callerID uint, filename string) error {
	s.logger.Info("🖼️ [ListingService] Attaching image", "listing_id", listingID, "caller_id", callerID)

	listing, err := s.authorize(listingID, callerID)
	if err != nil {
		return err
	}
	if listing.Published {
		s.logger.Warn("⚠️ [ListingService] Listing already published", "listing_id", listingID)
		return ErrForbidden
	}
	if strings.TrimSpace(filename) == "" {
		return newValidationError(validation.Errors{"imagen": {"La imagen es obligatoria"}})
	}

	if err := s.listingRepo.AttachImage(listingID, callerID, filename); err != nil {
		if errors.Is(err, repository.ErrListingNotOwned) {
			// Published or deleted by a concurrent request
			return ErrForbidden
		}
		s.logger.Error("❌ [ListingService] Failed to attach image", "listing_id", listingID, "error", err)
		return err
	}

	s.logger.Info("✅ [ListingService] Listing published", "listing_id", listingID)
	return nil
}

func (s *listingService) EditListing(listingID, callerID uint, input ListingInput) error {
	s.logger.Info("✏️ [ListingService] Editing listing", "listing_id", listingID, "caller_id", callerID)

	if _, err := s.authorize(listingID, callerID); err != nil {
		return err
	}
	if err := s.validate(&input); err != nil {
		return err
	}

	if err := s.listingRepo.UpdateFields(listingID, callerID, input.fields()); err != nil {
		if errors.Is(err, repository.ErrListingNotOwned) {
			return ErrNotFound
		}
		s.logger.Error("❌ [ListingService] Failed to update listing", "listing_id", listingID, "error", err)
		return err
	}

	s.logger.Info("✅ [ListingService] Listing updated", "listing_id", listingID)
	return nil
}

func (s *listingService) ToggleVisibility(listingID, callerID uint) (bool, error) {
	if _, err := s.authorize(listingID, callerID); err != nil {
		return false, err
	}

	published, err := s.listingRepo.ToggleVisibility(listingID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotOwned) {
			return false, ErrNotFound
		}
		s.logger.Error("❌ [ListingService] Failed to toggle listing", "listing_id", listingID, "error", err)
		return false, err
	}

	s.logger.Info("🔁 [ListingService] Listing visibility changed", "listing_id", listingID, "published", published)
	return published, nil
}

// DeleteListing removes the row first, then the image. A failed image removal is reported
// as ErrImageCleanup after the row is already gone.
func (s *listingService) DeleteListing(ctx context.Context, listingID, callerID uint) error {
	s.logger.Info("🗑️ [ListingService] Deleting listing", "listing_id", listingID, "caller_id", callerID)

	listing, err := s.authorize(listingID, callerID)
	if err != nil {
		return err
	}

	if err := s.listingRepo.Delete(listingID, callerID); err != nil {
		if errors.Is(err, repository.ErrListingNotOwned) {
			return ErrNotFound
		}
		s.logger.Error("❌ [ListingService] Failed to delete listing", "listing_id", listingID, "error", err)
		return err
	}

	if listing.HasImage() && s.images != nil {
		if err := s.images.Delete(ctx, listing.Image); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Error("❌ [ListingService] Failed to delete listing image",
				"listing_id", listingID, "image", listing.Image, "error", err)
			return fmt.Errorf("%w: %w", ErrImageCleanup, err)
		}
	}

	s.logger.Info("✅ [ListingService] Listing deleted", "listing_id", listingID)
	return nil
}

func (s *listingService) ListOwned(ownerID uint, rawPage string) (*ListingPage, error) {
	page, err := ParsePage(rawPage)
	if err != nil {
		return nil, err
	}

	result := &ListingPage{Page: page, PageSize: s.pageSize}
	listings, total, err := s.listingRepo.ListByOwner(ownerID, result.Offset(), s.pageSize)
	if err != nil {
		s.logger.Error("❌ [ListingService] Failed to list owned listings", "owner_id", ownerID, "error", err)
		return nil, err
	}

	result.Listings = listings
	result.Total = total
	result.Pages = int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	return result, nil
}

// maxPage keeps (page-1)*pageSize far from overflowing the offset
const maxPage = math.MaxInt32

// ParsePage accepts an empty value (page 1) or a decimal integer in [1, maxPage], nothing else
func ParsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}

	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, newValidationError(validation.Errors{"pagina": {"La página no es válida"}})
		}
	}

	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 || page > maxPage {
		return 0, newValidationError(validation.Errors{"pagina": {"La página no es válida"}})
	}
	return page, nil
}

// ==================== Public Browsing ====================

// GetPublicListing hides unpublished listings behind the same error as missing ones
func (s *listingService) GetPublicListing(listingID uint) (*models.Listing, error) {
	listing, err := s.listingRepo.FindPublished(listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *listingService) Home() (*HomeData, error) {
	categories, prices, err := s.Catalog()
	if err != nil {
		return nil, err
	}

	data := &HomeData{
		Categories: categories,
		Prices:     prices,
	}

	if len(categories) > 0 {
		data.HouseCategory = &categories[0]
		if data.Houses, err = s.listingRepo.ListPublishedByCategory(categories[0].ID, homeSectionSize); err != nil {
			return nil, err
		}
	}
	if len(categories) > 1 {
		data.ApartmentCategory = &categories[1]
		if data.Apartments, err = s.listingRepo.ListPublishedByCategory(categories[1].ID, homeSectionSize); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func (s *listingService) ListByCategory(categoryID uint) (*models.Category, []models.Listing, error) {
	category, err := s.catalogRepo.FindCategory(categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	listings, err := s.listingRepo.ListPublishedByCategory(categoryID, 0)
	if err != nil {
		return nil, nil, err
	}
	return category, listings, nil
}

func (s *listingService) Search(term string) ([]models.Listing, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, newValidationError(validation.Errors{"termino": {"Escribe algo para buscar"}})
	}

	return s.listingRepo.SearchPublished(term)
}

func (s *listingService) PublishedFeed() ([]models.Listing, error) {
	return s.listingRepo.ListPublished()
}

func (s *listingService) Catalog() ([]models.Category, []models.Price, error) {
	categories, err := s.catalogRepo.ListCategories()
	if err != nil {
		return nil, nil, err
	}
	prices, err := s.catalogRepo.ListPrices()
	if err != nil {
		return nil, nil, err
	}
	return categories, prices, nil
}

// ==================== Helpers ====================

// authorize loads the listing and checks the caller owns it.
// Missing and foreign listings stay distinguishable here and are collapsed by the handler.
func (s *listingService) authorize(listingID, callerID uint) (*models.Listing, error) {
	listing, err := s.listingRepo.FindByID(listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			s.logger.Warn("⚠️ [ListingService] Listing not found", "listing_id", listingID, "caller_id", callerID)
			return nil, ErrNotFound
		}
		s.logger.Error("❌ [ListingService] Database error", "error", err)
		return nil, err
	}

	if !listing.IsOwnedBy(callerID) {
		s.logger.Warn("🚫 [ListingService] Caller does not own listing",
			"listing_id", listingID, "caller_id", callerID, "owner_id", listing.UserID)
		return nil, ErrForbidden
	}
	return listing, nil
}

// validate runs the form rules and then checks the referenced lookups exist
func (s *listingService) validate(input *ListingInput) error {
	input.normalize()

	fields := s.validator.Struct(input)
	if fields == nil {
		fields = validation.Errors{}
	}

	if !fields.Has("categoria") {
		ok, err := s.catalogRepo.CategoryExists(input.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			fields.Add("categoria", "La categoría no es válida")
		}
	}
	if !fields.Has("precio") {
		ok, err := s.catalogRepo.PriceExists(input.PriceID)
		if err != nil {
			return err
		}
		if !ok {
			fields.Add("precio", "El precio no es válido")
		}
	}

	return newValidationError(fields)
}
