package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
	"github.com/EgehanKilicarslan/bienesraices/internal/storage"
)

const myListingsPath = "/mis-propiedades"

// ListingHandler serves the seller's own listing pages
type ListingHandler struct {
	listings service.ListingService
	messages service.MessageService
	uploader *storage.ImageUploader
	images   storage.ObjectStorage
	logger   *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(
	listings service.ListingService,
	messages service.MessageService,
	uploader *storage.ImageUploader,
	images storage.ObjectStorage,
	logger *slog.Logger,
) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		messages: messages,
		uploader: uploader,
		images:   images,
		logger:   logger,
	}
}

// MyListings handles GET /mis-propiedades?pagina=N
func (h *ListingHandler) MyListings(c *gin.Context) {
	page, err := h.listings.ListOwned(middleware.CurrentUserID(c), c.Query("pagina"))
	if err != nil {
		if _, ok := service.AsValidationError(err); ok {
			c.Redirect(http.StatusFound, myListingsPath+"?pagina=1")
			return
		}
		h.logger.Error("❌ [Handler] Failed to list own listings", "error", err)
		renderServerError(c)
		return
	}

	renderPage(c, http.StatusOK, "my-listings", "Mis Propiedades", gin.H{"Page": page})
}

// ==================== Create / Edit ====================

// CreateForm handles GET /propiedades/crear
func (h *ListingHandler) CreateForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, formCreate, service.ListingInput{}, nil)
}

// Create handles POST /propiedades/crear
func (h *ListingHandler) Create(c *gin.Context) {
	input := bindListingForm(c)

	listing, err := h.listings.CreateListing(middleware.CurrentUserID(c), input)
	if err != nil {
		if messages, ok := validationMessages(err); ok {
			h.renderForm(c, http.StatusBadRequest, formCreate, input, messages)
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/propiedades/agregar-imagen/%d", listing.ID))
}

// EditForm handles GET /propiedades/editar/:id
func (h *ListingHandler) EditForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, myListingsPath)
		return
	}

	listing, err := h.listings.GetOwnedListing(id, middleware.CurrentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.renderForm(c, http.StatusOK, formEdit(listing), inputFromListing(listing), nil)
}

// Edit handles POST /propiedades/editar/:id
func (h *ListingHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, myListingsPath)
		return
	}

	input := bindListingForm(c)
	if err := h.listings.EditListing(id, middleware.CurrentUserID(c), input); err != nil {
		if messages, ok := validationMessages(err); ok {
			h.renderForm(c, http.StatusBadRequest, formEdit(&models.Listing{ID: id, Title: input.Title}), input, messages)
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, myListingsPath)
}

// ==================== Image ====================

// AddImageForm handles GET /propiedades/agregar-imagen/:id
func (h *ListingHandler) AddImageForm(c *gin.Context) {
	listing, ok := h.draftListing(c)
	if !ok {
		return
	}

	renderPage(c, http.StatusOK, "add-image", "Agregar Imagen: "+listing.Title, gin.H{"Listing": listing})
}

// AddImage handles POST /propiedades/agregar-imagen/:id
func (h *ListingHandler) AddImage(c *gin.Context) {
	listing, ok := h.draftListing(c)
	if !ok {
		return
	}
	callerID := middleware.CurrentUserID(c)
	title := "Agregar Imagen: " + listing.Title

	// Stop reading before an oversized body is spooled to disk
	limit := h.uploader.BodyLimit()
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("imagen")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (limit > 0 && c.Request.ContentLength > limit) {
			h.logger.Warn("⚠️ [Handler] Upload body too large", "listing_id", listing.ID, "content_length", c.Request.ContentLength)
			renderPage(c, http.StatusRequestEntityTooLarge, "add-image", title, gin.H{
				"Listing": listing,
				"Errors":  []string{"La imagen es muy pesada"},
			})
			return
		}
		h.logger.Warn("⚠️ [Handler] Image upload without file", "listing_id", listing.ID)
		renderPage(c, http.StatusBadRequest, "add-image", title, gin.H{
			"Listing": listing,
			"Errors":  []string{"La imagen es obligatoria"},
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("❌ [Handler] Failed to open uploaded file", "error", err)
		renderServerError(c)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	filename, err := h.uploader.Upload(ctx, header.Filename, file, header.Size)
	if err != nil {
		if message, ok := uploadMessage(err); ok {
			h.logger.Warn("⚠️ [Handler] Image rejected", "listing_id", listing.ID, "error", err)
			renderPage(c, http.StatusBadRequest, "add-image", title, gin.H{
				"Listing": listing,
				"Errors":  []string{message},
			})
			return
		}
		h.logger.Error("❌ [Handler] Failed to store image", "listing_id", listing.ID, "error", err)
		renderServerError(c)
		return
	}

	if err := h.listings.AttachImage(listing.ID, callerID, filename); err != nil {
		// The object is orphaned unless removed here
		if delErr := h.images.Delete(ctx, filename); delErr != nil {
			h.logger.Error("❌ [Handler] Failed to remove orphaned image", "image", filename, "error", delErr)
		}
		h.handleServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, myListingsPath)
}

// draftListing loads the caller's listing for the image step. Published listings go back to the list.
func (h *ListingHandler) draftListing(c *gin.Context) (*models.Listing, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, myListingsPath)
		return nil, false
	}

	listing, err := h.listings.GetOwnedListing(id, middleware.CurrentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	if listing.Published {
		h.logger.Info("ℹ️ [Handler] Listing already published", "listing_id", id)
		c.Redirect(http.StatusFound, myListingsPath)
		return nil, false
	}
	return listing, true
}

// ==================== Visibility / Delete ====================

// Toggle handles PUT /propiedades/:id
func (h *ListingHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"resultado": false})
		return
	}

	published, err := h.listings.ToggleVisibility(id, middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			h.logger.Warn("⚠️ [Handler] Toggle on missing listing", "listing_id", id)
			c.JSON(http.StatusNotFound, gin.H{"resultado": false})
		case errors.Is(err, service.ErrForbidden):
			h.logger.Warn("🚫 [Handler] Toggle on foreign listing", "listing_id", id)
			c.JSON(http.StatusNotFound, gin.H{"resultado": false})
		default:
			h.logger.Error("❌ [Handler] Failed to toggle listing", "listing_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"resultado": false})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"resultado": true, "publicado": published})
}

// Delete handles POST /propiedades/eliminar/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, myListingsPath)
		return
	}

	err := h.listings.DeleteListing(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil && !errors.Is(err, service.ErrImageCleanup) {
		h.handleServiceError(c, err)
		return
	}
	if err != nil {
		// The listing is gone, only the file was left behind
		h.logger.Warn("⚠️ [Handler] Listing deleted but image cleanup failed", "listing_id", id, "error", err)
	}

	c.Redirect(http.StatusFound, myListingsPath)
}

// ==================== Inquiries ====================

// Inquiries handles GET /mensajes/:id
func (h *ListingHandler) Inquiries(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, myListingsPath)
		return
	}

	listing, messages, err := h.messages.ListInquiries(id, middleware.CurrentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	renderPage(c, http.StatusOK, "inquiries", "Mensajes: "+listing.Title, gin.H{
		"Listing":  listing,
		"Messages": messages,
	})
}

// ==================== Helpers ====================

type listingForm struct {
	title  string
	action string
	submit string
}

var formCreate = listingForm{
	title:  "Crear Propiedad",
	action: "/propiedades/crear",
	submit: "Crear Propiedad",
}

func formEdit(listing *models.Listing) listingForm {
	return listingForm{
		title:  "Editar Propiedad: " + listing.Title,
		action: fmt.Sprintf("/propiedades/editar/%d", listing.ID),
		submit: "Guardar Cambios",
	}
}

func (h *ListingHandler) renderForm(c *gin.Context, status int, form listingForm, input service.ListingInput, errs []string) {
	categories, prices, err := h.listings.Catalog()
	if err != nil {
		h.logger.Error("❌ [Handler] Failed to load catalog", "error", err)
		renderServerError(c)
		return
	}

	renderPage(c, status, "listing-form", form.title, gin.H{
		"Action":     form.action,
		"Submit":     form.submit,
		"Form":       input,
		"Categories": categories,
		"Prices":     prices,
		"Errors":     errs,
	})
}

// bindListingForm reads the listing form. Blank or malformed numbers stay nil so
// they are reported as missing instead of silently becoming zero.
func bindListingForm(c *gin.Context) service.ListingInput {
	return service.ListingInput{
		Title:       c.PostForm("titulo"),
		Description: c.PostForm("descripcion"),
		CategoryID:  formUint(c, "categoria"),
		PriceID:     formUint(c, "precio"),
		Rooms:       formInt(c, "habitaciones"),
		Parking:     formInt(c, "estacionamiento"),
		Bathrooms:   formInt(c, "wc"),
		Street:      c.PostForm("calle"),
		Lat:         formFloat(c, "lat"),
		Lng:         formFloat(c, "lng"),
	}
}

func formUint(c *gin.Context, key string) uint {
	v, err := strconv.ParseUint(strings.TrimSpace(c.PostForm(key)), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func formInt(c *gin.Context, key string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	if err != nil {
		return nil
	}
	return &v
}

func formFloat(c *gin.Context, key string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm(key)), 64)
	if err != nil {
		return nil
	}
	return &v
}

func inputFromListing(l *models.Listing) service.ListingInput {
	rooms, parking, bathrooms := l.Rooms, l.Parking, l.Bathrooms
	lat, lng := l.Lat, l.Lng
	return service.ListingInput{
		Title:       l.Title,
		Description: l.Description,
		CategoryID:  l.CategoryID,
		PriceID:     l.PriceID,
		Rooms:       &rooms,
		Parking:     &parking,
		Bathrooms:   &bathrooms,
		Street:      l.Street,
		Lat:         &lat,
		Lng:         &lng,
	}
}

func uploadMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, storage.ErrUnsupportedImage):
		return "Solo se permiten imágenes .jpg, .png o .webp", true
	case errors.Is(err, storage.ErrImageTooLarge):
		return "La imagen es muy pesada", true
	case errors.Is(err, storage.ErrEmptyImage):
		return "La imagen está vacía", true
	default:
		return "", false
	}
}

// handleServiceError maps service errors on owner pages. Missing and foreign
// listings both land on the caller's own list and are told apart only in the log.
func (h *ListingHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.logger.Warn("⚠️ [Handler] Listing not found", "path", c.Request.URL.Path, "user_id", middleware.CurrentUserID(c))
		c.Redirect(http.StatusFound, myListingsPath)
	case errors.Is(err, service.ErrForbidden):
		h.logger.Warn("🚫 [Handler] Listing belongs to another user", "path", c.Request.URL.Path, "user_id", middleware.CurrentUserID(c))
		c.Redirect(http.StatusFound, myListingsPath)
	default:
		h.logger.Error("❌ [Handler] Unexpected error", "path", c.Request.URL.Path, "error", err)
		renderServerError(c)
	}
}
