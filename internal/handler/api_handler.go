package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/bienesraices/internal/database"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/storage"
)

// APIHandler serves the JSON feed, uploaded images and the health probe
type APIHandler struct {
	listings service.ListingService
	images   storage.ObjectStorage
	db       *gorm.DB
	logger   *slog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(listings service.ListingService, images storage.ObjectStorage, db *gorm.DB, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		listings: listings,
		images:   images,
		db:       db,
		logger:   logger,
	}
}

// FeedItem is one marker on the home page map
type FeedItem struct {
	ID         uint             `json:"id"`
	Title      string           `json:"titulo"`
	Image      string           `json:"imagen"`
	Lat        float64          `json:"lat"`
	Lng        float64          `json:"lng"`
	CategoryID uint             `json:"categoriaId"`
	PriceID    uint             `json:"precioId"`
	Category   *models.Category `json:"categoria"`
	Price      *models.Price    `json:"precio"`
}

// Listings handles GET /api/propiedades
func (h *APIHandler) Listings(c *gin.Context) {
	listings, err := h.listings.PublishedFeed()
	if err != nil {
		h.logger.Error("❌ [Handler] Failed to load listing feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listings"})
		return
	}

	items := make([]FeedItem, 0, len(listings))
	for _, l := range listings {
		items = append(items, FeedItem{
			ID:         l.ID,
			Title:      l.Title,
			Image:      l.Image,
			Lat:        l.Lat,
			Lng:        l.Lng,
			CategoryID: l.CategoryID,
			PriceID:    l.PriceID,
			Category:   l.Category,
			Price:      l.Price,
		})
	}

	c.JSON(http.StatusOK, items)
}

// Image handles GET /uploads/:filename
func (h *APIHandler) Image(c *gin.Context) {
	filename := path.Base(c.Param("filename"))
	if filename == "." || filename == "/" || filename != c.Param("filename") {
		c.Status(http.StatusNotFound)
		return
	}

	obj, err := h.images.Get(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.logger.Error("❌ [Handler] Failed to read image", "image", filename, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer obj.Close()

	contentType := storage.ContentTypeFor(filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		h.logger.Warn("⚠️ [Handler] Image stream interrupted", "image", filename, "error", err)
	}
}

// Health handles GET /healthz
func (h *APIHandler) Health(c *gin.Context) {
	if err := database.Ping(h.db); err != nil {
		h.logger.Error("❌ [Handler] Database health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
