package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
)

// PublicHandler serves the pages anyone can browse
type PublicHandler struct {
	listings service.ListingService
	messages service.MessageService
	logger   *slog.Logger
}

// NewPublicHandler creates a new public pages handler
func NewPublicHandler(listings service.ListingService, messages service.MessageService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		listings: listings,
		messages: messages,
		logger:   logger,
	}
}

// Home handles GET /
func (h *PublicHandler) Home(c *gin.Context) {
	data, err := h.listings.Home()
	if err != nil {
		h.logger.Error("❌ [Handler] Failed to load home page", "error", err)
		renderServerError(c)
		return
	}

	renderPage(c, http.StatusOK, "home", "Inicio", gin.H{
		"Categories":        data.Categories,
		"Prices":            data.Prices,
		"HouseCategory":     data.HouseCategory,
		"ApartmentCategory": data.ApartmentCategory,
		"Houses":            data.Houses,
		"Apartments":        data.Apartments,
	})
}

// Category handles GET /categorias/:id
func (h *PublicHandler) Category(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, "/404")
		return
	}

	category, listings, err := h.listings.ListByCategory(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.Redirect(http.StatusFound, "/404")
			return
		}
		h.logger.Error("❌ [Handler] Failed to load category", "category_id", id, "error", err)
		renderServerError(c)
		return
	}

	renderPage(c, http.StatusOK, "category", category.Name+"s en Venta", gin.H{"Listings": listings})
}

// Search handles POST /buscador
func (h *PublicHandler) Search(c *gin.Context) {
	term := c.PostForm("termino")

	listings, err := h.listings.Search(term)
	if err != nil {
		if _, ok := service.AsValidationError(err); ok {
			c.Redirect(http.StatusFound, backURL(c))
			return
		}
		h.logger.Error("❌ [Handler] Search failed", "error", err)
		renderServerError(c)
		return
	}

	renderPage(c, http.StatusOK, "search", "Resultados de la Búsqueda", gin.H{
		"Term":     term,
		"Listings": listings,
	})
}

// NotFound handles GET /404 and unmatched routes
func (h *PublicHandler) NotFound(c *gin.Context) {
	renderPage(c, http.StatusNotFound, "notfound", "No Encontrada", nil)
}

// ==================== Listing Page ====================

// sentQuery flags the redirect that follows a delivered inquiry
const sentQuery = "enviado"

// Show handles GET /propiedad/:id
func (h *PublicHandler) Show(c *gin.Context) {
	h.showListing(c, http.StatusOK, gin.H{"Sent": c.Query(sentQuery) == "1"})
}

// SendInquiry handles POST /propiedad/:id
func (h *PublicHandler) SendInquiry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, "/404")
		return
	}

	var input service.InquiryInput
	if err := c.ShouldBind(&input); err != nil {
		h.logger.Warn("⚠️ [Handler] Invalid inquiry request", "error", err)
	}

	_, err := h.messages.SendInquiry(id, middleware.CurrentUserID(c), input)
	if err != nil {
		if messages, ok := validationMessages(err); ok {
			h.showListing(c, http.StatusBadRequest, gin.H{"Errors": messages})
			return
		}
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.Redirect(http.StatusFound, "/404")
		case errors.Is(err, service.ErrForbidden):
			c.Redirect(http.StatusFound, "/auth/login")
		default:
			h.logger.Error("❌ [Handler] Failed to send inquiry", "listing_id", id, "error", err)
			renderServerError(c)
		}
		return
	}

	// Redirect so a reload does not send the message twice
	c.Redirect(http.StatusFound, fmt.Sprintf("/propiedad/%d?%s=1", id, sentQuery))
}

func (h *PublicHandler) showListing(c *gin.Context, status int, data gin.H) {
	id, ok := parseID(c, "id")
	if !ok {
		c.Redirect(http.StatusFound, "/404")
		return
	}

	listing, err := h.listings.GetPublicListing(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.Redirect(http.StatusFound, "/404")
			return
		}
		h.logger.Error("❌ [Handler] Failed to load listing", "listing_id", id, "error", err)
		renderServerError(c)
		return
	}

	data["Listing"] = listing
	data["IsSeller"] = listing.IsOwnedBy(middleware.CurrentUserID(c))
	renderPage(c, status, "listing", listing.Title, data)
}

// backURL returns the referring page when it belongs to this site
func backURL(c *gin.Context) string {
	ref := c.Request.Referer()
	if ref == "" {
		return "/"
	}
	if u, err := c.Request.URL.Parse(ref); err == nil && (u.Host == "" || u.Host == c.Request.Host) {
		return u.RequestURI()
	}
	return "/"
}
