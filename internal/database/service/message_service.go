package service

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
)

// MessageService defines the interface for buyer inquiries
type MessageService interface {
	SendInquiry(listingID, senderID uint, input InquiryInput) (*models.Message, error)
	ListInquiries(listingID, callerID uint) (*models.Listing, []models.Message, error)
}

// InquiryInput is the contact form on a public listing
type InquiryInput struct {
	Body string `form:"mensaje" label:"El mensaje" validate:"required,max=500"`
}

type messageService struct {
	messageRepo repository.MessageRepository
	listingRepo repository.ListingRepository
	validator   *validation.Validator
	logger      *slog.Logger
}

// NewMessageService creates a new message service instance
func NewMessageService(
	messageRepo repository.MessageRepository,
	listingRepo repository.ListingRepository,
	validator *validation.Validator,
	logger *slog.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		listingRepo: listingRepo,
		validator:   validator,
		logger:      logger,
	}
}

// SendInquiry only reaches published listings, the same ones GetPublicListing exposes
func (s *messageService) SendInquiry(listingID, senderID uint, input InquiryInput) (*models.Message, error) {
	s.logger.Info("✉️ [MessageService] Inquiry received", "listing_id", listingID, "sender_id", senderID)

	if senderID == 0 {
		return nil, ErrForbidden
	}

	if _, err := s.listingRepo.FindPublished(listingID); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("❌ [MessageService] Database error", "error", err)
		return nil, err
	}

	input.Body = strings.TrimSpace(input.Body)
	if err := newValidationError(s.validator.Struct(input)); err != nil {
		return nil, err
	}

	message := &models.Message{
		Body:      input.Body,
		ListingID: listingID,
		UserID:    senderID,
	}
	if err := s.messageRepo.Create(message); err != nil {
		s.logger.Error("❌ [MessageService] Failed to store inquiry", "listing_id", listingID, "error", err)
		return nil, err
	}

	s.logger.Info("✅ [MessageService] Inquiry stored", "message_id", message.ID, "listing_id", listingID)
	return message, nil
}

// ListInquiries is restricted to the listing's owner
func (s *messageService) ListInquiries(listingID, callerID uint) (*models.Listing, []models.Message, error) {
	listing, err := s.listingRepo.FindByID(listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, nil, ErrNotFound
		}
		s.logger.Error("❌ [MessageService] Database error", "error", err)
		return nil, nil, err
	}

	if !listing.IsOwnedBy(callerID) {
		s.logger.Warn("🚫 [MessageService] Caller does not own listing",
			"listing_id", listingID, "caller_id", callerID)
		return nil, nil, ErrForbidden
	}

	messages, err := s.messageRepo.ListByListing(listingID)
	if err != nil {
		s.logger.Error("❌ [MessageService] Failed to list inquiries", "listing_id", listingID, "error", err)
		return nil, nil, err
	}
	return listing, messages, nil
}
