package service

import (
	"errors"

	"github.com/lib/pq"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrNotListingOwner = errors.New("not the listing owner")
	ErrNotVerified     = errors.New("student verification required")
)

// CreateListingInput payload for a new listing
type CreateListingInput struct {
	SellerID    uint
	Title       string
	Description string
	Price       int64
	Category    model.ListingCategory
	Condition   model.ListingCondition
	Images      []string
}

// UpdateListingInput partial update; nil fields are left unchanged
type UpdateListingInput struct {
	Title       *string
	Description *string
	Price       *int64
	Category    *model.ListingCategory
	Condition   *model.ListingCondition
	Images      *[]string
}

type ListingService interface {
	CreateListing(input CreateListingInput) (*model.Listing, error)
	GetListing(id uint) (*model.Listing, error)
	ListListings(filter repository.ListingFilter, page, pageSize int) ([]model.Listing, int64, error)
	UpdateListing(listingID, userID uint, input UpdateListingInput) (*model.Listing, error)
	UpdateListingStatus(listingID, userID uint, status model.ListingStatus) (*model.Listing, error)
	DeleteListing(listingID, userID uint) error
}

type listingService struct {
	listingRepo  repository.ListingRepository
	userRepo     repository.UserRepository
	trustService TrustService
	notifier     NotificationService
}

func NewListingService(
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	trustService TrustService,
	notifier NotificationService,
) ListingService {
	return &listingService{
		listingRepo:  listingRepo,
		userRepo:     userRepo,
		trustService: trustService,
		notifier:     notifier,
	}
}

// CreateListing creates a listing for a verified student. Unverified users
// are turned away; verification is the whole point of the marketplace.
func (s *listingService) CreateListing(input CreateListingInput) (*model.Listing, error) {
	seller, err := s.userRepo.FindByID(input.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if seller.VerificationStatus != model.UserVerified {
		logger.Warn("Listing creation blocked: seller not verified", map[string]interface{}{
			"user_id": input.SellerID,
			"status":  seller.VerificationStatus,
		})
		return nil, ErrNotVerified
	}

	listing := &model.Listing{
		SellerID:    input.SellerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Condition:   input.Condition,
		Status:      model.ListingActive,
		Images:      pq.StringArray(input.Images),
	}
	if err := s.listingRepo.Create(listing); err != nil {
		return nil, err
	}

	logger.Info("Listing created", map[string]interface{}{
		"listing_id": listing.ID,
		"seller_id":  input.SellerID,
		"category":   listing.Category,
	})
	return listing, nil
}

func (s *listingService) GetListing(id uint) (*model.Listing, error) {
	listing, err := s.listingRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *listingService) ListListings(
	filter repository.ListingFilter,
	page, pageSize int,
) ([]model.Listing, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.listingRepo.List(filter, pageSize, (page-1)*pageSize)
}

func (s *listingService) UpdateListing(listingID, userID uint, input UpdateListingInput) (*model.Listing, error) {
	listing, err := s.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != userID {
		return nil, ErrNotListingOwner
	}

	if input.Title != nil {
		listing.Title = *input.Title
	}
	if input.Description != nil {
		listing.Description = *input.Description
	}
	if input.Price != nil {
		listing.Price = *input.Price
	}
	if input.Category != nil {
		listing.Category = *input.Category
	}
	if input.Condition != nil {
		listing.Condition = *input.Condition
	}
	if input.Images != nil {
		listing.Images = pq.StringArray(*input.Images)
	}

	if err := s.listingRepo.Update(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// UpdateListingStatus moves a listing between active, reserved and sold.
// Marking sold refreshes the seller's trust score and sends a notification.
func (s *listingService) UpdateListingStatus(
	listingID, userID uint,
	status model.ListingStatus,
) (*model.Listing, error) {
	listing, err := s.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != userID {
		return nil, ErrNotListingOwner
	}

	if err := s.listingRepo.UpdateStatus(listingID, status); err != nil {
		return nil, err
	}
	listing.Status = status

	if status == model.ListingSold {
		s.refreshSellerTrust(listing.SellerID)
		if s.notifier != nil {
			s.notifier.NotifyListingSold(listing.SellerID, listing.ID, listing.Title)
		}
	}

	logger.Info("Listing status updated", map[string]interface{}{
		"listing_id": listingID,
		"status":     status,
	})
	return listing, nil
}

func (s *listingService) DeleteListing(listingID, userID uint) error {
	listing, err := s.GetListing(listingID)
	if err != nil {
		return err
	}
	if listing.SellerID != userID {
		return ErrNotListingOwner
	}
	return s.listingRepo.Delete(listingID)
}

// refreshSellerTrust recomputes the seller's trust score after a sale.
// Errors only log; a stale score corrects itself on the next sale.
func (s *listingService) refreshSellerTrust(sellerID uint) {
	seller, err := s.userRepo.FindByID(sellerID)
	if err != nil {
		logger.Error("Failed to load seller for trust refresh", err, map[string]interface{}{
			"seller_id": sellerID,
		})
		return
	}

	sold, err := s.listingRepo.CountSoldBySeller(sellerID)
	if err != nil {
		return
	}

	profile := TrustProfile{
		Verified:          seller.VerificationStatus == model.UserVerified,
		AccountAgeDays:    accountAgeDays(seller),
		ListingsSold:      int(sold),
		CollegeRecognized: seller.College != "",
	}

	err = s.userRepo.UpdateVerificationProjection(sellerID, map[string]interface{}{
		"trust_score": s.trustService.CalculateTrustScore(profile),
		"badges":      pq.StringArray(s.trustService.GetEarnedBadges(profile)),
	})
	if err != nil {
		logger.Error("Failed to refresh seller trust score", err, map[string]interface{}{
			"seller_id": sellerID,
		})
	}
}
