package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/internal/app/service"
	apperrors "github.com/unimarket/unimarket-backend/internal/errors"
	"github.com/unimarket/unimarket-backend/internal/middleware"
)

type ListingController struct {
	listingService service.ListingService
}

func NewListingController(listingService service.ListingService) *ListingController {
	return &ListingController{
		listingService: listingService,
	}
}

type CreateListingRequest struct {
	Title       string   `json:"title" binding:"required,min=2,max=120"`
	Description string   `json:"description"`
	Price       int64    `json:"price" binding:"required,min=0"`
	Category    string   `json:"category" binding:"required,oneof=textbooks electronics furniture clothing tickets other"`
	Condition   string   `json:"condition" binding:"required,oneof=new like_new good fair worn"`
	Images      []string `json:"images"`
}

type UpdateListingRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *int64    `json:"price"`
	Category    *string   `json:"category"`
	Condition   *string   `json:"condition"`
	Images      *[]string `json:"images"`
}

type UpdateListingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active reserved sold"`
}

// CreateListing creates a new listing. Only verified students may sell.
// POST /api/v1/listings
func (ctrl *ListingController) CreateListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid listing details")
		return
	}

	listing, err := ctrl.listingService.CreateListing(service.CreateListingInput{
		SellerID:    userID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    model.ListingCategory(req.Category),
		Condition:   model.ListingCondition(req.Condition),
		Images:      req.Images,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotVerified) {
			apperrors.Forbidden(c, "Student verification is required before selling")
			return
		}
		log.Error("Failed to create listing", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create listing")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Listing created",
		"listing": listing,
	})
}

// GetListing returns one listing
// GET /api/v1/listings/:id
func (ctrl *ListingController) GetListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	listingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid listing ID")
		return
	}

	listing, err := ctrl.listingService.GetListing(uint(listingID))
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
			return
		}
		log.Error("Failed to get listing", err, map[string]interface{}{
			"listing_id": listingID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing": listing,
	})
}

// ListListings returns filtered, paginated listings
// GET /api/v1/listings
func (ctrl *ListingController) ListListings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := repository.ListingFilter{
		Search: c.Query("search"),
	}
	if raw := c.Query("category"); raw != "" {
		category := model.ListingCategory(raw)
		filter.Category = &category
	}
	if raw := c.Query("status"); raw != "" {
		status := model.ListingStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("seller_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			sellerID := uint(id)
			filter.SellerID = &sellerID
		}
	}

	listings, total, err := ctrl.listingService.ListListings(filter, page, pageSize)
	if err != nil {
		log.Error("Failed to list listings", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings":  listings,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// UpdateListing updates a listing owned by the caller
// PUT /api/v1/listings/:id
func (ctrl *ListingController) UpdateListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	listingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid listing ID")
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid listing details")
		return
	}

	input := service.UpdateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
	}
	if req.Category != nil {
		category := model.ListingCategory(*req.Category)
		input.Category = &category
	}
	if req.Condition != nil {
		condition := model.ListingCondition(*req.Condition)
		input.Condition = &condition
	}

	listing, err := ctrl.listingService.UpdateListing(uint(listingID), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
		case errors.Is(err, service.ErrNotListingOwner):
			apperrors.Forbidden(c, "Only the seller can modify this listing")
		default:
			log.Error("Failed to update listing", err, map[string]interface{}{
				"listing_id": listingID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update listing")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Listing updated",
		"listing": listing,
	})
}

// UpdateListingStatus moves a listing between active, reserved and sold
// PATCH /api/v1/listings/:id/status
func (ctrl *ListingController) UpdateListingStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	listingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid listing ID")
		return
	}

	var req UpdateListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Status must be active, reserved or sold")
		return
	}

	listing, err := ctrl.listingService.UpdateListingStatus(
		uint(listingID), userID, model.ListingStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
		case errors.Is(err, service.ErrNotListingOwner):
			apperrors.Forbidden(c, "Only the seller can modify this listing")
		default:
			log.Error("Failed to update listing status", err, map[string]interface{}{
				"listing_id": listingID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update listing")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Listing status updated",
		"listing": listing,
	})
}

// DeleteListing removes a listing owned by the caller
// DELETE /api/v1/listings/:id
func (ctrl *ListingController) DeleteListing(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	listingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid listing ID")
		return
	}

	if err := ctrl.listingService.DeleteListing(uint(listingID), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			apperrors.NotFound(c, apperrors.ListingNotFound, "Listing not found")
		case errors.Is(err, service.ErrNotListingOwner):
			apperrors.Forbidden(c, "Only the seller can delete this listing")
		default:
			log.Error("Failed to delete listing", err, map[string]interface{}{
				"listing_id": listingID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete listing")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Listing deleted",
	})
}
