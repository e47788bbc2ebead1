package repository

import (
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"gorm.io/gorm"
)

// ListingFilter optional filters for listing queries
type ListingFilter struct {
	Category *model.ListingCategory
	Status   *model.ListingStatus
	SellerID *uint
	Search   string
}

type ListingRepository interface {
	Create(listing *model.Listing) error
	FindByID(id uint) (*model.Listing, error)
	List(filter ListingFilter, limit, offset int) ([]model.Listing, int64, error)
	Update(listing *model.Listing) error
	UpdateStatus(id uint, status model.ListingStatus) error
	Delete(id uint) error
	CountSoldBySeller(sellerID uint) (int64, error)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(listing *model.Listing) error {
	logger.Debug("Creating listing", map[string]interface{}{
		"seller_id": listing.SellerID,
		"title":     listing.Title,
	})

	if err := r.db.Create(listing).Error; err != nil {
		logger.Error("Failed to create listing", err, map[string]interface{}{
			"seller_id": listing.SellerID,
		})
		return err
	}
	return nil
}

func (r *listingRepository) FindByID(id uint) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.Preload("Seller").First(&listing, id).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find listing", err, map[string]interface{}{
				"listing_id": id,
			})
		}
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) List(filter ListingFilter, limit, offset int) ([]model.Listing, int64, error) {
	query := r.db.Model(&model.Listing{})

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count listings", err)
		return nil, 0, err
	}

	var listings []model.Listing
	err := query.Preload("Seller").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	if err != nil {
		logger.Error("Failed to list listings", err)
		return nil, 0, err
	}

	return listings, total, nil
}

func (r *listingRepository) Update(listing *model.Listing) error {
	if err := r.db.Save(listing).Error; err != nil {
		logger.Error("Failed to update listing", err, map[string]interface{}{
			"listing_id": listing.ID,
		})
		return err
	}
	return nil
}

func (r *listingRepository) UpdateStatus(id uint, status model.ListingStatus) error {
	err := r.db.Model(&model.Listing{}).Where("id = ?", id).Update("status", status).Error
	if err != nil {
		logger.Error("Failed to update listing status", err, map[string]interface{}{
			"listing_id": id,
			"status":     status,
		})
		return err
	}
	return nil
}

func (r *listingRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Listing{}, id).Error; err != nil {
		logger.Error("Failed to delete listing", err, map[string]interface{}{
			"listing_id": id,
		})
		return err
	}
	return nil
}

func (r *listingRepository) CountSoldBySeller(sellerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Listing{}).
		Where("seller_id = ? AND status = ?", sellerID, model.ListingSold).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count sold listings", err, map[string]interface{}{
			"seller_id": sellerID,
		})
		return 0, err
	}
	return count, nil
}
