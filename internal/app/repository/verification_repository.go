package repository

import (
	"time"

	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"gorm.io/gorm"
)

type VerificationRepository interface {
	Create(req *model.VerificationRequest) error
	FindByID(id uint) (*model.VerificationRequest, error)
	FindLatestByUserID(userID uint) (*model.VerificationRequest, error)
	Update(req *model.VerificationRequest) error
	UpdateFields(id uint, fields map[string]interface{}) error

	// Queue operations
	CountPendingAtOrBefore(submittedAt time.Time) (int64, error)
	FindPendingBatch(limit, maxRetries int) ([]model.VerificationRequest, error)

	// Health and admin introspection
	CountByStatus(status model.VerificationStatus) (int64, error)
	AverageProcessingTimeMs() (float64, error)
	OldestPending() (*model.VerificationRequest, error)
	ListByStatus(status model.VerificationStatus, limit, offset int) ([]model.VerificationRequest, int64, error)
	FindAll(status *model.VerificationStatus) ([]model.VerificationRequest, error)

	// Retention
	DeleteOlderThan(cutoff time.Time, statuses []model.VerificationStatus) (int64, error)
}

type verificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(req *model.VerificationRequest) error {
	logger.Debug("Creating verification request", map[string]interface{}{
		"user_id": req.UserID,
		"status":  req.Status,
	})

	if err := r.db.Create(req).Error; err != nil {
		logger.Error("Failed to create verification request", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return err
	}

	return nil
}

func (r *verificationRepository) FindByID(id uint) (*model.VerificationRequest, error) {
	var req model.VerificationRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find verification request", err, map[string]interface{}{
				"request_id": id,
			})
		}
		return nil, err
	}
	return &req, nil
}

func (r *verificationRepository) FindLatestByUserID(userID uint) (*model.VerificationRequest, error) {
	var req model.VerificationRequest
	err := r.db.Where("user_id = ?", userID).
		Order("submitted_at DESC").
		First(&req).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find latest verification request", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}
	return &req, nil
}

func (r *verificationRepository) Update(req *model.VerificationRequest) error {
	if err := r.db.Save(req).Error; err != nil {
		logger.Error("Failed to update verification request", err, map[string]interface{}{
			"request_id": req.ID,
		})
		return err
	}
	return nil
}

func (r *verificationRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	err := r.db.Model(&model.VerificationRequest{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		logger.Error("Failed to update verification request fields", err, map[string]interface{}{
			"request_id": id,
		})
		return err
	}
	return nil
}

// CountPendingAtOrBefore counts pending rows submitted at or before the given
// time. Used for the 1-based queue position; ties share a position.
func (r *verificationRepository) CountPendingAtOrBefore(submittedAt time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.VerificationRequest{}).
		Where("status = ? AND submitted_at <= ?", model.VerificationPending, submittedAt).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count pending verification requests", err)
		return 0, err
	}
	return count, nil
}

// FindPendingBatch returns up to limit pending rows that still have retries
// left, oldest submission first.
func (r *verificationRepository) FindPendingBatch(limit, maxRetries int) ([]model.VerificationRequest, error) {
	var requests []model.VerificationRequest
	err := r.db.Where("status = ? AND retry_count < ?", model.VerificationPending, maxRetries).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		logger.Error("Failed to fetch pending verification batch", err, map[string]interface{}{
			"limit": limit,
		})
		return nil, err
	}
	return requests, nil
}

func (r *verificationRepository) CountByStatus(status model.VerificationStatus) (int64, error) {
	var count int64
	err := r.db.Model(&model.VerificationRequest{}).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count verification requests by status", err, map[string]interface{}{
			"status": status,
		})
		return 0, err
	}
	return count, nil
}

// AverageProcessingTimeMs averages over all historically completed rows.
func (r *verificationRepository) AverageProcessingTimeMs() (float64, error) {
	var avg *float64
	err := r.db.Model(&model.VerificationRequest{}).
		Where("processing_completed_at IS NOT NULL").
		Select("AVG(processing_time_ms)").
		Scan(&avg).Error
	if err != nil {
		logger.Error("Failed to compute average processing time", err)
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *verificationRepository) OldestPending() (*model.VerificationRequest, error) {
	var req model.VerificationRequest
	err := r.db.Where("status = ?", model.VerificationPending).
		Order("submitted_at ASC").
		First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.Error("Failed to find oldest pending verification request", err)
		return nil, err
	}
	return &req, nil
}

func (r *verificationRepository) ListByStatus(
	status model.VerificationStatus,
	limit, offset int,
) ([]model.VerificationRequest, int64, error) {
	var total int64
	err := r.db.Model(&model.VerificationRequest{}).
		Where("status = ?", status).
		Count(&total).Error
	if err != nil {
		logger.Error("Failed to count verification requests for listing", err)
		return nil, 0, err
	}

	var requests []model.VerificationRequest
	err = r.db.Where("status = ?", status).
		Order("submitted_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	if err != nil {
		logger.Error("Failed to list verification requests", err, map[string]interface{}{
			"status": status,
		})
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *verificationRepository) FindAll(status *model.VerificationStatus) ([]model.VerificationRequest, error) {
	query := r.db.Order("submitted_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var requests []model.VerificationRequest
	if err := query.Find(&requests).Error; err != nil {
		logger.Error("Failed to fetch verification requests for export", err)
		return nil, err
	}
	return requests, nil
}

// DeleteOlderThan hard-deletes rows in the given statuses submitted before the
// cutoff. The caller restricts statuses to terminal, non-reviewable outcomes
// so the audit trail of anything still reviewable is preserved.
func (r *verificationRepository) DeleteOlderThan(
	cutoff time.Time,
	statuses []model.VerificationStatus,
) (int64, error) {
	result := r.db.Unscoped().
		Where("submitted_at < ? AND status IN ?", cutoff, statuses).
		Delete(&model.VerificationRequest{})
	if result.Error != nil {
		logger.Error("Failed to delete old verification requests", result.Error, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
