package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/service"
	apperrors "github.com/unimarket/unimarket-backend/internal/errors"
	"github.com/unimarket/unimarket-backend/internal/middleware"
)

// AdminVerificationController exposes the review queue, manual batch runs,
// health, retention cleanup and the xlsx export.
type AdminVerificationController struct {
	verificationService service.VerificationService
	reportService       service.ReportService
}

func NewAdminVerificationController(
	verificationService service.VerificationService,
	reportService service.ReportService,
) *AdminVerificationController {
	return &AdminVerificationController{
		verificationService: verificationService,
		reportService:       reportService,
	}
}

type ReviewVerificationRequest struct {
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	Notes           string `json:"notes"`
	RejectionReason string `json:"rejection_reason"`
}

type CleanupRequest struct {
	DaysOld int `json:"days_old"`
}

// ListPending returns the manual review queue with queue health attached.
// GET /api/v1/admin/verifications
func (ctrl *AdminVerificationController) ListPending(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := ctrl.verificationService.ListPending(page, limit)
	if err != nil {
		log.Error("Failed to list pending verifications", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list verifications")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Review applies an approve/reject verdict to a request awaiting review.
// POST /api/v1/admin/verifications/:id/review
func (ctrl *AdminVerificationController) Review(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	reviewerID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	requestID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid request ID")
		return
	}

	var req ReviewVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid review request", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Action must be approve or reject")
		return
	}

	request, err := ctrl.verificationService.Review(
		uint(requestID), reviewerID, req.Action, req.Notes, req.RejectionReason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			apperrors.NotFound(c, apperrors.VerificationNotFound, "Verification request not found")
		case errors.Is(err, service.ErrNotReviewable):
			apperrors.Conflict(c, apperrors.VerificationAlreadyReviewed, "Request is not awaiting review")
		case errors.Is(err, service.ErrRejectionReasonRequired):
			apperrors.BadRequest(c, apperrors.VerificationReasonRequired, "A rejection reason is required")
		case errors.Is(err, service.ErrInvalidReviewAction):
			apperrors.BadRequest(c, apperrors.VerificationInvalidAction, "Action must be approve or reject")
		default:
			log.Error("Failed to review verification request", err, map[string]interface{}{
				"request_id": requestID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "review verification")
		}
		return
	}

	log.Info("Verification request reviewed", map[string]interface{}{
		"request_id":  request.ID,
		"reviewer_id": reviewerID,
		"action":      req.Action,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Review applied",
		"request": request,
	})
}

// RunBatch drains one queue batch on demand, outside the worker's schedule.
// POST /api/v1/admin/verifications/run-batch
func (ctrl *AdminVerificationController) RunBatch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	stats, err := ctrl.verificationService.ProcessBatch(c.Request.Context())
	if err != nil {
		log.Error("Failed to run verification batch", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "run verification batch")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Batch processed",
		"stats":   stats,
	})
}

// Health reports queue depth, processing latency and overall health.
// GET /api/v1/admin/verifications/health
func (ctrl *AdminVerificationController) Health(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	health, err := ctrl.verificationService.Health()
	if err != nil {
		log.Error("Failed to check verification queue health", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "verification health")
		return
	}

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// Cleanup deletes decided requests older than the given window.
// POST /api/v1/admin/verifications/cleanup
func (ctrl *AdminVerificationController) Cleanup(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid cleanup parameters")
		return
	}

	deleted, err := ctrl.verificationService.Cleanup(req.DaysOld)
	if err != nil {
		log.Error("Failed to run verification cleanup", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "verification cleanup")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cleanup completed",
		"deleted": deleted,
	})
}

// Export streams all verification requests as an xlsx workbook,
// optionally filtered by ?status=.
// GET /api/v1/admin/verifications/export
func (ctrl *AdminVerificationController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var status *model.VerificationStatus
	if raw := c.Query("status"); raw != "" {
		s := model.VerificationStatus(raw)
		status = &s
	}

	data, filename, err := ctrl.reportService.ExportVerificationsXLSX(status)
	if err != nil {
		log.Error("Failed to export verifications", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "export verifications")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
