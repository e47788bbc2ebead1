package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unimarket/unimarket-backend/internal/app/service"
	apperrors "github.com/unimarket/unimarket-backend/internal/errors"
	"github.com/unimarket/unimarket-backend/internal/middleware"
)

type VerificationController struct {
	verificationService service.VerificationService
}

func NewVerificationController(verificationService service.VerificationService) *VerificationController {
	return &VerificationController{
		verificationService: verificationService,
	}
}

type SubmitVerificationRequest struct {
	StudentIDPhotoURL string `json:"student_id_photo_url" binding:"required,url"`
	SelfiePhotoURL    string `json:"selfie_photo_url" binding:"required,url"`
	Async             bool   `json:"async"`
}

// Submit starts a verification attempt from two uploaded photos. With
// async=true the request is queued and a queue position is returned;
// otherwise processing happens in-line and the verdict comes back directly.
// POST /api/v1/verification
func (ctrl *VerificationController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req SubmitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid verification submission", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Both photo URLs are required")
		return
	}

	input := service.SubmitInput{
		UserID:            userID,
		StudentIDPhotoURL: req.StudentIDPhotoURL,
		SelfiePhotoURL:    req.SelfiePhotoURL,
	}

	if req.Async {
		request, position, err := ctrl.verificationService.Enqueue(input)
		if err != nil {
			log.Error("Failed to enqueue verification request", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "submit verification")
			return
		}

		log.Info("Verification request enqueued", map[string]interface{}{
			"request_id":     request.ID,
			"user_id":        userID,
			"queue_position": position,
		})

		c.JSON(http.StatusAccepted, gin.H{
			"message":        "Verification request queued",
			"request":        request.Summary(),
			"queue_position": position,
		})
		return
	}

	request, err := ctrl.verificationService.SubmitImmediate(c.Request.Context(), input)
	if err != nil {
		log.Error("Failed to process verification request", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "submit verification")
		return
	}

	log.Info("Verification request processed", map[string]interface{}{
		"request_id": request.ID,
		"user_id":    userID,
		"status":     request.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification request processed",
		"request": request,
	})
}

// GetStatus returns the caller's verification projection status and their
// latest attempt (null when they have never submitted), including the
// queue position while it is still pending.
// GET /api/v1/verification/status
func (ctrl *VerificationController) GetStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	result, err := ctrl.verificationService.GetStatus(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to get verification status", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get verification status")
		return
	}

	response := gin.H{
		"verification_status": result.UserStatus,
		"request":             result.Request,
	}
	if result.QueuePosition > 0 {
		response["queue_position"] = result.QueuePosition
	}

	c.JSON(http.StatusOK, response)
}
