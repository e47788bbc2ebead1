package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/unimarket/unimarket-backend/internal/errors"
	"github.com/unimarket/unimarket-backend/internal/middleware"
	"github.com/unimarket/unimarket-backend/internal/storage"
)

// allowedUploadFolders keeps clients from scattering objects across the
// bucket. id-photos and selfies feed the verification pipeline.
var allowedUploadFolders = map[string]bool{
	"id-photos": true,
	"selfies":   true,
	"listings":  true,
	"profiles":  true,
}

type UploadController struct {
	storage *storage.S3Storage
}

func NewUploadController(s3Storage *storage.S3Storage) *UploadController {
	return &UploadController{
		storage: s3Storage,
	}
}

type PresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required"`
	Folder      string `json:"folder" binding:"required"`
}

// GetPresignedURL hands out a short-lived S3 PUT URL so image uploads
// bypass the API server entirely.
// POST /api/v1/uploads/presigned-url
func (ctrl *UploadController) GetPresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req PresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request: "+err.Error())
		return
	}

	if !allowedUploadFolders[req.Folder] {
		apperrors.BadRequest(c, apperrors.UploadInvalidFolder, "Unknown upload folder: "+req.Folder)
		return
	}

	if !storage.ValidateContentType(req.ContentType) {
		apperrors.BadRequest(c, apperrors.UploadInvalidType, "Only JPEG, PNG, WebP and HEIC images are allowed")
		return
	}

	if !storage.ValidateFileSize(req.FileSize) {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "File size must be between 1 byte and 10MB")
		return
	}

	result, err := ctrl.storage.GeneratePresignedURL(c.Request.Context(), req.Folder, req.Filename, req.ContentType)
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"user_id": userID,
			"folder":  req.Folder,
		})
		apperrors.InternalError(c, "Failed to generate upload URL")
		return
	}

	log.Info("Presigned URL issued", map[string]interface{}{
		"user_id": userID,
		"folder":  req.Folder,
		"key":     result.Key,
	})

	c.JSON(http.StatusOK, result)
}
