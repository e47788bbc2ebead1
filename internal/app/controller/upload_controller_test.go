package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/storage"
)

func setupUploadTest(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	s3Storage, err := storage.NewS3Storage(&config.S3Config{
		Region:          "us-east-1",
		Bucket:          "unimarket-test",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	ctrl := NewUploadController(s3Storage)

	router := gin.New()
	router.POST("/uploads/presigned-url", func(c *gin.Context) {
		c.Set("user_id", uint(1))
	}, ctrl.GetPresignedURL)
	router.POST("/uploads/presigned-url-anon", ctrl.GetPresignedURL)
	return router
}

func postPresignedURL(router *gin.Engine, path string, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadController_GetPresignedURL(t *testing.T) {
	router := setupUploadTest(t)

	w := postPresignedURL(router, "/uploads/presigned-url", map[string]interface{}{
		"filename":     "id-card.jpg",
		"content_type": "image/jpeg",
		"file_size":    1024,
		"folder":       "id-photos",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp storage.PresignedURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.UploadURL, "unimarket-test")
	assert.Contains(t, resp.Key, "id-photos/")
	assert.Contains(t, resp.Key, ".jpg")
	assert.Contains(t, resp.FileURL, resp.Key)
	assert.Equal(t, 900, resp.ExpiresIn)
}

func TestUploadController_GetPresignedURL_Validation(t *testing.T) {
	router := setupUploadTest(t)

	tests := []struct {
		name     string
		payload  map[string]interface{}
		wantCode int
	}{
		{
			name: "Unknown folder",
			payload: map[string]interface{}{
				"filename":     "a.jpg",
				"content_type": "image/jpeg",
				"file_size":    1024,
				"folder":       "secrets",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Disallowed content type",
			payload: map[string]interface{}{
				"filename":     "a.pdf",
				"content_type": "application/pdf",
				"file_size":    1024,
				"folder":       "id-photos",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Oversized file",
			payload: map[string]interface{}{
				"filename":     "a.jpg",
				"content_type": "image/jpeg",
				"file_size":    11 * 1024 * 1024,
				"folder":       "id-photos",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Missing fields",
			payload:  map[string]interface{}{"folder": "id-photos"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postPresignedURL(router, "/uploads/presigned-url", tt.payload)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestUploadController_GetPresignedURL_Unauthenticated(t *testing.T) {
	router := setupUploadTest(t)

	w := postPresignedURL(router, "/uploads/presigned-url-anon", map[string]interface{}{
		"filename":     "a.jpg",
		"content_type": "image/jpeg",
		"file_size":    1024,
		"folder":       "id-photos",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
