package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLoggingTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": c.GetString("request_id"),
		})
	})
	return router
}

func TestLoggingMiddleware_GeneratesRequestID(t *testing.T) {
	router := setupLoggingTest()

	req := httptest.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	requestID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)
	_, err := uuid.Parse(requestID)
	assert.NoError(t, err)
}

func TestLoggingMiddleware_ReusesIncomingRequestID(t *testing.T) {
	router := setupLoggingTest()

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "gateway-abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "gateway-abc-123", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), "gateway-abc-123")
}

func TestGetLoggerFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Request-scoped logger from middleware", func(t *testing.T) {
		router := gin.New()
		router.Use(LoggingMiddleware())
		router.GET("/test", func(c *gin.Context) {
			log := GetLoggerFromContext(c)
			require.NotNil(t, log)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Falls back to global logger", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.NotNil(t, GetLoggerFromContext(c))
	})
}
