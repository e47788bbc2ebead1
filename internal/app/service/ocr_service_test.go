package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/pkg/util"
)

func TestParseExtraction(t *testing.T) {
	t.Run("Well-formed model response", func(t *testing.T) {
		raw := `{"name": "Maya Chen", "college": "Stanford University", "studentId": "20241234",
			"expiryDate": "2030-06-30", "rawText": "STANFORD UNIVERSITY Maya Chen 20241234",
			"confidence": 88, "isAuthentic": true, "issues": []}`

		result := parseExtraction(raw)

		assert.True(t, result.Success)
		assert.Equal(t, 88.0, result.Confidence)
		require.NotNil(t, result.Name)
		assert.Equal(t, "Maya Chen", *result.Name)
		require.NotNil(t, result.College)
		assert.Equal(t, "Stanford University", *result.College)
		require.NotNil(t, result.StudentID)
		assert.Equal(t, "20241234", *result.StudentID)
		require.NotNil(t, result.Expiry)
		assert.Equal(t, "2030-06-30", *result.Expiry)
	})

	t.Run("Response wrapped in code fences", func(t *testing.T) {
		raw := "```json\n{\"name\": \"Maya Chen\", \"confidence\": 90, \"rawText\": \"id text\"}\n```"

		result := parseExtraction(raw)

		assert.True(t, result.Success)
		assert.Equal(t, 90.0, result.Confidence)
		require.NotNil(t, result.Name)
		assert.Equal(t, "Maya Chen", *result.Name)
	})

	t.Run("Malformed response degrades to raw text", func(t *testing.T) {
		raw := "The ID card shows a student named Maya Chen."

		result := parseExtraction(raw)

		assert.True(t, result.Success)
		assert.Equal(t, 50.0, result.Confidence)
		require.NotNil(t, result.RawText)
		assert.Equal(t, raw, *result.RawText)
		assert.Nil(t, result.Name)
	})
}

func TestSimulatedExtractor(t *testing.T) {
	extractor := newSimulatedExtractor(util.NewSeededRand(4), noSleep)

	t.Run("Plausible result for a normal URL", func(t *testing.T) {
		result := extractor.Extract("https://cdn.example.com/id-photos/abc.jpg")

		assert.True(t, result.Success)
		assert.Equal(t, "simulated", result.Provider)
		assert.GreaterOrEqual(t, result.Confidence, 75.0)
		assert.LessOrEqual(t, result.Confidence, 95.0)
		require.NotNil(t, result.Name)
		require.NotNil(t, result.College)
		require.NotNil(t, result.StudentID)
		require.NotNil(t, result.RawText)
		assert.Contains(t, *result.RawText, *result.Name)
		assert.Contains(t, *result.RawText, *result.College)

		require.NotNil(t, result.Expiry)
		expiry, err := time.Parse("2006-01-02", *result.Expiry)
		require.NoError(t, err)
		assert.True(t, expiry.After(time.Now()))
	})

	t.Run("Suspicious URL lowers the confidence band", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			result := extractor.Extract("https://cdn.example.com/id-photos/test-card.jpg")
			assert.GreaterOrEqual(t, result.Confidence, 50.0)
			assert.Less(t, result.Confidence, 80.0)
		}
	})
}

func TestOCRService_NoAPIKeyUsesSimulated(t *testing.T) {
	service := &ocrService{
		cfg: config.OpenAIConfig{},
		sim: newSimulatedExtractor(util.NewSeededRand(5), noSleep),
	}

	result := service.ExtractTextFromID(context.Background(), "https://cdn.example.com/id-photos/abc.jpg")

	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "simulated", result.Provider)
}
