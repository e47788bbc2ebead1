package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"github.com/unimarket/unimarket-backend/pkg/util"
)

// OCRService extracts structured text from a student ID photo. Like the face
// comparison chain, it never returns an error: a failed model call falls back
// to the simulated extractor, and an unparseable model response degrades to a
// raw-text-only result, since partial text still feeds the pattern checks.
type OCRService interface {
	ExtractTextFromID(ctx context.Context, idPhotoURL string) *model.OCRResult
}

type ocrService struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
	sim        *simulatedExtractor
}

func NewOCRService(cfg *config.Config) OCRService {
	return &ocrService{
		cfg:        cfg.OpenAI,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sim:        newSimulatedExtractor(util.NewRand(), time.Sleep),
	}
}

// OpenAI chat completions request/response shapes

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string       `json:"role"`
	Content []openAIPart `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// idCardExtraction the structured record the model is asked to return
type idCardExtraction struct {
	Name        *string  `json:"name"`
	College     *string  `json:"college"`
	StudentID   *string  `json:"studentId"`
	ExpiryDate  *string  `json:"expiryDate"`
	RawText     *string  `json:"rawText"`
	Confidence  float64  `json:"confidence"`
	IsAuthentic bool     `json:"isAuthentic"`
	Issues      []string `json:"issues"`
}

const extractionPrompt = `You are verifying a student ID card. Extract the following from the image and respond with a single JSON object, no prose:
{"name": string|null, "college": string|null, "studentId": string|null, "expiryDate": string|null (YYYY-MM-DD if visible), "rawText": string (all visible text), "confidence": number 0-100, "isAuthentic": boolean, "issues": [string]}`

func (s *ocrService) ExtractTextFromID(ctx context.Context, idPhotoURL string) *model.OCRResult {
	if s.cfg.APIKey == "" {
		return s.sim.Extract(idPhotoURL)
	}

	start := time.Now()
	raw, err := s.callVisionModel(ctx, idPhotoURL)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("Vision model call failed, using simulated extractor", map[string]interface{}{
			"error":              err.Error(),
			"processing_time_ms": elapsed,
		})
		return s.sim.Extract(idPhotoURL)
	}

	result := parseExtraction(raw)
	result.ProcessingTimeMs = elapsed
	result.Provider = "openai"

	logger.Info("ID text extraction completed", map[string]interface{}{
		"confidence":         result.Confidence,
		"has_name":           result.Name != nil,
		"has_college":        result.College != nil,
		"processing_time_ms": elapsed,
	})
	return result
}

// parseExtraction parses the model output. A malformed response degrades to a
// success with fixed confidence 50 and the raw output as text; it never fails.
func parseExtraction(raw string) *model.OCRResult {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var extraction idCardExtraction
	if err := json.Unmarshal([]byte(cleaned), &extraction); err != nil {
		logger.Warn("Failed to parse vision model response, degrading to raw text", map[string]interface{}{
			"error": err.Error(),
		})
		return &model.OCRResult{
			Success:    true,
			Confidence: 50,
			RawText:    &raw,
		}
	}

	return &model.OCRResult{
		Success:    true,
		Confidence: extraction.Confidence,
		RawText:    extraction.RawText,
		Name:       extraction.Name,
		College:    extraction.College,
		StudentID:  extraction.StudentID,
		Expiry:     extraction.ExpiryDate,
	}
}

func (s *ocrService) callVisionModel(ctx context.Context, idPhotoURL string) (string, error) {
	reqData := openAIRequest{
		Model: s.cfg.Model,
		Messages: []openAIMessage{
			{
				Role: "user",
				Content: []openAIPart{
					{Type: "text", Text: extractionPrompt},
					{Type: "image_url", ImageURL: &openAIImageURL{URL: idPhotoURL}},
				},
			},
		},
		MaxTokens: 1024,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.openai.com/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.cfg.APIKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if openAIResp.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(openAIResp.Choices[0].Message.Content), nil
}

// ==================== Simulated extractor ====================

var (
	simFirstNames = []string{"Alex", "Jordan", "Taylor", "Morgan", "Casey", "Riley", "Jamie", "Quinn"}
	simLastNames  = []string{"Kim", "Garcia", "Smith", "Chen", "Patel", "Johnson", "Nguyen", "Brown"}
	simColleges   = []string{
		"State University",
		"City College",
		"Riverside Community College",
		"Northern Institute of Technology",
		"Lakeside University",
	}
)

// simulatedExtractor produces plausible randomized ID data. URLs carrying
// test/fake markers get a lower confidence band so suspicious submissions
// still exercise the review path.
type simulatedExtractor struct {
	rng   *util.Rand
	sleep func(time.Duration)
}

func newSimulatedExtractor(rng *util.Rand, sleep func(time.Duration)) *simulatedExtractor {
	return &simulatedExtractor{rng: rng, sleep: sleep}
}

func (e *simulatedExtractor) Extract(idPhotoURL string) *model.OCRResult {
	start := time.Now()
	e.sleep(util.DurationInRange(e.rng, 2*time.Second, 5*time.Second))

	lowerURL := strings.ToLower(idPhotoURL)
	suspicious := strings.Contains(lowerURL, "test") ||
		strings.Contains(lowerURL, "fake") ||
		strings.Contains(lowerURL, "sample")

	var confidence float64
	if suspicious {
		confidence = util.FloatInRange(e.rng, 50, 79)
	} else {
		confidence = util.FloatInRange(e.rng, 75, 95)
	}

	name := fmt.Sprintf("%s %s",
		simFirstNames[e.rng.Intn(len(simFirstNames))],
		simLastNames[e.rng.Intn(len(simLastNames))])
	college := simColleges[e.rng.Intn(len(simColleges))]
	studentID := fmt.Sprintf("%08d", e.rng.Intn(100000000))
	expiry := time.Now().AddDate(util.IntInRange(e.rng, 1, 3), 0, 0).Format("2006-01-02")
	rawText := fmt.Sprintf("STUDENT IDENTIFICATION CARD\n%s\n%s\nID: %s\nValid through: %s",
		college, name, studentID, expiry)

	return &model.OCRResult{
		Success:          true,
		Confidence:       confidence,
		RawText:          &rawText,
		Name:             &name,
		College:          &college,
		StudentID:        &studentID,
		Expiry:           &expiry,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Provider:         "simulated",
	}
}
