package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/model"
)

func strPtr(s string) *string { return &s }

func checksTestConfig() config.VerificationConfig {
	return config.VerificationConfig{
		FaceMatchMinScore:        70,
		FaceMatchConfidenceMin:   80,
		OCRConfidenceMin:         60,
		AutoApprovalFaceMatchMin: 85,
		AutoApprovalOCRConfMin:   75,
		EnableFaceMatching:       true,
		EnableOCR:                true,
		EnableAutoApproval:       true,
		RecognizedColleges:       []string{"university", "college", "stanford", "mit"},
	}
}

func validOCRResult() *model.OCRResult {
	return &model.OCRResult{
		Success:    true,
		Confidence: 90,
		RawText:    strPtr("STANFORD UNIVERSITY STUDENT ID Maya Chen 20241234 valid through 2030"),
		Name:       strPtr("Maya Chen"),
		College:    strPtr("Stanford University"),
		StudentID:  strPtr("20241234"),
		Expiry:     strPtr("2030-06-30"),
	}
}

func TestValidateIDAppearance(t *testing.T) {
	tests := []struct {
		name       string
		rawText    *string
		personName *string
		college    *string
		wantValid  bool
		wantIssue  string
	}{
		{
			name:       "Valid ID text",
			rawText:    strPtr("STANFORD UNIVERSITY STUDENT ID Maya Chen"),
			personName: strPtr("Maya Chen"),
			college:    strPtr("Stanford University"),
			wantValid:  true,
		},
		{
			name:       "Raw text too short",
			rawText:    strPtr("short"),
			personName: strPtr("Maya Chen"),
			college:    strPtr("Stanford University"),
			wantValid:  false,
			wantIssue:  "blank or too short",
		},
		{
			name:       "Missing raw text",
			rawText:    nil,
			personName: strPtr("Maya Chen"),
			college:    strPtr("Stanford University"),
			wantValid:  false,
			wantIssue:  "blank or too short",
		},
		{
			name:       "Name too short",
			rawText:    strPtr("STANFORD UNIVERSITY STUDENT ID Maya Chen"),
			personName: strPtr("M"),
			college:    strPtr("Stanford University"),
			wantValid:  false,
			wantIssue:  "Name is missing or too short",
		},
		{
			name:       "College missing",
			rawText:    strPtr("STANFORD UNIVERSITY STUDENT ID Maya Chen"),
			personName: strPtr("Maya Chen"),
			college:    nil,
			wantValid:  false,
			wantIssue:  "College name is missing or too short",
		},
		{
			name:       "Suspicious marker",
			rawText:    strPtr("SAMPLE ID not an actual student identification"),
			personName: strPtr("Maya Chen"),
			college:    strPtr("Stanford University"),
			wantValid:  false,
			wantIssue:  `suspicious patterns: "sample id"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ValidateIDAppearance(tt.rawText, tt.personName, tt.college)

			assert.Equal(t, tt.wantValid, check.IsValid)
			if tt.wantIssue != "" {
				require.NotEmpty(t, check.Issues)
				found := false
				for _, issue := range check.Issues {
					if strings.Contains(issue, tt.wantIssue) {
						found = true
					}
				}
				assert.True(t, found, "expected an issue containing %q, got %v", tt.wantIssue, check.Issues)
			}
		})
	}
}

func TestValidateIDAppearance_AllFieldsMissing(t *testing.T) {
	check := ValidateIDAppearance(nil, nil, nil)

	require.False(t, check.IsValid)
	// One issue per missing field: raw text, name, college. No raw text
	// also means no suspicious markers can fire.
	require.Len(t, check.Issues, 3)
	assert.Contains(t, check.Issues[0], "blank or too short")
	assert.Contains(t, check.Issues[1], "Name is missing or too short")
	assert.Contains(t, check.Issues[2], "College name is missing or too short")
	for _, issue := range check.Issues {
		assert.NotContains(t, issue, "suspicious patterns")
	}
}

func TestValidateIDAppearance_FirstMarkerWins(t *testing.T) {
	// Both "test id" and "void" appear; only the earlier marker in the
	// list is reported.
	raw := strPtr("this test id card is void and not usable anywhere")
	check := ValidateIDAppearance(raw, strPtr("Maya Chen"), strPtr("Stanford University"))

	require.False(t, check.IsValid)
	markerIssues := 0
	for _, issue := range check.Issues {
		if strings.Contains(issue, "suspicious patterns") {
			markerIssues++
			assert.Contains(t, issue, `"test id"`)
		}
	}
	assert.Equal(t, 1, markerIssues)
}

func TestIsCollegeRecognized(t *testing.T) {
	cfg := checksTestConfig()

	tests := []struct {
		name    string
		college string
		want    bool
	}{
		{"Entry is substring of name", "Stanford University", true},
		{"Name is substring of entry", "universit", true},
		{"Short abbreviation", "MIT", true},
		{"Unknown school", "Hogwarts School", false},
		{"Empty name", "", false},
		{"Whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCollegeRecognized(tt.college, cfg))
		})
	}
}

func TestValidateExtractedData_OCRFailure(t *testing.T) {
	cross := ValidateExtractedData(nil, "Maya Chen", "maya@stanford.edu")
	assert.False(t, cross.Matches)
	assert.Equal(t, []string{"OCR extraction failed"}, cross.Issues)

	cross = ValidateExtractedData(&model.OCRResult{Success: false}, "Maya Chen", "maya@stanford.edu")
	assert.False(t, cross.Matches)
	assert.Equal(t, []string{"OCR extraction failed"}, cross.Issues)
}

func TestValidateExtractedData_NameMatching(t *testing.T) {
	tests := []struct {
		name        string
		ocrName     string
		profileName string
		wantMatch   bool
	}{
		{"Exact match", "Maya Chen", "Maya Chen", true},
		{"Case insensitive", "MAYA CHEN", "maya chen", true},
		{"One shared token suffices", "Maya R. Chen", "Maya Smith", true},
		{"Token containment", "Chen", "Maya Chenowitz", true},
		{"No shared tokens", "Alex Kim", "Maya Chen", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocr := validOCRResult()
			ocr.Name = strPtr(tt.ocrName)

			cross := ValidateExtractedData(ocr, tt.profileName, "maya@stanford.edu")

			if tt.wantMatch {
				assert.True(t, cross.Matches, "issues: %v", cross.Issues)
			} else {
				assert.False(t, cross.Matches)
				require.NotEmpty(t, cross.Issues)
				assert.Contains(t, cross.Issues[0], "does not match profile name")
			}
		})
	}
}

func TestValidateExtractedData_EmailDomain(t *testing.T) {
	ocr := validOCRResult()

	// stanford.edu against Stanford University: match
	cross := ValidateExtractedData(ocr, "Maya Chen", "maya@stanford.edu")
	assert.True(t, cross.Matches, "issues: %v", cross.Issues)

	// gmail.com against Stanford University: advisory mismatch
	cross = ValidateExtractedData(ocr, "Maya Chen", "maya@gmail.com")
	assert.False(t, cross.Matches)
	require.NotEmpty(t, cross.Issues)
	assert.Contains(t, cross.Issues[0], "Email domain (gmail)")
}

func TestValidateExtractedData_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		expiry  string
		expired bool
	}{
		{"Future ISO date", "2035-06-30", false},
		{"Past ISO date", "2019-06-30", true},
		{"Past US date", "06/30/2019", true},
		{"Past month-year", "06/2019", true},
		{"Past bare year", "2019", true},
		{"Unparseable is ignored", "sometime", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocr := validOCRResult()
			ocr.Expiry = strPtr(tt.expiry)

			cross := ValidateExtractedData(ocr, "Maya Chen", "maya@stanford.edu")

			if tt.expired {
				assert.False(t, cross.Matches)
				require.NotEmpty(t, cross.Issues)
				assert.Contains(t, cross.Issues[0], "ID card is expired")
			} else {
				assert.True(t, cross.Matches, "issues: %v", cross.Issues)
			}
		})
	}
}

func TestEvaluateAutoApproval(t *testing.T) {
	cfg := checksTestConfig()
	goodFace := &model.FaceMatchResult{Similarity: 95, Confidence: 99, Success: true}
	goodAppearance := AppearanceCheck{IsValid: true}

	t.Run("All criteria met", func(t *testing.T) {
		decision := EvaluateAutoApproval(goodFace, validOCRResult(), goodAppearance, true, cfg)

		assert.True(t, decision.Approved)
		assert.Equal(t, "All verification criteria met", decision.Reason)
		assert.Empty(t, decision.Issues)
	})

	t.Run("Face score below threshold", func(t *testing.T) {
		face := &model.FaceMatchResult{Similarity: 84.9, Confidence: 99, Success: true}
		decision := EvaluateAutoApproval(face, validOCRResult(), goodAppearance, true, cfg)

		assert.False(t, decision.Approved)
		require.Len(t, decision.Issues, 1)
		assert.Contains(t, decision.Issues[0], "below auto-approval threshold")
	})

	t.Run("Face score exactly at threshold passes", func(t *testing.T) {
		face := &model.FaceMatchResult{Similarity: 85, Confidence: 99, Success: true}
		decision := EvaluateAutoApproval(face, validOCRResult(), goodAppearance, true, cfg)

		assert.True(t, decision.Approved)
	})

	t.Run("Face failure reported with message", func(t *testing.T) {
		face := &model.FaceMatchResult{Success: false, ErrorMessage: "no face detected"}
		decision := EvaluateAutoApproval(face, validOCRResult(), goodAppearance, true, cfg)

		assert.False(t, decision.Approved)
		assert.Contains(t, decision.Issues[0], "Face matching failed: no face detected")
	})

	t.Run("OCR confidence below threshold", func(t *testing.T) {
		ocr := validOCRResult()
		ocr.Confidence = 60
		decision := EvaluateAutoApproval(goodFace, ocr, goodAppearance, true, cfg)

		assert.False(t, decision.Approved)
		require.Len(t, decision.Issues, 1)
		assert.Contains(t, decision.Issues[0], "OCR confidence 60.0 below auto-approval threshold 75.0")
	})

	t.Run("Unrecognized college blocks approval", func(t *testing.T) {
		decision := EvaluateAutoApproval(goodFace, validOCRResult(), goodAppearance, false, cfg)

		assert.False(t, decision.Approved)
		assert.Contains(t, decision.Issues, "College not recognized")
	})

	t.Run("Appearance issues carried through", func(t *testing.T) {
		appearance := AppearanceCheck{IsValid: false, Issues: []string{"Name is missing or too short"}}
		decision := EvaluateAutoApproval(goodFace, validOCRResult(), appearance, true, cfg)

		assert.False(t, decision.Approved)
		assert.Contains(t, decision.Issues, "Name is missing or too short")
	})

	t.Run("Disabled face matching ignores face failure", func(t *testing.T) {
		noFaceCfg := cfg
		noFaceCfg.EnableFaceMatching = false
		face := &model.FaceMatchResult{Success: false}
		decision := EvaluateAutoApproval(face, validOCRResult(), goodAppearance, true, noFaceCfg)

		assert.True(t, decision.Approved)
	})

	t.Run("Disabled OCR ignores extraction issues", func(t *testing.T) {
		noOCRCfg := cfg
		noOCRCfg.EnableOCR = false
		appearance := AppearanceCheck{IsValid: false, Issues: []string{"ID text is blank or too short to be a real card"}}
		decision := EvaluateAutoApproval(goodFace, &model.OCRResult{Success: false}, appearance, false, noOCRCfg)

		assert.True(t, decision.Approved)
	})

	t.Run("Disabled auto-approval never approves", func(t *testing.T) {
		manualCfg := cfg
		manualCfg.EnableAutoApproval = false
		decision := EvaluateAutoApproval(goodFace, validOCRResult(), goodAppearance, true, manualCfg)

		assert.False(t, decision.Approved)
		assert.Equal(t, "Verification requires manual review", decision.Reason)
		assert.Empty(t, decision.Issues)
	})
}
