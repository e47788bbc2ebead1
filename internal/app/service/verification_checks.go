package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/model"
)

// Pure validation and policy functions for the verification pipeline.
// No I/O happens here; everything is a function of its inputs.

// suspiciousMarkers are matched case-insensitively against the extracted raw
// text. The first hit wins; later markers are not checked.
var suspiciousMarkers = []string{
	"test id", "sample id", "fake id", "specimen", "void", "not valid", "example",
}

// AppearanceCheck outcome of the blank/suspicious-text validation
type AppearanceCheck struct {
	IsValid bool
	Issues  []string
}

// ValidateIDAppearance flags IDs whose extracted text looks blank, truncated
// or deliberately fake.
func ValidateIDAppearance(rawText, name, college *string) AppearanceCheck {
	var issues []string

	if rawText == nil || len(strings.TrimSpace(*rawText)) < 20 {
		issues = append(issues, "ID text is blank or too short to be a real card")
	}
	if name == nil || len(strings.TrimSpace(*name)) < 2 {
		issues = append(issues, "Name is missing or too short")
	}
	if college == nil || len(strings.TrimSpace(*college)) < 3 {
		issues = append(issues, "College name is missing or too short")
	}

	if rawText != nil {
		lower := strings.ToLower(*rawText)
		for _, marker := range suspiciousMarkers {
			if strings.Contains(lower, marker) {
				issues = append(issues, fmt.Sprintf("ID contains suspicious patterns: %q", marker))
				break
			}
		}
	}

	return AppearanceCheck{IsValid: len(issues) == 0, Issues: issues}
}

// IsCollegeRecognized reports whether the extracted college name matches any
// entry of the recognized list. The match is a bidirectional substring check,
// deliberately permissive so abbreviations and superstrings pass either way.
func IsCollegeRecognized(collegeName string, cfg config.VerificationConfig) bool {
	name := strings.ToLower(strings.TrimSpace(collegeName))
	if name == "" {
		return false
	}

	for _, entry := range cfg.RecognizedColleges {
		if strings.Contains(name, entry) || strings.Contains(entry, name) {
			return true
		}
	}
	return false
}

// CrossValidation outcome of checking OCR output against the user profile
type CrossValidation struct {
	Matches bool
	Issues  []string
}

// ValidateExtractedData cross-checks the extracted name, college and expiry
// against the user's stored profile.
func ValidateExtractedData(ocr *model.OCRResult, userName, userEmail string) CrossValidation {
	if ocr == nil || !ocr.Success {
		return CrossValidation{Matches: false, Issues: []string{"OCR extraction failed"}}
	}

	var issues []string

	// Name check: tokenize both names and require at least one token pair
	// where one token contains the other. The threshold is min(1, tokens),
	// which always evaluates to 1 for non-empty names; kept as-is pending
	// product confirmation on stricter multi-word matching.
	if ocr.Name != nil && strings.TrimSpace(userName) != "" {
		extractedTokens := strings.Fields(strings.ToLower(*ocr.Name))
		userTokens := strings.Fields(strings.ToLower(userName))

		required := 1
		if len(userTokens) < required {
			required = len(userTokens)
		}

		matched := 0
		for _, ut := range userTokens {
			for _, et := range extractedTokens {
				if strings.Contains(ut, et) || strings.Contains(et, ut) {
					matched++
					break
				}
			}
		}

		if matched < required {
			issues = append(issues, fmt.Sprintf(
				"Name on ID (%s) does not match profile name (%s)", *ocr.Name, userName))
		}
	}

	// Email domain check: the label before the first dot of the email domain
	// should relate to the extracted college. A mismatch is only advisory.
	if ocr.College != nil && *ocr.College != "" && userEmail != "" {
		if label := emailDomainLabel(userEmail); label != "" {
			collegeLower := strings.ToLower(*ocr.College)
			firstWord := collegeLower
			if fields := strings.Fields(collegeLower); len(fields) > 0 {
				firstWord = fields[0]
			}
			if !strings.Contains(collegeLower, label) && !strings.Contains(label, firstWord) {
				issues = append(issues, fmt.Sprintf(
					"Email domain (%s) does not match extracted college (%s)", label, *ocr.College))
			}
		}
	}

	if ocr.Expiry != nil {
		if expiry, ok := parseExpiryDate(*ocr.Expiry); ok && expiry.Before(time.Now()) {
			issues = append(issues, fmt.Sprintf("ID card is expired (expiry: %s)", *ocr.Expiry))
		}
	}

	return CrossValidation{Matches: len(issues) == 0, Issues: issues}
}

// emailDomainLabel extracts the segment between '@' and the first dot,
// e.g. "stanford" from "jane@stanford.edu".
func emailDomainLabel(email string) string {
	at := strings.Index(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	if dot := strings.Index(domain, "."); dot > 0 {
		return domain[:dot]
	}
	return domain
}

var expiryFormats = []string{"2006-01-02", "01/02/2006", "01/2006", "2006"}

func parseExpiryDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, format := range expiryFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// PolicyDecision outcome of the auto-approval evaluation
type PolicyDecision struct {
	Approved bool
	Reason   string
	Issues   []string
}

// EvaluateAutoApproval applies the auto-approval policy to the adapter
// results. Issues are collected in fixed order: face matching first, then
// OCR confidence, college recognition and appearance. Cross-validation runs
// separately; the caller combines both issue lists for the final status.
func EvaluateAutoApproval(
	face *model.FaceMatchResult,
	ocr *model.OCRResult,
	appearance AppearanceCheck,
	collegeRecognized bool,
	cfg config.VerificationConfig,
) PolicyDecision {
	var issues []string

	if cfg.EnableFaceMatching {
		switch {
		case face == nil || !face.Success:
			msg := "Face matching failed"
			if face != nil && face.ErrorMessage != "" {
				msg = fmt.Sprintf("Face matching failed: %s", face.ErrorMessage)
			}
			issues = append(issues, msg)
		case face.Similarity < cfg.AutoApprovalFaceMatchMin:
			issues = append(issues, fmt.Sprintf(
				"Face match score %.1f below auto-approval threshold %.1f",
				face.Similarity, cfg.AutoApprovalFaceMatchMin))
		}
	}

	if cfg.EnableOCR {
		switch {
		case ocr == nil || !ocr.Success:
			msg := "OCR extraction failed"
			if ocr != nil && ocr.ErrorMessage != "" {
				msg = fmt.Sprintf("OCR extraction failed: %s", ocr.ErrorMessage)
			}
			issues = append(issues, msg)
		case ocr.Confidence < cfg.AutoApprovalOCRConfMin:
			issues = append(issues, fmt.Sprintf(
				"OCR confidence %.1f below auto-approval threshold %.1f",
				ocr.Confidence, cfg.AutoApprovalOCRConfMin))
		}

		if !collegeRecognized {
			issues = append(issues, "College not recognized")
		}
		issues = append(issues, appearance.Issues...)
	}

	if len(issues) == 0 && cfg.EnableAutoApproval {
		return PolicyDecision{
			Approved: true,
			Reason:   "All verification criteria met",
		}
	}

	return PolicyDecision{
		Approved: false,
		Reason:   "Verification requires manual review",
		Issues:   issues,
	}
}
