package model

import (
	"time"

	"gorm.io/gorm"
)

// VerificationStatus lifecycle of one verification attempt.
//
//	pending -> processing -> auto_approved | needs_review | rejected
//	needs_review -> approved | rejected (admin review only)
type VerificationStatus string

const (
	VerificationPending      VerificationStatus = "pending"
	VerificationProcessing   VerificationStatus = "processing"
	VerificationAutoApproved VerificationStatus = "auto_approved"
	VerificationNeedsReview  VerificationStatus = "needs_review"
	VerificationApproved     VerificationStatus = "approved"
	VerificationRejected     VerificationStatus = "rejected"
)

// TerminalStatuses are the statuses eligible for retention cleanup.
// needs_review and pending rows are kept for the audit trail.
var TerminalStatuses = []VerificationStatus{
	VerificationAutoApproved,
	VerificationApproved,
	VerificationRejected,
}

// VerificationRequest one student ID verification attempt
type VerificationRequest struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	StudentIDPhotoURL string `gorm:"type:text;not null" json:"student_id_photo_url"`
	SelfiePhotoURL    string `gorm:"type:text;not null" json:"selfie_photo_url"`

	Status                VerificationStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	SubmittedAt           time.Time          `json:"submitted_at"`
	ProcessingStartedAt   *time.Time         `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time         `json:"processing_completed_at,omitempty"`
	RetryCount            int                `gorm:"default:0" json:"retry_count"`
	ErrorMessage          string             `gorm:"type:text" json:"error_message,omitempty"`

	// Face comparison results
	FaceMatchScore      *float64 `json:"face_match_score,omitempty"`
	FaceMatchConfidence *float64 `json:"face_match_confidence,omitempty"`

	// OCR results
	OCRName       *string  `json:"ocr_name,omitempty"`
	OCRCollege    *string  `json:"ocr_college,omitempty"`
	OCRStudentID  *string  `json:"ocr_student_id,omitempty"`
	OCRExpiry     *string  `json:"ocr_expiry,omitempty"`
	OCRRawText    *string  `gorm:"type:text" json:"ocr_raw_text,omitempty"`
	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`

	// Derived checks
	IDLooksValid      bool    `gorm:"default:false" json:"id_looks_valid"`
	CollegeRecognized bool    `gorm:"default:false" json:"college_recognized"`
	ProcessingTimeMs  int64   `gorm:"default:0" json:"processing_time_ms"`
	ReviewNotes       string  `gorm:"type:text" json:"review_notes,omitempty"`
	RejectionReason   *string `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Admin review
	ReviewedBy *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

func (VerificationRequest) TableName() string {
	return "verification_requests"
}

// IsTerminal reports whether no further engine-driven transition occurs.
func (r *VerificationRequest) IsTerminal() bool {
	switch r.Status {
	case VerificationAutoApproved, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// FaceMatchResult normalized output of one face comparison provider chain
type FaceMatchResult struct {
	Similarity       float64 `json:"similarity"`
	Confidence       float64 `json:"confidence"`
	Success          bool    `json:"success"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	Provider         string  `json:"provider"`
}

// OCRResult normalized output of the student ID text extraction chain
type OCRResult struct {
	Success          bool     `json:"success"`
	Confidence       float64  `json:"confidence"`
	RawText          *string  `json:"raw_text,omitempty"`
	Name             *string  `json:"name,omitempty"`
	College          *string  `json:"college,omitempty"`
	StudentID        *string  `json:"student_id,omitempty"`
	Expiry           *string  `json:"expiry,omitempty"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Provider         string   `json:"provider"`
}

// VerificationSummary compact view returned by status and admin list endpoints
type VerificationSummary struct {
	ID                uint               `json:"id"`
	UserID            uint               `json:"user_id"`
	Status            VerificationStatus `json:"status"`
	SubmittedAt       time.Time          `json:"submitted_at"`
	FaceMatchScore    *float64           `json:"face_match_score,omitempty"`
	OCRConfidence     *float64           `json:"ocr_confidence,omitempty"`
	OCRName           *string            `json:"ocr_name,omitempty"`
	OCRCollege        *string            `json:"ocr_college,omitempty"`
	CollegeRecognized bool               `json:"college_recognized"`
	ReviewNotes       string             `json:"review_notes,omitempty"`
	RejectionReason   *string            `json:"rejection_reason,omitempty"`
	RetryCount        int                `json:"retry_count"`
	ProcessingTimeMs  int64              `json:"processing_time_ms"`
}

// Summary converts a request row to its compact view.
func (r *VerificationRequest) Summary() VerificationSummary {
	return VerificationSummary{
		ID:                r.ID,
		UserID:            r.UserID,
		Status:            r.Status,
		SubmittedAt:       r.SubmittedAt,
		FaceMatchScore:    r.FaceMatchScore,
		OCRConfidence:     r.OCRConfidence,
		OCRName:           r.OCRName,
		OCRCollege:        r.OCRCollege,
		CollegeRecognized: r.CollegeRecognized,
		ReviewNotes:       r.ReviewNotes,
		RejectionReason:   r.RejectionReason,
		RetryCount:        r.RetryCount,
		ProcessingTimeMs:  r.ProcessingTimeMs,
	}
}
