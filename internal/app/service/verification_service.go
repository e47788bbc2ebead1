package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound         = errors.New("verification request not found")
	ErrNotReviewable           = errors.New("verification request is not awaiting review")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrInvalidReviewAction     = errors.New("invalid review action")
)

// Review actions accepted by Review.
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

// unhealthyPendingAge marks the queue unhealthy when the oldest pending
// request has waited longer than this.
const unhealthyPendingAge = 5 * time.Minute

// SubmitInput payload for a new verification attempt
type SubmitInput struct {
	UserID            uint
	StudentIDPhotoURL string
	SelfiePhotoURL    string
}

// StatusResult the user's projection status plus their latest attempt.
// Request is nil when the user has never submitted.
type StatusResult struct {
	UserStatus    model.UserVerificationStatus `json:"verification_status"`
	Request       *model.VerificationRequest   `json:"request"`
	QueuePosition int64                        `json:"queue_position,omitempty"`
}

// BatchStats aggregate outcome of one queue batch
type BatchStats struct {
	Processed           int     `json:"processed"`
	AutoApproved        int     `json:"auto_approved"`
	NeedsReview         int     `json:"needs_review"`
	Rejected            int     `json:"rejected"`
	Errors              int     `json:"errors"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
}

// HealthResult queue introspection for the health endpoint
type HealthResult struct {
	Healthy             bool    `json:"healthy"`
	PendingCount        int64   `json:"pending_count"`
	ProcessingCount     int64   `json:"processing_count"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	OldestPendingAgeSec float64 `json:"oldest_pending_age_sec,omitempty"`
}

// PendingListResult paginated needs_review queue for admins
type PendingListResult struct {
	Requests []model.VerificationSummary `json:"requests"`
	Total    int64                       `json:"total"`
	Page     int                         `json:"page"`
	Limit    int                         `json:"limit"`
	Health   *HealthResult               `json:"health"`
}

// verificationNotifier is the slice of NotificationService the engine needs.
// Kept narrow so tests can pass nil and skip the push path.
type verificationNotifier interface {
	NotifyVerificationResult(userID uint, requestID uint, status model.VerificationStatus)
}

// VerificationService runs the student identity verification pipeline:
// submission, adapter orchestration, adjudication, admin review, queue
// health and retention cleanup.
type VerificationService interface {
	SubmitImmediate(ctx context.Context, input SubmitInput) (*model.VerificationRequest, error)
	Enqueue(input SubmitInput) (*model.VerificationRequest, int64, error)
	GetStatus(userID uint) (*StatusResult, error)
	ProcessBatch(ctx context.Context) (*BatchStats, error)
	Review(requestID, reviewerID uint, action, notes, rejectionReason string) (*model.VerificationRequest, error)
	Health() (*HealthResult, error)
	Cleanup(daysOld int) (int64, error)
	ListPending(page, limit int) (*PendingListResult, error)
}

type verificationService struct {
	verificationRepo repository.VerificationRepository
	userRepo         repository.UserRepository
	listingRepo      repository.ListingRepository
	faceMatchService FaceMatchService
	ocrService       OCRService
	trustService     TrustService
	notifier         verificationNotifier
	cfgFn            func() config.VerificationConfig
}

func NewVerificationService(
	verificationRepo repository.VerificationRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	faceMatchService FaceMatchService,
	ocrService OCRService,
	trustService TrustService,
	notifier verificationNotifier,
	cfgFn func() config.VerificationConfig,
) VerificationService {
	if cfgFn == nil {
		cfgFn = config.LoadVerificationConfig
	}
	return &verificationService{
		verificationRepo: verificationRepo,
		userRepo:         userRepo,
		listingRepo:      listingRepo,
		faceMatchService: faceMatchService,
		ocrService:       ocrService,
		trustService:     trustService,
		notifier:         notifier,
		cfgFn:            cfgFn,
	}
}

// submit creates a pending request row and moves the user projection to
// pending with the submitted photo URLs.
func (s *verificationService) submit(input SubmitInput) (*model.VerificationRequest, error) {
	if _, err := s.userRepo.FindByID(input.UserID); err != nil {
		return nil, err
	}

	req := &model.VerificationRequest{
		UserID:            input.UserID,
		StudentIDPhotoURL: input.StudentIDPhotoURL,
		SelfiePhotoURL:    input.SelfiePhotoURL,
		Status:            model.VerificationPending,
		SubmittedAt:       time.Now(),
	}
	if err := s.verificationRepo.Create(req); err != nil {
		return nil, err
	}

	err := s.userRepo.UpdateVerificationProjection(input.UserID, map[string]interface{}{
		"verification_status":  model.UserVerificationPending,
		"student_id_photo_url": input.StudentIDPhotoURL,
		"selfie_photo_url":     input.SelfiePhotoURL,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Verification request submitted", map[string]interface{}{
		"request_id": req.ID,
		"user_id":    input.UserID,
	})
	return req, nil
}

// SubmitImmediate creates a request and processes it synchronously. The
// returned row carries the final verdict.
func (s *verificationService) SubmitImmediate(ctx context.Context, input SubmitInput) (*model.VerificationRequest, error) {
	req, err := s.submit(input)
	if err != nil {
		return nil, err
	}

	s.process(ctx, req)
	return s.verificationRepo.FindByID(req.ID)
}

// Enqueue creates a request for asynchronous processing and returns its
// 1-based queue position. Ties on submission time share a position.
func (s *verificationService) Enqueue(input SubmitInput) (*model.VerificationRequest, int64, error) {
	req, err := s.submit(input)
	if err != nil {
		return nil, 0, err
	}

	position, err := s.verificationRepo.CountPendingAtOrBefore(req.SubmittedAt)
	if err != nil {
		return nil, 0, err
	}
	return req, position, nil
}

// GetStatus returns the user's verification projection and latest attempt.
// A user with no attempt gets their projection status and a nil request;
// pending requests include their current queue position.
func (s *verificationService) GetStatus(userID uint) (*StatusResult, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	result := &StatusResult{UserStatus: user.VerificationStatus}

	req, err := s.verificationRepo.FindLatestByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, err
	}

	result.Request = req
	if req.Status == model.VerificationPending {
		position, err := s.verificationRepo.CountPendingAtOrBefore(req.SubmittedAt)
		if err != nil {
			return nil, err
		}
		result.QueuePosition = position
	}
	return result, nil
}

// ProcessBatch drains up to QueueBatchSize pending requests, oldest first.
// A panic during one request increments its retry count and the batch moves
// on; requests that exhaust MaxRetries stop being picked up.
func (s *verificationService) ProcessBatch(ctx context.Context) (*BatchStats, error) {
	cfg := s.cfgFn()

	batch, err := s.verificationRepo.FindPendingBatch(cfg.QueueBatchSize, cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	stats := &BatchStats{}
	var totalMs int64

	for i := range batch {
		req := &batch[i]

		func() {
			defer func() {
				if r := recover(); r != nil {
					stats.Errors++
					logger.Error("Panic while processing verification request",
						fmt.Errorf("panic: %v", r), map[string]interface{}{
							"request_id": req.ID,
						})
					_ = s.verificationRepo.UpdateFields(req.ID, map[string]interface{}{
						"status":        model.VerificationPending,
						"retry_count":   req.RetryCount + 1,
						"error_message": fmt.Sprintf("panic: %v", r),
					})
				}
			}()
			s.process(ctx, req)
		}()

		processed, err := s.verificationRepo.FindByID(req.ID)
		if err != nil {
			stats.Errors++
			continue
		}

		stats.Processed++
		totalMs += processed.ProcessingTimeMs
		switch processed.Status {
		case model.VerificationAutoApproved:
			stats.AutoApproved++
		case model.VerificationNeedsReview:
			stats.NeedsReview++
		case model.VerificationRejected:
			stats.Rejected++
		}
	}

	if stats.Processed > 0 {
		stats.AvgProcessingTimeMs = float64(totalMs) / float64(stats.Processed)
	}

	logger.Info("Verification batch completed", map[string]interface{}{
		"processed":     stats.Processed,
		"auto_approved": stats.AutoApproved,
		"needs_review":  stats.NeedsReview,
		"rejected":      stats.Rejected,
		"errors":        stats.Errors,
	})
	return stats, nil
}

// process runs both adapters, the checks and the adjudication for one
// request. Every exit path leaves the row in a decided state; an internal
// error forces needs_review rather than losing the attempt.
func (s *verificationService) process(ctx context.Context, req *model.VerificationRequest) {
	start := time.Now()
	startedAt := start

	err := s.verificationRepo.UpdateFields(req.ID, map[string]interface{}{
		"status":                model.VerificationProcessing,
		"processing_started_at": &startedAt,
	})
	if err != nil {
		s.finalizeError(req, start, err)
		return
	}

	user, err := s.userRepo.FindByID(req.UserID)
	if err != nil {
		s.finalizeError(req, start, err)
		return
	}

	// Both adapters always run so the stored evidence is complete; the
	// feature flags only decide which results count against approval.
	var (
		faceResult *model.FaceMatchResult
		ocrResult  *model.OCRResult
		facePanic  interface{}
		ocrPanic   interface{}
		wg         sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() { facePanic = recover() }()
		faceResult = s.faceMatchService.CompareFaces(ctx, req.StudentIDPhotoURL, req.SelfiePhotoURL)
	}()
	go func() {
		defer wg.Done()
		defer func() { ocrPanic = recover() }()
		ocrResult = s.ocrService.ExtractTextFromID(ctx, req.StudentIDPhotoURL)
	}()
	wg.Wait()

	// Re-raise adapter panics on this goroutine so the batch loop's recover
	// sees them and the request keeps its retry budget.
	if facePanic != nil {
		panic(facePanic)
	}
	if ocrPanic != nil {
		panic(ocrPanic)
	}

	cfg := s.cfgFn()

	appearance := ValidateIDAppearance(ocrResult.RawText, ocrResult.Name, ocrResult.College)
	collegeRecognized := false
	if ocrResult.College != nil {
		collegeRecognized = IsCollegeRecognized(*ocrResult.College, cfg)
	}

	policy := EvaluateAutoApproval(faceResult, ocrResult, appearance, collegeRecognized, cfg)
	cross := ValidateExtractedData(ocrResult, user.Name, user.Email)

	allIssues := append([]string{}, policy.Issues...)
	allIssues = append(allIssues, cross.Issues...)

	status := model.VerificationNeedsReview
	switch {
	case policy.Approved && cross.Matches:
		status = model.VerificationAutoApproved
	case hasRejectionTrigger(allIssues):
		status = model.VerificationRejected
	}

	completedAt := time.Now()
	fields := map[string]interface{}{
		"status":                  status,
		"processing_completed_at": &completedAt,
		"processing_time_ms":      completedAt.Sub(start).Milliseconds(),
		"id_looks_valid":          appearance.IsValid,
		"college_recognized":      collegeRecognized,
		"review_notes":            strings.Join(allIssues, "; "),
	}
	if faceResult.Success {
		fields["face_match_score"] = faceResult.Similarity
		fields["face_match_confidence"] = faceResult.Confidence
	}
	if ocrResult.Success {
		fields["ocr_name"] = ocrResult.Name
		fields["ocr_college"] = ocrResult.College
		fields["ocr_student_id"] = ocrResult.StudentID
		fields["ocr_expiry"] = ocrResult.Expiry
		fields["ocr_raw_text"] = ocrResult.RawText
		fields["ocr_confidence"] = ocrResult.Confidence
	}
	if status == model.VerificationRejected {
		fields["rejection_reason"] = strings.Join(allIssues, "; ")
	}

	if err := s.verificationRepo.UpdateFields(req.ID, fields); err != nil {
		s.finalizeError(req, start, err)
		return
	}

	if err := s.applyDecisionToUser(user, ocrResult, status); err != nil {
		logger.Error("Failed to update user projection after verification", err, map[string]interface{}{
			"request_id": req.ID,
			"user_id":    user.ID,
		})
	}

	if s.notifier != nil {
		s.notifier.NotifyVerificationResult(user.ID, req.ID, status)
	}

	logger.Info("Verification request decided", map[string]interface{}{
		"request_id":         req.ID,
		"user_id":            user.ID,
		"status":             status,
		"face_provider":      faceResult.Provider,
		"ocr_provider":       ocrResult.Provider,
		"college_recognized": collegeRecognized,
		"issue_count":        len(allIssues),
		"duration_ms":        completedAt.Sub(start).Milliseconds(),
	})
}

// hasRejectionTrigger reports whether any issue names an outright fraud
// signal. Only these three markers reject without human review.
func hasRejectionTrigger(issues []string) bool {
	for _, issue := range issues {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "expired") ||
			strings.Contains(lower, "fake") ||
			strings.Contains(lower, "suspicious patterns") {
			return true
		}
	}
	return false
}

// applyDecisionToUser projects the verdict onto the user row. Approval also
// recomputes the trust score and badges and copies the extracted college.
func (s *verificationService) applyDecisionToUser(
	user *model.User,
	ocr *model.OCRResult,
	status model.VerificationStatus,
) error {
	fields := map[string]interface{}{}

	switch status {
	case model.VerificationAutoApproved, model.VerificationApproved:
		fields["verification_status"] = model.UserVerified
		if ocr != nil && ocr.College != nil && *ocr.College != "" {
			fields["college"] = *ocr.College
		}

		profile := s.buildTrustProfile(user, true)
		fields["trust_score"] = s.trustService.CalculateTrustScore(profile)
		fields["badges"] = pq.StringArray(s.trustService.GetEarnedBadges(profile))
	case model.VerificationRejected:
		fields["verification_status"] = model.UserVerificationRejected
	default:
		fields["verification_status"] = model.UserVerificationPending
	}

	return s.userRepo.UpdateVerificationProjection(user.ID, fields)
}

func (s *verificationService) buildTrustProfile(user *model.User, verified bool) TrustProfile {
	sold := int64(0)
	if s.listingRepo != nil {
		if count, err := s.listingRepo.CountSoldBySeller(user.ID); err == nil {
			sold = count
		}
	}

	return TrustProfile{
		Verified:          verified,
		AccountAgeDays:    accountAgeDays(user),
		ListingsSold:      int(sold),
		CollegeRecognized: user.College != "",
	}
}

// finalizeError parks a request in needs_review with the error recorded, so
// a human sees the attempt instead of it silently vanishing.
func (s *verificationService) finalizeError(req *model.VerificationRequest, start time.Time, cause error) {
	logger.Error("Verification processing error", cause, map[string]interface{}{
		"request_id": req.ID,
	})

	completedAt := time.Now()
	_ = s.verificationRepo.UpdateFields(req.ID, map[string]interface{}{
		"status":                  model.VerificationNeedsReview,
		"processing_completed_at": &completedAt,
		"processing_time_ms":      completedAt.Sub(start).Milliseconds(),
		"error_message":           cause.Error(),
		"review_notes":            fmt.Sprintf("Processing error: %s", cause.Error()),
	})
	_ = s.userRepo.UpdateVerificationProjection(req.UserID, map[string]interface{}{
		"verification_status": model.UserVerificationPending,
	})
}

// Review applies an admin verdict to a needs_review request. Approving marks
// the user verified and recomputes trust; rejecting requires a reason.
func (s *verificationService) Review(
	requestID, reviewerID uint,
	action, notes, rejectionReason string,
) (*model.VerificationRequest, error) {
	if action != ReviewActionApprove && action != ReviewActionReject {
		return nil, ErrInvalidReviewAction
	}
	if action == ReviewActionReject && strings.TrimSpace(rejectionReason) == "" {
		return nil, ErrRejectionReasonRequired
	}

	req, err := s.verificationRepo.FindByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != model.VerificationNeedsReview {
		return nil, ErrNotReviewable
	}

	now := time.Now()
	status := model.VerificationApproved
	if action == ReviewActionReject {
		status = model.VerificationRejected
	}

	fields := map[string]interface{}{
		"status":      status,
		"reviewed_by": reviewerID,
		"reviewed_at": &now,
	}
	if strings.TrimSpace(notes) != "" {
		fields["review_notes"] = notes
	}
	if status == model.VerificationRejected {
		fields["rejection_reason"] = rejectionReason
	}
	if err := s.verificationRepo.UpdateFields(requestID, fields); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(req.UserID)
	if err != nil {
		return nil, err
	}
	ocr := &model.OCRResult{Success: true, College: req.OCRCollege}
	if err := s.applyDecisionToUser(user, ocr, status); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyVerificationResult(req.UserID, req.ID, status)
	}

	logger.Info("Verification request reviewed", map[string]interface{}{
		"request_id":  requestID,
		"reviewer_id": reviewerID,
		"action":      action,
		"status":      status,
	})
	return s.verificationRepo.FindByID(requestID)
}

// Health reports queue depth and latency. The queue is unhealthy once the
// oldest pending request has waited more than five minutes.
func (s *verificationService) Health() (*HealthResult, error) {
	pending, err := s.verificationRepo.CountByStatus(model.VerificationPending)
	if err != nil {
		return nil, err
	}
	processing, err := s.verificationRepo.CountByStatus(model.VerificationProcessing)
	if err != nil {
		return nil, err
	}
	avgMs, err := s.verificationRepo.AverageProcessingTimeMs()
	if err != nil {
		return nil, err
	}

	result := &HealthResult{
		Healthy:             true,
		PendingCount:        pending,
		ProcessingCount:     processing,
		AvgProcessingTimeMs: avgMs,
	}

	oldest, err := s.verificationRepo.OldestPending()
	if err != nil {
		return nil, err
	}
	if oldest != nil {
		age := time.Since(oldest.SubmittedAt)
		result.OldestPendingAgeSec = age.Seconds()
		if age > unhealthyPendingAge {
			result.Healthy = false
		}
	}
	return result, nil
}

// Cleanup hard-deletes decided requests older than daysOld. Zero or negative
// daysOld falls back to the configured retention window.
func (s *verificationService) Cleanup(daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = s.cfgFn().RetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -daysOld)
	deleted, err := s.verificationRepo.DeleteOlderThan(cutoff, model.TerminalStatuses)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		logger.Info("Verification retention cleanup completed", map[string]interface{}{
			"deleted":  deleted,
			"days_old": daysOld,
		})
	}
	return deleted, nil
}

// ListPending returns the needs_review queue for the admin dashboard,
// oldest submission first, with health attached.
func (s *verificationService) ListPending(page, limit int) (*PendingListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	requests, total, err := s.verificationRepo.ListByStatus(
		model.VerificationNeedsReview, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.VerificationSummary, 0, len(requests))
	for i := range requests {
		summaries = append(summaries, requests[i].Summary())
	}

	health, err := s.Health()
	if err != nil {
		return nil, err
	}

	return &PendingListResult{
		Requests: summaries,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Health:   health,
	}, nil
}
