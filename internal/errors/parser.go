package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo user-facing error code and message
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts an error into a user-friendly code/message pair.
// Sensitive details stay out of the response; the caller logs the raw error.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "An unexpected error occurred",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM base errors
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. PostgreSQL errors

	// 2-1. Unique constraint violation (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStr)
	}

	// 2-2. Foreign key constraint violation (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStr)
	}

	// 2-3. Not null constraint violation (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	// 3. Network errors from external verification providers
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "An external service is unavailable. Please try again later",
		}
	}

	// 4. Default internal server error
	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "email") || strings.Contains(errLower, "idx_users_email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "This email is already registered",
		}
	}

	if strings.Contains(errLower, "nickname") || strings.Contains(errLower, "idx_users_nickname") {
		return ErrorInfo{
			Code:    AuthNicknameExists,
			Message: "This nickname is already taken",
		}
	}

	if strings.Contains(errLower, "idx_chat_rooms_listing_buyer") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "A chat for this listing already exists",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "This record already exists",
	}
}

func parseForeignKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "still referenced") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "This record is referenced by other data and cannot be deleted",
		}
	}

	if strings.Contains(errLower, "user_id") || strings.Contains(errLower, "fk_users") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "The referenced user does not exist",
		}
	}

	if strings.Contains(errLower, "listing_id") || strings.Contains(errLower, "fk_listings") {
		return ErrorInfo{
			Code:    ListingNotFound,
			Message: "The referenced listing does not exist",
		}
	}

	return ErrorInfo{
		Code:    ResourceNotFound,
		Message: "The referenced record does not exist",
	}
}

func getNotFoundMessage(context string) string {
	switch {
	case strings.Contains(context, "user"):
		return "User not found"
	case strings.Contains(context, "verification"):
		return "Verification request not found"
	case strings.Contains(context, "listing"):
		return "Listing not found"
	case strings.Contains(context, "chat"):
		return "Chat room not found"
	case strings.Contains(context, "notification"):
		return "Notification not found"
	default:
		return "The requested record was not found"
	}
}

func getDefaultErrorMessage(context string) string {
	switch {
	case strings.Contains(context, "verification"):
		return "Failed to process the verification request. Please try again later"
	case strings.Contains(context, "upload"):
		return "Failed to process the upload. Please try again later"
	default:
		return "An unexpected error occurred. Please try again later"
	}
}
