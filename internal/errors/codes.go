package errors

// Error code constants
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to localized messages

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthNicknameExists     = "AUTH_NICKNAME_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzAccessDenied = "AUTHZ_ACCESS_DENIED"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Verification (VERIFICATION_) ====================
	VerificationNotFound        = "VERIFICATION_NOT_FOUND"
	VerificationAlreadyPending  = "VERIFICATION_ALREADY_PENDING"
	VerificationAlreadyReviewed = "VERIFICATION_ALREADY_REVIEWED"
	VerificationReasonRequired  = "VERIFICATION_REASON_REQUIRED"
	VerificationInvalidAction   = "VERIFICATION_INVALID_ACTION"
	VerificationNotVerified     = "VERIFICATION_NOT_VERIFIED"

	// ==================== Listing (LISTING_) ====================
	ListingNotFound  = "LISTING_NOT_FOUND"
	ListingNotActive = "LISTING_NOT_ACTIVE"

	// ==================== Chat (CHAT_) ====================
	ChatRoomNotFound = "CHAT_ROOM_NOT_FOUND"
	ChatSelfChat     = "CHAT_SELF_CHAT"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidType   = "UPLOAD_INVALID_TYPE"
	UploadFileTooLarge  = "UPLOAD_FILE_TOO_LARGE"
	UploadInvalidFolder = "UPLOAD_INVALID_FOLDER"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR"
	InternalDatabase    = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI = "INTERNAL_EXTERNAL_API_ERROR"
)
