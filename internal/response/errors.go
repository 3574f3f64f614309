package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials  ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired       ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid        ErrCode = "TOKEN_INVALID"
	ErrTokenExpired        ErrCode = "TOKEN_EXPIRED"
	ErrSessionInvalidated  ErrCode = "SESSION_INVALIDATED"
	ErrWebhookUnauthorized ErrCode = "WEBHOOK_UNAUTHORIZED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound      ErrCode = "NOT_FOUND"
	ErrAlreadyExists ErrCode = "ALREADY_EXISTS"

	// ─── Entitlements & billing ────────────────────────────────────────
	ErrAccessExpired        ErrCode = "ACCESS_EXPIRED"
	ErrUnknownProduct       ErrCode = "UNKNOWN_PRODUCT"
	ErrNotManualTransaction ErrCode = "NOT_MANUAL_TRANSACTION"
	ErrCheckoutFailed       ErrCode = "CHECKOUT_FAILED"

	// ─── Exam & training sessions ──────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrAlreadyTaken       ErrCode = "ALREADY_TAKEN"
	ErrInvalidState       ErrCode = "INVALID_STATE"
	ErrTimeExpired        ErrCode = "TIME_EXPIRED"
	ErrFraudDetected      ErrCode = "FRAUD_DETECTED"
	ErrNotEnoughQuestions ErrCode = "NOT_ENOUGH_QUESTIONS"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrSessionInvalidated:
		return "You have signed in on another device. This session is no longer valid."
	case ErrWebhookUnauthorized:
		return "Webhook signature verification failed."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrAlreadyExists:
		return "The resource already exists."

	// ─── Entitlements & billing ────────────────────────────────────────
	case ErrAccessExpired:
		return "Your access has expired. Purchase a plan to continue."
	case ErrUnknownProduct:
		return "The requested product code is unknown."
	case ErrNotManualTransaction:
		return "Only manually recorded transactions can be edited."
	case ErrCheckoutFailed:
		return "The checkout could not be created. Please try again."

	// ─── Exam & training sessions ──────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrAlreadyTaken:
		return "You have already taken this exam."
	case ErrInvalidState:
		return "The session is not in a valid state for this action."
	case ErrTimeExpired:
		return "The allotted time for this session has expired."
	case ErrFraudDetected:
		return "An answer was submitted for a locked question."
	case ErrNotEnoughQuestions:
		return "Not enough questions are available for this selection."
	case ErrSessionExpired:
		return "This practice session has expired and can no longer be resumed."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
