package response

// ErrCode is the integer status carried in every envelope. Zero is success.
type ErrCode int

const (
	CodeSuccess ErrCode = 0

	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = 1001
	ErrTokenRequired      ErrCode = 1002
	ErrTokenInvalid       ErrCode = 1003

	// ─── Authorization ─────────────────────────────────────────────────
	ErrCandidateAccessOnly ErrCode = 1101
	ErrAdminAccessOnly     ErrCode = 1102
	ErrNotAssigned         ErrCode = 1103

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = 2001
	ErrInvalidID      ErrCode = 2002
	ErrInvalidPayload ErrCode = 2003
	ErrInvalidAnswer  ErrCode = 2004

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = 3001

	// ─── Session-specific ──────────────────────────────────────────────
	ErrSessionNotStarted ErrCode = 4001
	ErrSessionClosed     ErrCode = 4002
	ErrAlreadySubmitted  ErrCode = 4003

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = 9999
)

// GetMessage returns a human-readable message for a given code.
func GetMessage(code ErrCode) string {
	switch code {
	case CodeSuccess:
		return "OK"

	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect username or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrCandidateAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrNotAssigned:
		return "You are not assigned to this session."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidAnswer:
		return "One or more answers do not match the test."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Session not found."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrSessionNotStarted:
		return "The session has not started yet."
	case ErrSessionClosed:
		return "The session is closed."
	case ErrAlreadySubmitted:
		return "This test has already been submitted."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
