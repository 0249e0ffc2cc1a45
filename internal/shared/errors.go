package shared

import "errors"

// Error taxonomy shared by every operation. Services wrap these with %w and
// handlers translate them into the tagged failure envelope.
var (
	// ErrNotAuthenticated indicates no resolvable acting user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden indicates the acting user does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a referenced row is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a missing or invalid required field.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a uniqueness conflict (e.g. document number).
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when the CSRF token is absent.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
