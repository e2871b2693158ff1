package identity

import (
	"strings"

	"slimwell/intake-backend/internal"
)

const GenericMessage = "Something went wrong, please try again."

// ProviderError is a rejection reported by the identity provider. Code is the
// provider's machine code (e.g. INVALID_CODE) and Message its optional detail.
// Error never returns the code: it is shown to visitors.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func newProviderError(status int, raw string) *ProviderError {
	code, message, _ := strings.Cut(raw, ":")
	return &ProviderError{
		Status:  status,
		Code:    strings.TrimSpace(code),
		Message: strings.TrimSpace(message),
	}
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericMessage
}

func (e *ProviderError) Unwrap() error {
	switch e.Code {
	case "INVALID_PHONE_NUMBER", "MISSING_PHONE_NUMBER":
		return internal.ErrInvalidPhoneNumber
	case "TOO_MANY_ATTEMPTS_TRY_LATER", "QUOTA_EXCEEDED":
		return internal.ErrTooManyOTPAttempts
	case "INVALID_CODE", "MISSING_CODE":
		return internal.ErrInvalidVerificationCode
	case "SESSION_EXPIRED", "CODE_EXPIRED", "INVALID_SESSION_INFO":
		return internal.ErrCodeExpired
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND", "USER_DISABLED":
		return internal.ErrInvalidVerification
	default:
		return internal.ErrIdentityProvider
	}
}
