package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

// ErrStepIncomplete is returned when a wizard transition is attempted while the
// current step does not satisfy its validation predicate.
type ErrStepIncomplete struct {
	StepID  string
	Missing []string
}

func (e ErrStepIncomplete) Error() string {
	if len(e.Missing) == 0 {
		return "step " + e.StepID + " is not complete"
	}
	return fmt.Sprintf("step %s is not complete, missing: %s", e.StepID, strings.Join(e.Missing, ", "))
}

func (e ErrStepIncomplete) Unwrap() error {
	return ErrValidationFailed
}

var (
	// Generic Errors
	ErrInternalServerError = errors.New("internal server error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequestBody  = errors.New("invalid request body")
	ErrValidationFailed    = errors.New("validation failed")
	ErrDatabaseError       = errors.New("database error")
	ErrForbiddenError      = errors.New("forbidden error")
	ErrTooManyRequests     = errors.New("too many requests")

	// Session Errors
	ErrMissingAuthHeader       = errors.New("missing session token")
	ErrInvalidAuthHeaderFormat = errors.New("invalid session token")
	ErrInvalidJWTToken         = errors.New("invalid JWT token")
	ErrSessionNotFound         = errors.New("intake session not found")
	ErrNoSessionInContext      = errors.New("no intake session found in request context")
	ErrSessionBusy             = errors.New("intake session is busy with another request")

	// Registration Errors
	ErrInvalidMobileNumber = errors.New("invalid mobile number")
	ErrInvalidName         = errors.New("invalid name")
	ErrNotPreRegistered    = errors.New("mobile number is not pre-registered")
	ErrRegistrationFailed  = errors.New("pre-registration failed")

	// Identity Errors
	ErrChallengeInUse          = errors.New("challenge widget already mounted for this container")
	ErrChallengeNotFound       = errors.New("challenge widget is not mounted")
	ErrVerificationNotFound    = errors.New("verification attempt not found")
	ErrInvalidPhoneNumber      = errors.New("invalid phone number format")
	ErrTooManyOTPAttempts      = errors.New("too many attempts, try again later")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrCodeExpired             = errors.New("verification code has expired")
	ErrIdentityProvider        = errors.New("identity provider error")
	ErrMissingVerification     = errors.New("verification token is missing")
	ErrInvalidVerification     = errors.New("verification token is invalid")

	// Quiz Errors
	ErrStepNotFound           = errors.New("quiz step not found")
	ErrMissingSubmissionLabel = errors.New("quiz step has no submission label")
	ErrInvalidAnswerValue     = errors.New("answer value does not match the step kind")
	ErrNoPreviousStep         = errors.New("already at the first step")
	ErrSubmitInFlight         = errors.New("submission already in flight")
	ErrAlreadySubmitted       = errors.New("quiz already submitted")
	ErrNotAnswering           = errors.New("quiz is not accepting answers")

	// Submission Errors
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrEmptySubmission    = errors.New("submission has no answers")

	// Plan Errors
	ErrPlanNotFound = errors.New("plan not found")
	ErrNoPlans      = errors.New("no plans available")

	// Checkout Errors
	ErrCheckoutUnavailable  = errors.New("checkout is unavailable")
	ErrGatewayUnavailable   = errors.New("payment gateway could not be loaded")
	ErrInvalidWebhook       = errors.New("invalid webhook payload")
	ErrActiveSubscription   = errors.New("user already has an active subscription")
	ErrCheckoutNotSubmitted = errors.New("quiz must be submitted before checkout")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	switch {
	case errors.Is(err, ErrInternalServerError):
		return problem.NewInternalServerProblem("internal server error")
	case errors.Is(err, ErrNotFound):
		return problem.NewNotFoundProblem("not found")
	case errors.Is(err, ErrInvalidRequestBody):
		return problem.NewBadRequestProblem("invalid request body")
	case errors.Is(err, ErrDatabaseError):
		return problem.NewBadRequestProblem("database error")
	case errors.Is(err, ErrForbiddenError):
		return problem.NewForbiddenProblem("forbidden error")
	case errors.Is(err, ErrTooManyRequests):
		return problem.NewValidateProblem("too many requests, try again later")

	// Session Errors
	case errors.Is(err, ErrMissingAuthHeader):
		return problem.NewUnauthorizedProblem("missing session token")
	case errors.Is(err, ErrInvalidAuthHeaderFormat):
		return problem.NewUnauthorizedProblem("invalid session token")
	case errors.Is(err, ErrInvalidJWTToken):
		return problem.NewUnauthorizedProblem("invalid JWT token")
	case errors.Is(err, ErrSessionNotFound):
		return problem.NewUnauthorizedProblem("intake session not found or expired")
	case errors.Is(err, ErrNoSessionInContext):
		return problem.NewUnauthorizedProblem("no intake session found in request context")
	case errors.Is(err, ErrSessionBusy):
		return problem.NewValidateProblem("intake session is busy, retry shortly")

	// Registration Errors
	case errors.Is(err, ErrInvalidMobileNumber):
		return problem.NewValidateProblem("Please enter a valid 10-digit mobile number")
	case errors.Is(err, ErrInvalidName):
		return problem.NewValidateProblem("Please enter your name")
	case errors.Is(err, ErrNotPreRegistered):
		return problem.NewValidateProblem("mobile number is not pre-registered")
	case errors.Is(err, ErrRegistrationFailed):
		return problem.NewBadRequestProblem("pre-registration failed")

	// Identity Errors
	case errors.Is(err, ErrChallengeInUse):
		return problem.NewValidateProblem("challenge widget already mounted for this container")
	case errors.Is(err, ErrChallengeNotFound):
		return problem.NewValidateProblem("challenge widget is not mounted")
	case errors.Is(err, ErrVerificationNotFound):
		return problem.NewNotFoundProblem("verification attempt not found, request a new code")
	case errors.Is(err, ErrInvalidPhoneNumber):
		return problem.NewValidateProblem("Invalid phone number format. Please check and try again.")
	case errors.Is(err, ErrTooManyOTPAttempts):
		return problem.NewValidateProblem("Too many attempts. Please try again later.")
	case errors.Is(err, ErrInvalidVerificationCode):
		return problem.NewValidateProblem("Invalid verification code. Please try again.")
	case errors.Is(err, ErrCodeExpired):
		return problem.NewValidateProblem("Verification code has expired. Please request a new one.")
	case errors.Is(err, ErrIdentityProvider):
		return problem.NewBadRequestProblem(err.Error())
	case errors.Is(err, ErrMissingVerification):
		return problem.NewUnauthorizedProblem("verification token is missing")
	case errors.Is(err, ErrInvalidVerification):
		return problem.NewUnauthorizedProblem("verification token is invalid")

	// Quiz Errors
	case errors.Is(err, ErrStepNotFound):
		return problem.NewNotFoundProblem("quiz step not found")
	case errors.Is(err, ErrMissingSubmissionLabel):
		return problem.NewInternalServerProblem("quiz step has no submission label")
	case errors.Is(err, ErrInvalidAnswerValue):
		return problem.NewValidateProblem("answer value does not match the step kind")
	case errors.Is(err, ErrNoPreviousStep):
		return problem.NewValidateProblem("already at the first step")
	case errors.Is(err, ErrSubmitInFlight):
		return problem.NewValidateProblem("submission already in flight")
	case errors.Is(err, ErrAlreadySubmitted):
		return problem.NewValidateProblem("quiz already submitted")
	case errors.Is(err, ErrNotAnswering):
		return problem.NewValidateProblem("quiz is not accepting answers")

	// Submission Errors
	case errors.Is(err, ErrSubmissionNotFound):
		return problem.NewNotFoundProblem("submission not found")
	case errors.Is(err, ErrEmptySubmission):
		return problem.NewValidateProblem("submission has no answers")

	// Plan Errors
	case errors.Is(err, ErrPlanNotFound):
		return problem.NewNotFoundProblem("plan not found")
	case errors.Is(err, ErrNoPlans):
		return problem.NewNotFoundProblem("no plans available")

	// Checkout Errors
	case errors.Is(err, ErrCheckoutUnavailable):
		return problem.NewValidateProblem("checkout is unavailable")
	case errors.Is(err, ErrGatewayUnavailable):
		return problem.NewInternalServerProblem("payment gateway could not be loaded")
	case errors.Is(err, ErrInvalidWebhook):
		return problem.NewBadRequestProblem("invalid webhook payload")
	case errors.Is(err, ErrActiveSubscription):
		return problem.NewValidateProblem("user already has an active subscription")
	case errors.Is(err, ErrCheckoutNotSubmitted):
		return problem.NewValidateProblem("quiz must be submitted before checkout")

	// Validation Errors
	case errors.Is(err, ErrValidationFailed):
		return problem.NewValidateProblem(err.Error())
	}
	return problem.Problem{}
}
