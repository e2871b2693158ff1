package result

import (
	"slimwell/intake-backend/internal/coverage"
)

type Kind string

const (
	KindPurchaseSuccess Kind = "PURCHASE_SUCCESS"
	KindError           Kind = "ERROR"
	KindCoverage        Kind = "COVERAGE"
	KindSuccess         Kind = "SUCCESS"
	KindPincodeNotice   Kind = "PINCODE_NOT_SERVICEABLE"
	KindNone            Kind = "NONE"
)

const (
	PurchaseTitle   = "Payment successful"
	PurchaseMessage = "Your subscription is active. Our care team will reach out to schedule your first consultation."
	ErrorTitle      = "Submission failed"
	FallbackError   = "We could not submit your answers. Please try again."
	SuccessTitle    = "Thank you"
	PincodeTitle    = "We are not in your area yet"
	PincodeMessage  = "Our doctors do not serve your pincode yet. We will let you know as soon as we do."
)

// State is everything the result screen may be asked to show. More than one
// field can be set at once.
type State struct {
	PurchaseSucceeded bool
	Error             string
	Failed            bool
	Coverage          *coverage.Info
	Success           bool
	Message           string
	PincodeNotice     bool
}

type View struct {
	Kind             Kind           `json:"kind"`
	Title            string         `json:"title,omitempty"`
	Message          string         `json:"message,omitempty"`
	SupportingDetail string         `json:"supportingDetail,omitempty"`
	Coverage         *coverage.Info `json:"coverage,omitempty"`
}

// Resolve picks the single view to render. The order is fixed: purchase,
// error, coverage, success, pincode notice, nothing. A not_applicable
// coverage carries no text and falls through to the generic success.
func Resolve(s State) View {
	switch {
	case s.PurchaseSucceeded:
		return View{Kind: KindPurchaseSuccess, Title: PurchaseTitle, Message: PurchaseMessage}
	case s.Error != "" || s.Failed:
		message := s.Error
		if message == "" {
			message = FallbackError
		}
		return View{Kind: KindError, Title: ErrorTitle, Message: message}
	case s.Coverage != nil && s.Coverage.Status != coverage.StatusNotApplicable:
		return coverageView(*s.Coverage)
	case s.Success:
		return View{Kind: KindSuccess, Title: SuccessTitle, Message: s.Message}
	case s.PincodeNotice:
		return View{Kind: KindPincodeNotice, Title: PincodeTitle, Message: PincodeMessage}
	}
	return View{Kind: KindNone}
}

func coverageView(info coverage.Info) View {
	v := View{Kind: KindCoverage, Coverage: &info}
	if info.Title != nil {
		v.Title = *info.Title
	}
	if info.Message != nil {
		v.Message = *info.Message
	}
	if info.SupportingDetail != nil {
		v.SupportingDetail = *info.SupportingDetail
	}
	return v
}
