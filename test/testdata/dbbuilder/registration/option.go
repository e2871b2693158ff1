package registrationbuilder

type Option func(*FactoryParams)

type FactoryParams struct {
	Name              string
	MobileNumber      string
	Verified          bool
	HasQuizSubmission bool
}

func WithName(name string) Option {
	return func(p *FactoryParams) { p.Name = name }
}

// WithMobileNumber takes the normalized +91 form.
func WithMobileNumber(mobileNumber string) Option {
	return func(p *FactoryParams) { p.MobileNumber = mobileNumber }
}

func Verified() Option {
	return func(p *FactoryParams) { p.Verified = true }
}

func WithQuizSubmission() Option {
	return func(p *FactoryParams) { p.HasQuizSubmission = true }
}
