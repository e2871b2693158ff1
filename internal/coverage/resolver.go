package coverage

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Status string

const (
	StatusCovered       Status = "covered"
	StatusPartial       Status = "partial"
	StatusNotCovered    Status = "not_covered"
	StatusNotApplicable Status = "not_applicable"
)

// Info is the coverage outcome returned with every submission. Only Status
// is always set.
type Info struct {
	Status           Status  `json:"status"`
	Title            *string `json:"title"`
	Message          *string `json:"message"`
	SupportingDetail *string `json:"supportingDetail"`
}

// Input carries flattened answers keyed by answer key.
type Input struct {
	ProviderID string
	Answers    map[string]string
}

type template struct {
	Title            string `yaml:"title"`
	Message          string `yaml:"message"`
	SupportingDetail string `yaml:"supporting_detail"`
}

type Provider struct {
	ID                  string  `yaml:"id" json:"id"`
	Name                string  `yaml:"name" json:"name"`
	Status              Status  `yaml:"status" json:"-"`
	MinBMI              float64 `yaml:"min_bmi" json:"-"`
	MinBMIWithCondition float64 `yaml:"min_bmi_with_condition" json:"-"`
}

type exclusion struct {
	Key    string `yaml:"key"`
	Answer string `yaml:"answer"`
	Reason string `yaml:"reason"`
}

type Rules struct {
	Templates            map[Status]template `yaml:"templates"`
	Providers            []Provider          `yaml:"providers"`
	QualifyingConditions struct {
		Key     string   `yaml:"key"`
		Options []string `yaml:"options"`
	} `yaml:"qualifying_conditions"`
	Exclusions []exclusion `yaml:"exclusions"`
}

//go:embed providers.yaml
var defaultRules []byte

func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse coverage rules: %w", err)
	}

	for _, p := range rules.Providers {
		switch p.Status {
		case StatusCovered, StatusPartial, StatusNotCovered:
		default:
			return Rules{}, fmt.Errorf("provider %s has invalid status %q", p.ID, p.Status)
		}
	}

	for _, s := range []Status{StatusCovered, StatusPartial, StatusNotCovered} {
		if _, ok := rules.Templates[s]; !ok {
			return Rules{}, fmt.Errorf("missing template for status %s", s)
		}
	}

	return rules, nil
}

type Resolver struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	rules     Rules
	providers map[string]Provider
}

func NewResolver(logger *zap.Logger) (*Resolver, error) {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		return nil, err
	}
	return NewResolverWithRules(logger, rules), nil
}

func NewResolverWithRules(logger *zap.Logger, rules Rules) *Resolver {
	providers := make(map[string]Provider, len(rules.Providers))
	for _, p := range rules.Providers {
		providers[p.ID] = p
	}

	return &Resolver{
		logger:    logger,
		tracer:    otel.Tracer("coverage/resolver"),
		rules:     rules,
		providers: providers,
	}
}

// Providers lists the insurance providers a visitor can pick.
func (r *Resolver) Providers() []Provider {
	out := make([]Provider, len(r.rules.Providers))
	copy(out, r.rules.Providers)
	return out
}

func (r *Resolver) Provider(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Resolve classifies one submission. The result depends only on the input.
func (r *Resolver) Resolve(ctx context.Context, input Input) Info {
	traceCtx, span := r.tracer.Start(ctx, "Resolve")
	defer span.End()
	logger := logutil.WithContext(traceCtx, r.logger)

	info := r.resolve(input)

	span.SetAttributes(
		attribute.String("coverage.provider_id", input.ProviderID),
		attribute.String("coverage.status", string(info.Status)),
	)
	logger.Debug("Resolved coverage", zap.String("provider_id", input.ProviderID), zap.String("status", string(info.Status)))

	return info
}

func (r *Resolver) resolve(input Input) Info {
	providerID := strings.TrimSpace(input.ProviderID)
	if providerID == "" {
		return Info{Status: StatusNotApplicable}
	}

	provider, ok := r.providers[providerID]
	if !ok {
		return r.info(StatusNotCovered, "", "We could not match your insurance provider. You can still join with a self-pay plan.")
	}

	for _, ex := range r.rules.Exclusions {
		if strings.EqualFold(strings.TrimSpace(input.Answers[ex.Key]), ex.Answer) {
			return r.info(StatusNotCovered, provider.Name, ex.Reason)
		}
	}

	if provider.Status == StatusNotCovered {
		return r.info(StatusNotCovered, provider.Name, "")
	}

	bmi, ok := BMI(input.Answers["height"], input.Answers["currentWeight"])
	if ok && provider.MinBMI > 0 && bmi < provider.MinBMI {
		threshold := provider.MinBMIWithCondition
		if !r.hasQualifyingCondition(input.Answers) || threshold <= 0 || bmi < threshold {
			detail := fmt.Sprintf("%s covers the program from a BMI of %.1f, or %.1f with a related condition. Your BMI is %.1f.",
				provider.Name, provider.MinBMI, provider.MinBMIWithCondition, bmi)
			return r.info(StatusNotCovered, provider.Name, detail)
		}
	}

	return r.info(provider.Status, provider.Name, "")
}

func (r *Resolver) hasQualifyingCondition(answers map[string]string) bool {
	raw := answers[r.rules.QualifyingConditions.Key]
	for _, selected := range strings.Split(raw, ",") {
		selected = strings.TrimSpace(selected)
		for _, option := range r.rules.QualifyingConditions.Options {
			if selected == option {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) info(status Status, providerName, detail string) Info {
	tpl := r.rules.Templates[status]
	if detail == "" {
		detail = strings.ReplaceAll(tpl.SupportingDetail, "{{provider}}", providerName)
	}
	return Info{
		Status:           status,
		Title:            optional(tpl.Title),
		Message:          optional(tpl.Message),
		SupportingDetail: optional(detail),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BMI computes body mass index from height in inches and weight in kg.
func BMI(heightInches, weightKg string) (float64, bool) {
	h, err := strconv.ParseFloat(strings.TrimSpace(heightInches), 64)
	if err != nil || h <= 0 {
		return 0, false
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(weightKg), 64)
	if err != nil || w <= 0 {
		return 0, false
	}
	meters := h * 0.0254
	return w / (meters * meters), true
}
