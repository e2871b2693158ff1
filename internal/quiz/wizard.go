package quiz

import (
	"fmt"

	"slimwell/intake-backend/internal"
)

type State string

const (
	StateAnswering     State = "answering"
	StateSubmitting    State = "submitting"
	StateShowingResult State = "showing_result"
)

// Snapshot is the persisted form of a Wizard.
type Snapshot struct {
	Index         int     `json:"index"`
	State         State   `json:"state"`
	Answers       Answers `json:"answers"`
	Submitted     bool    `json:"submitted"`
	ScrollEpoch   int     `json:"scrollEpoch"`
	PincodeNotice bool    `json:"pincodeNotice"`
}

// Wizard walks a Catalog one step at a time. The index always stays inside
// the catalog bounds.
type Wizard struct {
	catalog *Catalog
	snap    Snapshot
}

func NewWizard(catalog *Catalog) *Wizard {
	return &Wizard{
		catalog: catalog,
		snap: Snapshot{
			State:   StateAnswering,
			Answers: Answers{},
		},
	}
}

// Restore rebuilds a wizard from a snapshot, clamping the index into range.
func Restore(catalog *Catalog, snap Snapshot) *Wizard {
	if snap.Answers == nil {
		snap.Answers = Answers{}
	}
	if snap.State == "" {
		snap.State = StateAnswering
	}
	if snap.Index < 0 {
		snap.Index = 0
	}
	if snap.Index > catalog.Len()-1 {
		snap.Index = catalog.Len() - 1
	}
	return &Wizard{catalog: catalog, snap: snap}
}

func (w *Wizard) Snapshot() Snapshot {
	s := w.snap
	s.Answers = w.snap.Answers.Clone()
	return s
}

func (w *Wizard) Index() int { return w.snap.Index }
func (w *Wizard) State() State { return w.snap.State }
func (w *Wizard) Submitted() bool { return w.snap.Submitted }
func (w *Wizard) ScrollEpoch() int { return w.snap.ScrollEpoch }
func (w *Wizard) PincodeNotice() bool { return w.snap.PincodeNotice }
func (w *Wizard) Answers() Answers { return w.snap.Answers.Clone() }
func (w *Wizard) IsLastStep() bool { return w.snap.Index == w.catalog.Len()-1 }
func (w *Wizard) Catalog() *Catalog { return w.catalog }
func (w *Wizard) CanProceed() bool { return CanProceed(w.Current(), w.snap.Answers) }
func (w *Wizard) MissingKeys() []string { return Missing(w.Current(), w.snap.Answers) }

func (w *Wizard) Current() Step {
	step, _ := w.catalog.At(w.snap.Index)
	return step
}

func (w *Wizard) moveTo(index int) {
	w.snap.Index = index
	w.snap.ScrollEpoch++
}

// Set stores an answer for key after checking it fits the owning step.
func (w *Wizard) Set(key string, v Value) error {
	if w.snap.State != StateAnswering {
		return internal.ErrNotAnswering
	}

	step, ok := w.catalog.StepForKey(key)
	if !ok {
		return fmt.Errorf("%w: %s", internal.ErrStepNotFound, key)
	}

	if err := checkValue(step, key, v); err != nil {
		return err
	}

	w.snap.Answers.Set(key, sanitize(v))
	return nil
}

// Toggle flips a checkbox option, honouring the None exclusivity rule.
func (w *Wizard) Toggle(key, option string) error {
	if w.snap.State != StateAnswering {
		return internal.ErrNotAnswering
	}

	step, ok := w.catalog.StepForKey(key)
	if !ok {
		return fmt.Errorf("%w: %s", internal.ErrStepNotFound, key)
	}

	options := step.Options
	if key != step.ID {
		options = nil
		for _, b := range step.Branches {
			if b.ID == key && b.Input == InputChecklist {
				options = b.Options
			}
		}
	} else if step.Kind != KindCheckbox {
		options = nil
	}
	if !contains(options, option) {
		return fmt.Errorf("%w: %q is not an option of %s", internal.ErrInvalidAnswerValue, option, key)
	}

	w.snap.Answers.ToggleOption(key, option)
	return nil
}

type Transition struct {
	Advanced        bool
	SubmitRequested bool
}

// Next advances one step, or requests submission on the last step.
func (w *Wizard) Next() (Transition, error) {
	if w.snap.State != StateAnswering {
		return Transition{}, internal.ErrNotAnswering
	}

	current := w.Current()
	if missing := Missing(current, w.snap.Answers); len(missing) > 0 {
		return Transition{}, internal.ErrStepIncomplete{StepID: current.ID, Missing: missing}
	}

	if w.IsLastStep() {
		return Transition{SubmitRequested: true}, nil
	}

	w.moveTo(w.snap.Index + 1)
	return Transition{Advanced: true}, nil
}

// Back returns to the previous step keeping every answer.
func (w *Wizard) Back() error {
	if w.snap.State != StateAnswering {
		return internal.ErrNotAnswering
	}
	if w.snap.Index == 0 {
		return internal.ErrNoPreviousStep
	}
	w.moveTo(w.snap.Index - 1)
	return nil
}

// BeginSubmit enters the Submitting state. It fails while a submission is
// already running or after a successful one.
func (w *Wizard) BeginSubmit() error {
	switch {
	case w.snap.Submitted:
		return internal.ErrAlreadySubmitted
	case w.snap.State == StateSubmitting:
		return internal.ErrSubmitInFlight
	case w.snap.State != StateAnswering:
		return internal.ErrNotAnswering
	}

	for i := 0; i < w.catalog.Len(); i++ {
		step, _ := w.catalog.At(i)
		if missing := Missing(step, w.snap.Answers); len(missing) > 0 {
			return internal.ErrStepIncomplete{StepID: step.ID, Missing: missing}
		}
	}

	w.snap.State = StateSubmitting
	return nil
}

// FinishSubmit leaves Submitting. Both outcomes show the result; only a
// success is terminal.
func (w *Wizard) FinishSubmit(success bool) {
	if w.snap.State != StateSubmitting {
		return
	}
	w.snap.State = StateShowingResult
	if success {
		w.snap.Submitted = true
	}
}

// AbandonSubmit drops an in-flight submission that will never finish and
// returns to answering the last step.
func (w *Wizard) AbandonSubmit() {
	if w.snap.State == StateSubmitting {
		w.snap.State = StateAnswering
	}
}

// ShowPincodeNotice stops the quiz with the not-serviceable notice.
func (w *Wizard) ShowPincodeNotice() {
	if w.snap.State != StateAnswering {
		return
	}
	w.snap.PincodeNotice = true
	w.snap.State = StateShowingResult
}

// Restart goes back to the first step after a failed submission or a
// pincode notice. Answers are kept.
func (w *Wizard) Restart() error {
	if w.snap.Submitted {
		return internal.ErrAlreadySubmitted
	}
	if w.snap.State == StateSubmitting {
		return internal.ErrSubmitInFlight
	}
	w.snap.State = StateAnswering
	w.snap.PincodeNotice = false
	w.moveTo(0)
	return nil
}

func checkValue(step Step, key string, v Value) error {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: %s %s", internal.ErrInvalidAnswerValue, key, reason)
	}

	switch {
	case key != step.ID || step.Kind == KindGoalWeight || step.Kind == KindMixedProfile:
		for _, f := range step.Fields {
			if f.ID != key {
				continue
			}
			if f.ID == "height" && v.Kind() == ValueHeight {
				return nil
			}
			if v.Kind() != ValueText {
				return invalid("must be text")
			}
			if f.Input == InputSelect && !v.IsEmpty() && !contains(f.Options, v.Text()) {
				return invalid("is not an allowed option")
			}
			return nil
		}
		if step.Conditional != nil && step.Conditional.ID == key {
			if v.Kind() != ValueText {
				return invalid("must be text")
			}
			return nil
		}
		for _, b := range step.Branches {
			if b.ID != key {
				continue
			}
			if b.Input == InputChecklist {
				if v.Kind() != ValueList {
					return invalid("must be a list")
				}
				for _, item := range v.Items() {
					if !contains(b.Options, item) {
						return invalid("contains an unknown option")
					}
				}
				return nil
			}
			if v.Kind() != ValueText {
				return invalid("must be text")
			}
			return nil
		}
		return invalid("is unknown")

	case step.Kind == KindCheckbox:
		if v.Kind() != ValueList {
			return invalid("must be a list")
		}
		items := v.Items()
		for _, item := range items {
			if !contains(step.Options, item) {
				return invalid("contains an unknown option")
			}
		}
		if len(items) > 1 && v.Contains(NoneOption) {
			return invalid("cannot combine None with other options")
		}
		return nil

	default:
		if v.Kind() != ValueText {
			return invalid("must be text")
		}
		if !v.IsEmpty() && !contains(step.Options, v.Text()) {
			return invalid("is not an allowed option")
		}
		return nil
	}
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
