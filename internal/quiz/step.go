package quiz

import (
	"fmt"

	"slimwell/intake-backend/internal"
)

type Kind string

const (
	KindMixedProfile     Kind = "mixed-profile"
	KindGoalWeight       Kind = "goal-weight"
	KindCheckbox         Kind = "checkbox"
	KindRadio            Kind = "radio"
	KindRadioConditional Kind = "radio-conditional"
	KindRadioBranch      Kind = "radio-branch"
)

type InputType string

const (
	InputText      InputType = "text"
	InputNumber    InputType = "number"
	InputEmail     InputType = "email"
	InputSelect    InputType = "select"
	InputTextarea  InputType = "textarea"
	InputChecklist InputType = "checklist"
)

// NoneOption is mutually exclusive with every other option of a checkbox step.
const NoneOption = "None"

// ConditionalTrigger is the radio answer that reveals a conditional detail field.
const ConditionalTrigger = "Yes"

// Field is one input of a composite step. Its ID is the answer key.
type Field struct {
	ID              string    `json:"id"`
	Label           string    `json:"label"`
	Input           InputType `json:"input"`
	Options         []string  `json:"options,omitempty"`
	Unit            string    `json:"unit,omitempty"`
	SubmissionLabel string    `json:"-"`
}

// Conditional is the detail field revealed when the radio answer equals Trigger.
type Conditional struct {
	ID              string    `json:"id"`
	Trigger         string    `json:"trigger"`
	Question        string    `json:"question"`
	Input           InputType `json:"input"`
	SubmissionLabel string    `json:"-"`
}

// Branch is the follow-up revealed when the radio answer equals Option.
type Branch struct {
	ID              string    `json:"id"`
	Option          string    `json:"option"`
	Question        string    `json:"question"`
	Input           InputType `json:"input"`
	Options         []string  `json:"options,omitempty"`
	SubmissionLabel string    `json:"-"`
}

type Step struct {
	ID              string       `json:"id"`
	Kind            Kind         `json:"kind"`
	Question        string       `json:"question,omitempty"`
	Description     string       `json:"description,omitempty"`
	Options         []string     `json:"options,omitempty"`
	Fields          []Field      `json:"fields,omitempty"`
	Conditional     *Conditional `json:"conditional,omitempty"`
	Branches        []Branch     `json:"branches,omitempty"`
	SubmissionLabel string       `json:"-"`
}

// Entry maps one answer key to the question text sent on submission.
// Entries that belong to a reveal are only emitted while Parent holds UnlockedBy.
type Entry struct {
	Key        string
	Label      string
	Parent     string
	UnlockedBy string
}

// Catalog is the ordered, immutable list of quiz steps.
type Catalog struct {
	steps   []Step
	index   map[string]int
	entries []Entry
	keys    map[string]Entry
	labels  map[string]string
}

// NewCatalog checks that every answer key produced by steps has a
// submission label and that keys are unique.
func NewCatalog(steps []Step) (*Catalog, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: catalog has no steps", internal.ErrValidationFailed)
	}

	c := &Catalog{
		steps:  steps,
		index:  make(map[string]int, len(steps)),
		keys:   make(map[string]Entry),
		labels: make(map[string]string),
	}

	add := func(e Entry) error {
		if e.Label == "" {
			return fmt.Errorf("%w: %s", internal.ErrMissingSubmissionLabel, e.Key)
		}
		if _, ok := c.keys[e.Key]; ok {
			return fmt.Errorf("%w: duplicate answer key %s", internal.ErrValidationFailed, e.Key)
		}
		c.entries = append(c.entries, e)
		c.keys[e.Key] = e
		c.labels[e.Label] = e.Key
		return nil
	}

	for i, step := range steps {
		if _, ok := c.index[step.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate step id %s", internal.ErrValidationFailed, step.ID)
		}
		c.index[step.ID] = i

		switch step.Kind {
		case KindMixedProfile, KindGoalWeight:
			if len(step.Fields) == 0 {
				return nil, fmt.Errorf("%w: step %s has no fields", internal.ErrValidationFailed, step.ID)
			}
			for _, f := range step.Fields {
				if err := add(Entry{Key: f.ID, Label: f.SubmissionLabel}); err != nil {
					return nil, err
				}
			}
		case KindCheckbox, KindRadio:
			if err := add(Entry{Key: step.ID, Label: step.SubmissionLabel}); err != nil {
				return nil, err
			}
		case KindRadioConditional:
			if step.Conditional == nil {
				return nil, fmt.Errorf("%w: step %s has no conditional field", internal.ErrValidationFailed, step.ID)
			}
			if err := add(Entry{Key: step.ID, Label: step.SubmissionLabel}); err != nil {
				return nil, err
			}
			cond := step.Conditional
			if err := add(Entry{Key: cond.ID, Label: cond.SubmissionLabel, Parent: step.ID, UnlockedBy: cond.Trigger}); err != nil {
				return nil, err
			}
		case KindRadioBranch:
			if len(step.Branches) != 2 {
				return nil, fmt.Errorf("%w: step %s needs exactly two branches", internal.ErrValidationFailed, step.ID)
			}
			if err := add(Entry{Key: step.ID, Label: step.SubmissionLabel}); err != nil {
				return nil, err
			}
			for _, b := range step.Branches {
				if err := add(Entry{Key: b.ID, Label: b.SubmissionLabel, Parent: step.ID, UnlockedBy: b.Option}); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("%w: step %s has unknown kind %q", internal.ErrValidationFailed, step.ID, step.Kind)
		}
	}

	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.steps)
}

func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

func (c *Catalog) At(i int) (Step, bool) {
	if i < 0 || i >= len(c.steps) {
		return Step{}, false
	}
	return c.steps[i], true
}

func (c *Catalog) Step(id string) (Step, bool) {
	i, ok := c.index[id]
	if !ok {
		return Step{}, false
	}
	return c.steps[i], true
}

// Entries returns the answer keys in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Entry(key string) (Entry, bool) {
	e, ok := c.keys[key]
	return e, ok
}

// KeyForLabel resolves a submitted question text back to its answer key.
func (c *Catalog) KeyForLabel(label string) (string, bool) {
	key, ok := c.labels[label]
	return key, ok
}

// StepForKey returns the step that owns an answer key.
func (c *Catalog) StepForKey(key string) (Step, bool) {
	if step, ok := c.Step(key); ok {
		return step, true
	}
	for _, step := range c.steps {
		for _, f := range step.Fields {
			if f.ID == key {
				return step, true
			}
		}
		if step.Conditional != nil && step.Conditional.ID == key {
			return step, true
		}
		for _, b := range step.Branches {
			if b.ID == key {
				return step, true
			}
		}
	}
	return Step{}, false
}
