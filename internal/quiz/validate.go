package quiz

// Missing lists the answer keys that keep step from passing its validation
// predicate. An empty result means Next is allowed.
func Missing(step Step, answers Answers) []string {
	var missing []string
	empty := func(key string) bool {
		v, ok := answers[key]
		return !ok || v.IsEmpty()
	}

	switch step.Kind {
	case KindMixedProfile, KindGoalWeight:
		for _, f := range step.Fields {
			if empty(f.ID) {
				missing = append(missing, f.ID)
			}
		}

	case KindCheckbox:
		if v, ok := answers[step.ID]; !ok || v.Kind() != ValueList || v.IsEmpty() {
			missing = append(missing, step.ID)
		}

	case KindRadio:
		if empty(step.ID) {
			missing = append(missing, step.ID)
		}

	case KindRadioConditional:
		if empty(step.ID) {
			missing = append(missing, step.ID)
			break
		}
		cond := step.Conditional
		if cond != nil && answers.Text(step.ID) == cond.Trigger && empty(cond.ID) {
			missing = append(missing, cond.ID)
		}

	case KindRadioBranch:
		if empty(step.ID) {
			missing = append(missing, step.ID)
			break
		}
		selected := answers.Text(step.ID)
		for _, b := range step.Branches {
			if selected != b.Option {
				continue
			}
			v, ok := answers[b.ID]
			switch b.Input {
			case InputChecklist:
				if !ok || v.Kind() != ValueList || v.IsEmpty() {
					missing = append(missing, b.ID)
				}
			default:
				if !ok || v.IsEmpty() {
					missing = append(missing, b.ID)
				}
			}
		}
	}

	return missing
}

// CanProceed is the Next-enabled predicate for step.
func CanProceed(step Step, answers Answers) bool {
	return len(Missing(step, answers)) == 0
}

// Revealed reports whether the detail field for key is currently shown,
// that is its parent answer holds the unlocking option.
func Revealed(entry Entry, answers Answers) bool {
	if entry.Parent == "" {
		return true
	}
	return answers.Text(entry.Parent) == entry.UnlockedBy
}
