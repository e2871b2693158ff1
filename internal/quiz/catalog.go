package quiz

var yesNo = []string{"Yes", "No"}

// DefaultSteps is the intake questionnaire shown to every visitor.
func DefaultSteps() []Step {
	return []Step{
		{
			ID:   "profile",
			Kind: KindMixedProfile,
			Fields: []Field{
				{ID: "name", Label: "Full name", Input: InputText, SubmissionLabel: "Name"},
				{ID: "age", Label: "Age", Input: InputNumber, Unit: "years", SubmissionLabel: "Age"},
				{ID: "gender", Label: "Gender", Input: InputSelect, Options: []string{"Male", "Female", "Other"}, SubmissionLabel: "Gender"},
				{ID: "height", Label: "Height", Input: InputNumber, Unit: "inches", SubmissionLabel: "Height (inches)"},
				{ID: "currentWeight", Label: "Current weight", Input: InputNumber, Unit: "kg", SubmissionLabel: "Current Weight (kg)"},
				{ID: "email", Label: "Email", Input: InputEmail, SubmissionLabel: "Email"},
				{ID: "pincode", Label: "Pincode", Input: InputNumber, SubmissionLabel: "Pincode"},
			},
		},
		{
			ID:   "goalWeight",
			Kind: KindGoalWeight,
			Fields: []Field{
				{ID: "goalWeight", Label: "Goal weight", Input: InputNumber, Unit: "kg", SubmissionLabel: "Goal Weight (kg)"},
			},
		},
		{
			ID:       "medicalConditions",
			Kind:     KindCheckbox,
			Question: "Do you have any of the following medical conditions?",
			Options: []string{
				"Type 2 Diabetes",
				"Prediabetes",
				"High Blood Pressure",
				"High Cholesterol",
				"Fatty Liver",
				"PCOS",
				"Sleep Apnea",
				"Heart Blockage/Stroke",
				NoneOption,
			},
			SubmissionLabel: "Do you have any of the following medical conditions?",
		},
		{
			ID:              "cancerHistory",
			Kind:            KindRadioConditional,
			Question:        "Have you or anyone in your family been diagnosed with medullary thyroid cancer or MEN2?",
			Options:         yesNo,
			SubmissionLabel: "Personal or family history of medullary thyroid cancer or MEN2?",
			Conditional: &Conditional{
				ID:              "cancerHistoryDetails",
				Trigger:         ConditionalTrigger,
				Question:        "Please share the details",
				Input:           InputTextarea,
				SubmissionLabel: "Cancer history details",
			},
		},
		{
			ID:              "pancreatitis",
			Kind:            KindRadio,
			Question:        "Have you ever had pancreatitis?",
			Options:         yesNo,
			SubmissionLabel: "Have you ever had pancreatitis?",
		},
		{
			ID:              "pregnancy",
			Kind:            KindRadio,
			Question:        "Are you currently pregnant, breastfeeding, or planning a pregnancy?",
			Options:         []string{"Yes", "No", "Not applicable"},
			SubmissionLabel: "Pregnant, breastfeeding, or planning a pregnancy?",
		},
		{
			ID:              "currentMedications",
			Kind:            KindRadioConditional,
			Question:        "Are you currently taking any prescription medications?",
			Options:         yesNo,
			SubmissionLabel: "Currently taking prescription medications?",
			Conditional: &Conditional{
				ID:              "currentMedicationsDetails",
				Trigger:         ConditionalTrigger,
				Question:        "Please list the medications and doses",
				Input:           InputTextarea,
				SubmissionLabel: "Current medications",
			},
		},
		{
			ID:              "allergies",
			Kind:            KindRadioConditional,
			Question:        "Do you have any known drug allergies?",
			Options:         yesNo,
			SubmissionLabel: "Known drug allergies?",
			Conditional: &Conditional{
				ID:              "allergiesDetails",
				Trigger:         ConditionalTrigger,
				Question:        "Which medicines are you allergic to?",
				Input:           InputTextarea,
				SubmissionLabel: "Allergy details",
			},
		},
		{
			ID:              "previousWeightLoss",
			Kind:            KindRadioBranch,
			Question:        "Have you tried to lose weight before?",
			Options:         []string{"Yes, with medication", "Yes, without medication", "No"},
			SubmissionLabel: "Previous weight loss attempts",
			Branches: []Branch{
				{
					ID:              "previousWeightLossMedication",
					Option:          "Yes, with medication",
					Question:        "Which medication did you use?",
					Input:           InputText,
					SubmissionLabel: "Previous weight loss medication",
				},
				{
					ID:              "previousWeightLossMethods",
					Option:          "Yes, without medication",
					Question:        "What did you try?",
					Input:           InputChecklist,
					Options:         []string{"Diet", "Exercise", "Yoga", "Intermittent Fasting", "Meal Replacement", "Other"},
					SubmissionLabel: "Previous weight loss methods",
				},
			},
		},
		{
			ID:       "eatingHabits",
			Kind:     KindCheckbox,
			Question: "Which of these describe your eating habits?",
			Options: []string{
				"Late-night snacking",
				"Emotional eating",
				"Skipping meals",
				"Frequent outside food",
				"Sugary drinks",
				NoneOption,
			},
			SubmissionLabel: "Eating habits",
		},
		{
			ID:       "activityLevel",
			Kind:     KindRadio,
			Question: "How active are you on a typical day?",
			Options: []string{
				"Sedentary (little or no exercise)",
				"Lightly active (1-3 days a week)",
				"Moderately active (3-5 days a week)",
				"Very active (6-7 days a week)",
			},
			SubmissionLabel: "Activity level",
		},
		{
			ID:              "sleepHours",
			Kind:            KindRadio,
			Question:        "How many hours do you sleep each night?",
			Options:         []string{"Less than 5 hours", "5-7 hours", "7-9 hours", "More than 9 hours"},
			SubmissionLabel: "Average sleep per night",
		},
		{
			ID:              "substanceUse",
			Kind:            KindCheckbox,
			Question:        "Do you consume any of the following?",
			Options:         []string{"Alcohol", "Cigarettes", "Smokeless tobacco", NoneOption},
			SubmissionLabel: "Alcohol and tobacco use",
		},
		{
			ID:       "motivation",
			Kind:     KindRadio,
			Question: "What is your main reason for wanting to lose weight?",
			Options: []string{
				"Improve my health",
				"Feel more confident",
				"Manage a medical condition",
				"Have more energy",
				"Other",
			},
			SubmissionLabel: "Main motivation",
		},
	}
}

// MustDefaultCatalog builds the default catalog and panics if a step is
// missing its submission label.
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultSteps())
	if err != nil {
		panic(err)
	}
	return c
}
