package rif

import (
	"errors"
	"testing"
)

func TestValidateForm_AcceptsWellFormedDefinition(t *testing.T) {
	if err := ValidateForm(testForm()); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}

func TestValidateForm_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *FormDefinition)
	}{
		{
			name:   "no sections",
			mutate: func(f *FormDefinition) { f.Sections = nil },
		},
		{
			name:   "duplicate section order",
			mutate: func(f *FormDefinition) { f.Sections[1].Order = f.Sections[0].Order },
		},
		{
			name:   "duplicate question key",
			mutate: func(f *FormDefinition) { f.Sections[1].Questions[0].QuestionKey = "country_operations" },
		},
		{
			name:   "duplicate question order within section",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[1].Order = 1 },
		},
		{
			name:   "empty question key",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[0].QuestionKey = " " },
		},
		{
			name:   "unknown question type",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[0].QuestionType = "SLIDER" },
		},
		{
			name:   "negative max points",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[0].MaxPoints = -1 },
		},
		{
			name:   "negative weightage",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[0].Weightage = -0.5 },
		},
		{
			name: "both showIf and hideIf on a section",
			mutate: func(f *FormDefinition) {
				f.Sections[1].HideIf = &Condition{Op: OpEquals, QuestionKey: "country_operations", Value: "USA"}
			},
		},
		{
			name: "both showIf and hideIf on a question",
			mutate: func(f *FormDefinition) {
				f.Sections[0].Questions[4].HideIf = &Condition{Op: OpEquals, QuestionKey: "country_operations", Value: "USA"}
			},
		},
		{
			name:   "choice question without choices",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[0].Choices = nil },
		},
		{
			name: "choices on a text question",
			mutate: func(f *FormDefinition) {
				f.Sections[0].Questions[3].Choices = []Choice{{Value: "x", Label: "x"}}
			},
		},
		{
			name:   "duplicate choice values",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[0].Choices[1].Value = "USA" },
		},
		{
			name:   "number question without buckets",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[2].RiskBuckets = nil },
		},
		{
			name: "buckets on a choice question",
			mutate: func(f *FormDefinition) {
				f.Sections[0].Questions[0].RiskBuckets = []RiskBucket{{Min: 0, Max: 1, RiskScore: 1}}
			},
		},
		{
			name:   "inverted bucket",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[2].RiskBuckets[0].Max = -1 },
		},
		{
			name:   "overlapping buckets",
			mutate: func(f *FormDefinition) { f.Sections[0].Questions[2].RiskBuckets[1].Min = 20000 },
		},
		{
			name: "composite condition without children",
			mutate: func(f *FormDefinition) {
				f.Sections[1].ShowIf = &Condition{Op: OpAnd}
			},
		},
		{
			name: "composite condition with leaf fields",
			mutate: func(f *FormDefinition) {
				f.Sections[1].ShowIf = &Condition{Op: OpOr, QuestionKey: "country_operations",
					Conditions: []*Condition{{Op: OpEquals, QuestionKey: "country_operations", Value: "USA"}}}
			},
		},
		{
			name: "leaf condition without question key",
			mutate: func(f *FormDefinition) {
				f.Sections[1].ShowIf = &Condition{Op: OpEquals, Value: "USA"}
			},
		},
		{
			name: "IN condition with empty values",
			mutate: func(f *FormDefinition) {
				f.Sections[1].ShowIf = &Condition{Op: OpIn, QuestionKey: "country_operations"}
			},
		},
		{
			name: "unknown operator",
			mutate: func(f *FormDefinition) {
				f.Sections[1].ShowIf = &Condition{Op: "XOR", Conditions: []*Condition{
					{Op: OpEquals, QuestionKey: "country_operations", Value: "USA"}}}
			},
		},
		{
			name: "condition referencing unknown question key",
			mutate: func(f *FormDefinition) {
				f.Sections[1].ShowIf = &Condition{Op: OpEquals, QuestionKey: "no_such_question", Value: "x"}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			form := testForm()
			tc.mutate(form)
			err := ValidateForm(form)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got %v", err)
			}
		})
	}
}

func TestParseFormDefinition(t *testing.T) {
	good := `{
		"formKey": "vendor-risk-intake",
		"title": "Vendor Risk Intake",
		"version": 1,
		"sections": [
			{
				"id": 1,
				"title": "Profile",
				"order": 1,
				"questions": [
					{
						"id": 11,
						"sectionId": 1,
						"questionKey": "country_operations",
						"questionText": "Primary country of operations",
						"questionType": "SINGLE_CHOICE",
						"order": 1,
						"maxPoints": 3,
						"weightage": 1.0,
						"choices": [
							{"value": "USA", "label": "United States"},
							{"value": "Russia", "label": "Russia", "riskScore": 3}
						]
					},
					{
						"id": 12,
						"sectionId": 1,
						"questionKey": "contract_value",
						"questionText": "Annual contract value",
						"questionType": "NUMBER",
						"order": 2,
						"maxPoints": 3,
						"riskScoring": [
							{"min": 0, "max": 25000, "riskScore": 1},
							{"min": 25001, "max": 100000, "riskScore": 2}
						]
					}
				]
			}
		]
	}`

	form, err := ParseFormDefinition([]byte(good))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	if form.Version != 1 || len(form.Sections) != 1 || len(form.Sections[0].Questions) != 2 {
		t.Fatalf("unexpected parsed form: %+v", form)
	}
	q := form.QuestionByKey("country_operations")
	if q == nil || q.Choices[1].RiskScore == nil || *q.Choices[1].RiskScore != 3 {
		t.Fatalf("expected Russia choice risk score 3, got %+v", q)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "invalid json", raw: `{"sections":`},
		{name: "unknown field rejected", raw: `{"sections": [], "pages": []}`},
		{name: "fails validation", raw: `{"formKey":"x","sections":[]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseFormDefinition([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
