package rif

import (
	"reflect"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

// testForm mirrors the shape of a production risk intake form: a vendor
// profile section and a sanctions section that only activates for high-risk
// jurisdictions or sensitive data handling.
func testForm() *FormDefinition {
	return &FormDefinition{
		FormKey: "vendor-risk-intake",
		Title:   "Vendor Risk Intake",
		Version: 1,
		Sections: []Section{
			{
				ID:    1,
				Title: "Vendor Profile",
				Order: 1,
				Questions: []Question{
					{
						ID: 101, SectionID: 1, QuestionKey: "country_operations",
						QuestionType: TypeSingleChoice, Order: 1, MaxPoints: 3, Weightage: 1.0,
						Choices: []Choice{
							{Value: "USA", Label: "United States"},
							{Value: "Germany", Label: "Germany", RiskScore: intPtr(1)},
							{Value: "Russia", Label: "Russia", RiskScore: intPtr(3)},
							{Value: "Iran", Label: "Iran", RiskScore: intPtr(3)},
						},
					},
					{
						ID: 102, SectionID: 1, QuestionKey: "data_categories",
						QuestionType: TypeMultipleChoice, Order: 2, MaxPoints: 3, Weightage: 3.0,
						Choices: []Choice{
							{Value: "Public", Label: "Public"},
							{Value: "Personal", Label: "Personal", RiskScore: intPtr(2)},
							{Value: "Sensitive Personal/Health", Label: "Sensitive Personal/Health", RiskScore: intPtr(3)},
						},
					},
					{
						ID: 103, SectionID: 1, QuestionKey: "contract_value",
						QuestionType: TypeNumber, Order: 3, MaxPoints: 3, Weightage: 1.0,
						RiskBuckets: []RiskBucket{
							{Min: 0, Max: 25000, RiskScore: 1},
							{Min: 25001, Max: 100000, RiskScore: 2},
							{Min: 100001, Max: 999999999, RiskScore: 3},
						},
					},
					{
						ID: 104, SectionID: 1, QuestionKey: "vendor_notes",
						QuestionType: TypeTextarea, Order: 4, MaxPoints: 0, Weightage: 1.0,
					},
					{
						ID: 105, SectionID: 1, QuestionKey: "transfer_mechanism",
						QuestionType: TypeSingleChoice, Order: 5, MaxPoints: 3, Weightage: 1.0,
						ShowIf: &Condition{Op: OpIncludesAny, QuestionKey: "data_categories",
							Values: []string{"Personal", "Sensitive Personal/Health"}},
						Choices: []Choice{
							{Value: "SCCs", Label: "Standard Contractual Clauses"},
							{Value: "None", Label: "No transfer mechanism", RiskScore: intPtr(3)},
						},
					},
				},
			},
			{
				ID:    2,
				Title: "Sanctions Exposure",
				Order: 2,
				ShowIf: &Condition{Op: OpOr, Conditions: []*Condition{
					{Op: OpIn, QuestionKey: "country_operations", Values: []string{"Russia", "Iran"}},
					{Op: OpIncludes, QuestionKey: "data_categories", Value: "Sensitive Personal/Health"},
				}},
				Questions: []Question{
					{
						ID: 201, SectionID: 2, QuestionKey: "sanctions_history",
						QuestionType: TypeBoolean, Order: 1, MaxPoints: 2, Weightage: 2.0,
						Choices: []Choice{
							{Value: "true", Label: "Yes", RiskScore: intPtr(2)},
							{Value: "false", Label: "No"},
						},
					},
				},
			},
		},
	}
}

func TestComputeScore_SingleChoiceHighRisk(t *testing.T) {
	answers := AnswerSet{101: TextAnswer(101, "Russia")}
	got := ComputeScore(testForm(), answers, DefaultThresholds())

	if got.RawScore != 3 {
		t.Fatalf("expected raw score 3, got %v", got.RawScore)
	}
	if got.MaxPossibleScore != 3 {
		t.Fatalf("expected max possible 3, got %v", got.MaxPossibleScore)
	}
	if got.NormalizedScore != 100 {
		t.Fatalf("expected normalized 100, got %d", got.NormalizedScore)
	}
	if got.RiskLevel != RiskHigh {
		t.Fatalf("expected HIGH, got %s", got.RiskLevel)
	}
	if len(got.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", got.Warnings)
	}
}

func TestComputeScore_HiddenSectionContributesNothing(t *testing.T) {
	// USA does not trigger the sanctions section, so the answer recorded
	// inside it must not reach the score in either numerator or denominator.
	answers := AnswerSet{
		101: TextAnswer(101, "USA"),
		201: TextAnswer(201, "true"),
	}
	got := ComputeScore(testForm(), answers, DefaultThresholds())

	if got.RawScore != 0 {
		t.Fatalf("expected raw score 0, got %v", got.RawScore)
	}
	if got.MaxPossibleScore != 3 {
		t.Fatalf("expected max possible 3 (profile question only), got %v", got.MaxPossibleScore)
	}
	if got.RiskLevel != RiskLow {
		t.Fatalf("expected LOW, got %s", got.RiskLevel)
	}
}

func TestComputeScore_TogglingGateCannotIncreaseRawScore(t *testing.T) {
	form := testForm()
	active := AnswerSet{
		101: TextAnswer(101, "Russia"),
		201: TextAnswer(201, "true"),
	}
	inactive := AnswerSet{
		101: TextAnswer(101, "USA"),
		201: TextAnswer(201, "true"),
	}

	withSection := ComputeScore(form, active, DefaultThresholds())
	withoutSection := ComputeScore(form, inactive, DefaultThresholds())

	if withSection.RawScore != 7 { // 3 (Russia) + 2*2.0 (sanctions history)
		t.Fatalf("expected raw score 7 with active section, got %v", withSection.RawScore)
	}
	if withoutSection.RawScore > withSection.RawScore {
		t.Fatalf("hiding the section increased raw score: %v > %v",
			withoutSection.RawScore, withSection.RawScore)
	}
}

func TestComputeScore_MultiChoiceWorstCaseNotSum(t *testing.T) {
	answers := AnswerSet{
		102: ListAnswer(102, []string{"Personal", "Sensitive Personal/Health"}),
	}
	got := ComputeScore(testForm(), answers, DefaultThresholds())

	if got.RawScore != 9 { // max(2,3) * 3.0, not (2+3) * 3.0
		t.Fatalf("expected raw score 9, got %v", got.RawScore)
	}
	if got.MaxPossibleScore != 9 {
		t.Fatalf("expected max possible 9, got %v", got.MaxPossibleScore)
	}
}

func TestComputeScore_NumericBuckets(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantRaw  float64
		wantWarn bool
	}{
		{name: "lower bucket upper bound", value: "25000", wantRaw: 1},
		{name: "next bucket lower bound", value: "25001", wantRaw: 2},
		{name: "top bucket", value: "5000000", wantRaw: 3},
		{name: "below all buckets", value: "-5", wantRaw: 0, wantWarn: true},
		{name: "not a number", value: "a lot", wantRaw: 0, wantWarn: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := AnswerSet{103: TextAnswer(103, tc.value)}
			got := ComputeScore(testForm(), answers, DefaultThresholds())
			if got.RawScore != tc.wantRaw {
				t.Fatalf("expected raw score %v, got %v", tc.wantRaw, got.RawScore)
			}
			if tc.wantWarn {
				if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "question 103") {
					t.Fatalf("expected one warning naming question 103, got %v", got.Warnings)
				}
			} else if len(got.Warnings) != 0 {
				t.Fatalf("expected no warnings, got %v", got.Warnings)
			}
		})
	}
}

func TestComputeScore_QuestionGate(t *testing.T) {
	// transfer_mechanism only activates when personal data is in scope.
	hidden := ComputeScore(testForm(), AnswerSet{
		102: ListAnswer(102, []string{"Public"}),
		105: TextAnswer(105, "None"),
	}, DefaultThresholds())
	if hidden.RawScore != 0 {
		t.Fatalf("expected gated question to contribute 0, got raw %v", hidden.RawScore)
	}
	if hidden.MaxPossibleScore != 9 {
		t.Fatalf("expected max possible 9 (data categories only), got %v", hidden.MaxPossibleScore)
	}

	visible := ComputeScore(testForm(), AnswerSet{
		102: ListAnswer(102, []string{"Personal"}),
		105: TextAnswer(105, "None"),
	}, DefaultThresholds())
	if visible.RawScore != 9 { // 2*3.0 + 3*1.0
		t.Fatalf("expected raw score 9 with gate open, got %v", visible.RawScore)
	}
}

func TestComputeScore_FreeTextNeverContributes(t *testing.T) {
	got := ComputeScore(testForm(), AnswerSet{
		104: TextAnswer(104, "long running partnership, no incidents"),
	}, DefaultThresholds())
	if got.RawScore != 0 || got.MaxPossibleScore != 0 {
		t.Fatalf("expected free text to contribute nothing, got raw=%v max=%v",
			got.RawScore, got.MaxPossibleScore)
	}
	if got.NormalizedScore != 0 || got.RiskLevel != RiskLow {
		t.Fatalf("expected normalized 0 LOW on zero denominator, got %d %s",
			got.NormalizedScore, got.RiskLevel)
	}
}

func TestComputeScore_EmptyAnswerSet(t *testing.T) {
	got := ComputeScore(testForm(), AnswerSet{}, DefaultThresholds())
	want := ScoreResult{RawScore: 0, MaxPossibleScore: 0, NormalizedScore: 0, RiskLevel: RiskLow}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestComputeScore_Idempotent(t *testing.T) {
	form := testForm()
	answers := AnswerSet{
		101: TextAnswer(101, "Iran"),
		102: ListAnswer(102, []string{"Personal"}),
		103: TextAnswer(103, "1234567"),
		201: TextAnswer(201, "false"),
	}
	first := ComputeScore(form, answers, DefaultThresholds())
	second := ComputeScore(form, answers, DefaultThresholds())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestComputeScore_ContributionCappedAtMaxPoints(t *testing.T) {
	form := &FormDefinition{
		FormKey: "cap-check",
		Version: 1,
		Sections: []Section{
			{
				ID:    1,
				Title: "Profile",
				Order: 1,
				Questions: []Question{
					{
						ID: 1, SectionID: 1, QuestionKey: "hosting_region",
						QuestionType: TypeSingleChoice, Order: 1, MaxPoints: 3, Weightage: 1.0,
						Choices: []Choice{
							{Value: "EU", Label: "EU"},
							{Value: "Offshore", Label: "Offshore", RiskScore: intPtr(5)},
						},
					},
				},
			},
		},
	}

	got := ComputeScore(form, AnswerSet{1: TextAnswer(1, "Offshore")}, DefaultThresholds())

	if got.RawScore != 3 {
		t.Fatalf("expected raw score capped at 3, got %v", got.RawScore)
	}
	if got.RawScore > got.MaxPossibleScore {
		t.Fatalf("raw score %v exceeds max possible %v", got.RawScore, got.MaxPossibleScore)
	}
	if got.NormalizedScore < 0 || got.NormalizedScore > 100 {
		t.Fatalf("normalized score %d outside 0-100", got.NormalizedScore)
	}
	if got.NormalizedScore != 100 {
		t.Fatalf("expected normalized 100, got %d", got.NormalizedScore)
	}
}

func TestQuestionWeightDefaultsWhenUnset(t *testing.T) {
	q := Question{}
	if q.Weight() != 1.0 {
		t.Fatalf("expected unset weightage to default to 1.0, got %v", q.Weight())
	}
	q.Weightage = 2.5
	if q.Weight() != 2.5 {
		t.Fatalf("expected declared weightage 2.5, got %v", q.Weight())
	}
}

func TestThresholds_Level(t *testing.T) {
	tests := []struct {
		name       string
		th         Thresholds
		normalized int
		want       RiskLevel
	}{
		{name: "default below medium", th: DefaultThresholds(), normalized: 39, want: RiskLow},
		{name: "default medium lower bound", th: DefaultThresholds(), normalized: 40, want: RiskMedium},
		{name: "default medium upper bound", th: DefaultThresholds(), normalized: 70, want: RiskMedium},
		{name: "default above high", th: DefaultThresholds(), normalized: 71, want: RiskHigh},
		{name: "custom tiers", th: Thresholds{Medium: 20, High: 50}, normalized: 51, want: RiskHigh},
		{name: "custom tiers medium", th: Thresholds{Medium: 20, High: 50}, normalized: 20, want: RiskMedium},
		{name: "invalid tiers fall back to defaults", th: Thresholds{Medium: 0, High: 0}, normalized: 45, want: RiskMedium},
		{name: "inverted tiers fall back to defaults", th: Thresholds{Medium: 80, High: 10}, normalized: 5, want: RiskLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.th.Level(tc.normalized); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
