package rif

import (
	"sort"
	"strings"
)

// QuestionType tells the engine how to interpret a question's answer and
// its option payload.
type QuestionType string

const (
	TypeText           QuestionType = "TEXT"
	TypeTextarea       QuestionType = "TEXTAREA"
	TypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	TypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TypeDropdown       QuestionType = "DROPDOWN"
	TypeDate           QuestionType = "DATE"
	TypeBoolean        QuestionType = "BOOLEAN"
	TypeNumber         QuestionType = "NUMBER"
)

// IsChoiceBased reports whether the question type carries a choices payload.
func (t QuestionType) IsChoiceBased() bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeDropdown, TypeBoolean:
		return true
	}
	return false
}

// IsScorable reports whether answers of this type can ever contribute to the
// risk score. Free text and dates exist for record keeping only.
func (t QuestionType) IsScorable() bool {
	switch t {
	case TypeText, TypeTextarea, TypeDate:
		return false
	}
	return true
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// FormDefinition is one immutable version of a risk intake form. The JSON
// shape matches the definition documents stored per form version.
type FormDefinition struct {
	FormKey  string    `json:"formKey"`
	Title    string    `json:"title"`
	Version  int       `json:"version"`
	Sections []Section `json:"sections"`
}

type Section struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Order      int        `json:"order"`
	IsRequired bool       `json:"isRequired"`
	ShowIf     *Condition `json:"showIf,omitempty"`
	HideIf     *Condition `json:"hideIf,omitempty"`
	Questions  []Question `json:"questions"`
}

type Question struct {
	ID           int64        `json:"id"`
	SectionID    int64        `json:"sectionId"`
	QuestionKey  string       `json:"questionKey"`
	QuestionText string       `json:"questionText"`
	QuestionType QuestionType `json:"questionType"`
	IsRequired   bool         `json:"isRequired"`
	Order        int          `json:"order"`
	MaxPoints    int          `json:"maxPoints"`
	Weightage    float64      `json:"weightage"`
	ShowIf       *Condition   `json:"showIf,omitempty"`
	HideIf       *Condition   `json:"hideIf,omitempty"`
	Choices      []Choice     `json:"choices,omitempty"`
	RiskBuckets  []RiskBucket `json:"riskScoring,omitempty"`
}

// Choice is one selectable option. RiskScore defaults to zero for purely
// informational options. Subcategories carry no risk metadata; the top-level
// choice's RiskScore is authoritative for scoring.
type Choice struct {
	Value         string   `json:"value"`
	Label         string   `json:"label"`
	RiskScore     *int     `json:"riskScore,omitempty"`
	ControlScore  *int     `json:"controlScore,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
}

// RiskBucket maps a numeric answer range to a risk score. Containment is
// inclusive on both ends; the first matching bucket wins.
type RiskBucket struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	RiskScore int     `json:"riskScore"`
}

// Answer holds one respondent value. Scalar answers (text, single choice,
// boolean-as-string, numeric string) use Text; multi-choice answers use List
// with IsList set.
type Answer struct {
	QuestionID int64
	Text       string
	List       []string
	IsList     bool
}

// TextAnswer builds a scalar answer.
func TextAnswer(questionID int64, value string) Answer {
	return Answer{QuestionID: questionID, Text: value}
}

// ListAnswer builds a multi-choice answer.
func ListAnswer(questionID int64, values []string) Answer {
	return Answer{QuestionID: questionID, List: values, IsList: true}
}

// IsEmpty reports whether the answer carries no usable value. Empty answers
// are treated the same as unanswered questions.
func (a Answer) IsEmpty() bool {
	if a.IsList {
		return len(a.List) == 0
	}
	return strings.TrimSpace(a.Text) == ""
}

// AnswerSet maps question IDs to answers for one submission.
type AnswerSet map[int64]Answer

// ScoreResult is the immutable outcome of scoring one finalized AnswerSet.
// Recomputation appends a new result; existing results are never mutated.
type ScoreResult struct {
	RawScore         float64   `json:"raw_score"`
	MaxPossibleScore float64   `json:"max_possible_score"`
	NormalizedScore  int       `json:"normalized_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Warnings         []string  `json:"warnings,omitempty"`
}

// Weight returns the question's effective multiplier. Zero means the
// definition left weightage out entirely and defaults to 1.0, which is why
// validation only rejects negative values.
func (q *Question) Weight() float64 {
	if q.Weightage <= 0 {
		return 1.0
	}
	return q.Weightage
}

// SortedSections returns the sections ordered by their declared Order. The
// engine sorts defensively instead of trusting storage order.
func (f *FormDefinition) SortedSections() []Section {
	out := append([]Section(nil), f.Sections...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SortedQuestions returns the section's questions ordered by Order.
func (s *Section) SortedQuestions() []Question {
	out := append([]Question(nil), s.Questions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// QuestionByKey resolves a questionKey to its question, or nil when the key
// does not exist in this form.
func (f *FormDefinition) QuestionByKey(key string) *Question {
	for si := range f.Sections {
		for qi := range f.Sections[si].Questions {
			if f.Sections[si].Questions[qi].QuestionKey == key {
				return &f.Sections[si].Questions[qi]
			}
		}
	}
	return nil
}
