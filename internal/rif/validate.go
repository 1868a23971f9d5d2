package rif

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidDefinition = errors.New("invalid form definition")

// ParseFormDefinition decodes a form definition document and validates it.
// Malformed definitions are rejected here, at load time, rather than failing
// lazily during evaluation.
func ParseFormDefinition(raw []byte) (*FormDefinition, error) {
	var form FormDefinition
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&form); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidDefinition, err)
	}
	if err := ValidateForm(&form); err != nil {
		return nil, err
	}
	return &form, nil
}

// ValidateForm checks the structural invariants a definition must hold before
// the evaluator or the aggregator may consume it.
func ValidateForm(form *FormDefinition) error {
	if form == nil {
		return fmt.Errorf("%w: nil form", ErrInvalidDefinition)
	}
	if len(form.Sections) == 0 {
		return fmt.Errorf("%w: form has no sections", ErrInvalidDefinition)
	}

	sectionOrders := make(map[int]bool, len(form.Sections))
	questionKeys := make(map[string]bool)

	for si := range form.Sections {
		s := &form.Sections[si]
		if s.Order <= 0 {
			return fmt.Errorf("%w: section %q order must be positive", ErrInvalidDefinition, s.Title)
		}
		if sectionOrders[s.Order] {
			return fmt.Errorf("%w: duplicate section order %d", ErrInvalidDefinition, s.Order)
		}
		sectionOrders[s.Order] = true

		if s.ShowIf != nil && s.HideIf != nil {
			return fmt.Errorf("%w: section %q carries both showIf and hideIf", ErrInvalidDefinition, s.Title)
		}
		if err := validateCondition(s.ShowIf); err != nil {
			return fmt.Errorf("section %q showIf: %w", s.Title, err)
		}
		if err := validateCondition(s.HideIf); err != nil {
			return fmt.Errorf("section %q hideIf: %w", s.Title, err)
		}

		questionOrders := make(map[int]bool, len(s.Questions))
		for qi := range s.Questions {
			q := &s.Questions[qi]
			if err := validateQuestion(q); err != nil {
				return err
			}
			if questionKeys[q.QuestionKey] {
				return fmt.Errorf("%w: duplicate question key %q", ErrInvalidDefinition, q.QuestionKey)
			}
			questionKeys[q.QuestionKey] = true
			if questionOrders[q.Order] {
				return fmt.Errorf("%w: duplicate question order %d in section %q", ErrInvalidDefinition, q.Order, s.Title)
			}
			questionOrders[q.Order] = true
		}
	}

	// Condition references must point at declared question keys so typos
	// surface at load time instead of silently evaluating false.
	for si := range form.Sections {
		s := &form.Sections[si]
		for _, c := range []*Condition{s.ShowIf, s.HideIf} {
			if err := checkConditionRefs(c, questionKeys); err != nil {
				return fmt.Errorf("section %q: %w", s.Title, err)
			}
		}
		for qi := range s.Questions {
			q := &s.Questions[qi]
			for _, c := range []*Condition{q.ShowIf, q.HideIf} {
				if err := checkConditionRefs(c, questionKeys); err != nil {
					return fmt.Errorf("question %q: %w", q.QuestionKey, err)
				}
			}
		}
	}

	return nil
}

func validateQuestion(q *Question) error {
	key := strings.TrimSpace(q.QuestionKey)
	if key == "" {
		return fmt.Errorf("%w: question %d has empty question key", ErrInvalidDefinition, q.ID)
	}
	switch q.QuestionType {
	case TypeText, TypeTextarea, TypeSingleChoice, TypeMultipleChoice,
		TypeDropdown, TypeDate, TypeBoolean, TypeNumber:
	default:
		return fmt.Errorf("%w: question %q has unknown type %q", ErrInvalidDefinition, key, q.QuestionType)
	}
	if q.Order <= 0 {
		return fmt.Errorf("%w: question %q order must be positive", ErrInvalidDefinition, key)
	}
	if q.MaxPoints < 0 {
		return fmt.Errorf("%w: question %q max points must not be negative", ErrInvalidDefinition, key)
	}
	// Zero weightage means unset and defaults to 1.0, see Question.Weight.
	if q.Weightage < 0 {
		return fmt.Errorf("%w: question %q weightage must not be negative", ErrInvalidDefinition, key)
	}
	if q.ShowIf != nil && q.HideIf != nil {
		return fmt.Errorf("%w: question %q carries both showIf and hideIf", ErrInvalidDefinition, key)
	}
	if err := validateCondition(q.ShowIf); err != nil {
		return fmt.Errorf("question %q showIf: %w", key, err)
	}
	if err := validateCondition(q.HideIf); err != nil {
		return fmt.Errorf("question %q hideIf: %w", key, err)
	}

	if len(q.Choices) > 0 && !q.QuestionType.IsChoiceBased() {
		return fmt.Errorf("%w: question %q of type %s must not declare choices", ErrInvalidDefinition, key, q.QuestionType)
	}
	if q.QuestionType.IsChoiceBased() && len(q.Choices) == 0 {
		return fmt.Errorf("%w: question %q of type %s declares no choices", ErrInvalidDefinition, key, q.QuestionType)
	}
	if len(q.RiskBuckets) > 0 && q.QuestionType != TypeNumber {
		return fmt.Errorf("%w: question %q of type %s must not declare risk buckets", ErrInvalidDefinition, key, q.QuestionType)
	}
	if q.QuestionType == TypeNumber {
		if err := validateBuckets(key, q.RiskBuckets); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(q.Choices))
	for _, c := range q.Choices {
		if strings.TrimSpace(c.Value) == "" {
			return fmt.Errorf("%w: question %q has a choice with empty value", ErrInvalidDefinition, key)
		}
		if seen[c.Value] {
			return fmt.Errorf("%w: question %q has duplicate choice value %q", ErrInvalidDefinition, key, c.Value)
		}
		seen[c.Value] = true
	}

	return nil
}

func validateBuckets(key string, buckets []RiskBucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: NUMBER question %q declares no risk buckets", ErrInvalidDefinition, key)
	}
	sorted := append([]RiskBucket(nil), buckets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i, b := range sorted {
		if b.Max < b.Min {
			return fmt.Errorf("%w: question %q bucket [%v,%v] is inverted", ErrInvalidDefinition, key, b.Min, b.Max)
		}
		if i > 0 && b.Min <= sorted[i-1].Max {
			return fmt.Errorf("%w: question %q buckets overlap at %v", ErrInvalidDefinition, key, b.Min)
		}
	}
	return nil
}

func validateCondition(c *Condition) error {
	if c == nil {
		return nil
	}
	switch c.Op {
	case OpAnd, OpOr:
		if len(c.Conditions) == 0 {
			return fmt.Errorf("%w: %s condition has no children", ErrInvalidDefinition, c.Op)
		}
		if c.QuestionKey != "" || c.Value != "" || len(c.Values) > 0 {
			return fmt.Errorf("%w: %s condition must not carry leaf fields", ErrInvalidDefinition, c.Op)
		}
		for _, child := range c.Conditions {
			if child == nil {
				return fmt.Errorf("%w: %s condition has a nil child", ErrInvalidDefinition, c.Op)
			}
			if err := validateCondition(child); err != nil {
				return err
			}
		}
		return nil
	case OpEquals, OpIncludes:
		if strings.TrimSpace(c.QuestionKey) == "" {
			return fmt.Errorf("%w: %s condition missing question key", ErrInvalidDefinition, c.Op)
		}
		if len(c.Conditions) > 0 {
			return fmt.Errorf("%w: leaf %s condition must not have children", ErrInvalidDefinition, c.Op)
		}
		return nil
	case OpIn, OpIncludesAny:
		if strings.TrimSpace(c.QuestionKey) == "" {
			return fmt.Errorf("%w: %s condition missing question key", ErrInvalidDefinition, c.Op)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: %s condition has empty values list", ErrInvalidDefinition, c.Op)
		}
		if len(c.Conditions) > 0 {
			return fmt.Errorf("%w: leaf %s condition must not have children", ErrInvalidDefinition, c.Op)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown condition operator %q", ErrInvalidDefinition, c.Op)
	}
}

func checkConditionRefs(c *Condition, keys map[string]bool) error {
	if c == nil {
		return nil
	}
	if c.Op == OpAnd || c.Op == OpOr {
		for _, child := range c.Conditions {
			if err := checkConditionRefs(child, keys); err != nil {
				return err
			}
		}
		return nil
	}
	if !keys[c.QuestionKey] {
		return fmt.Errorf("%w: condition references unknown question key %q", ErrInvalidDefinition, c.QuestionKey)
	}
	return nil
}
