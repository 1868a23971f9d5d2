package rif

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Thresholds maps a normalized 0-100 score to a risk level. Scores below
// Medium are LOW, scores above High are HIGH, everything between is MEDIUM
// with both bounds inclusive.
type Thresholds struct {
	Medium int
	High   int
}

// DefaultThresholds returns the stock 40/70 tiering.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 40, High: 70}
}

// Level classifies a normalized score.
func (t Thresholds) Level(normalized int) RiskLevel {
	th := t
	if th.Medium <= 0 || th.High < th.Medium {
		th = DefaultThresholds()
	}
	switch {
	case normalized < th.Medium:
		return RiskLow
	case normalized > th.High:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// ComputeScore aggregates the active, answered questions of a form into a
// ScoreResult. It is a pure function: same form and answers always produce
// the same result.
//
// Answers belonging to inactive sections or questions are skipped entirely,
// and the same active answered set drives both the raw score and the maximum
// possible score, so conditional sections that legitimately do not apply
// never penalize the normalized score.
func ComputeScore(form *FormDefinition, answers AnswerSet, th Thresholds) ScoreResult {
	resolve := NewResolver(form, answers)

	raw := 0.0
	max := 0.0
	var warnings []string

	for _, section := range form.SortedSections() {
		if !Active(section.ShowIf, section.HideIf, resolve) {
			continue
		}
		for _, q := range section.SortedQuestions() {
			if !Active(q.ShowIf, q.HideIf, resolve) {
				continue
			}
			answer, ok := answers[q.ID]
			if !ok || answer.IsEmpty() {
				continue
			}

			contribution, warn := questionContribution(&q, answer)
			// maxPoints is the ceiling for the question's contribution, so
			// an over-declared choice or bucket score cannot push the
			// normalized result past 100.
			if limit := float64(q.MaxPoints) * q.Weight(); contribution > limit {
				contribution = limit
			}
			raw += contribution
			max += float64(q.MaxPoints) * q.Weight()
			if warn != "" {
				warnings = append(warnings, warn)
			}
		}
	}

	normalized := 0
	if max > 0 {
		normalized = int(math.Round(raw / max * 100))
	}

	return ScoreResult{
		RawScore:         raw,
		MaxPossibleScore: max,
		NormalizedScore:  normalized,
		RiskLevel:        th.Level(normalized),
		Warnings:         warnings,
	}
}

// questionContribution converts one answered question into its weighted risk
// contribution. The second return carries a warning for numeric answers that
// fall outside every declared bucket.
func questionContribution(q *Question, answer Answer) (float64, string) {
	if !q.QuestionType.IsScorable() {
		return 0, ""
	}

	switch q.QuestionType {
	case TypeSingleChoice, TypeDropdown, TypeBoolean:
		return float64(choiceRiskScore(q.Choices, answer.Text)) * q.Weight(), ""

	case TypeMultipleChoice:
		// A single worst-case selection drives the question's risk;
		// summing would let many low-risk selections inflate the score.
		worst := 0
		for _, v := range answer.List {
			if rs := choiceRiskScore(q.Choices, v); rs > worst {
				worst = rs
			}
		}
		return float64(worst) * q.Weight(), ""

	case TypeNumber:
		value, err := strconv.ParseFloat(strings.TrimSpace(answer.Text), 64)
		if err != nil {
			return 0, fmt.Sprintf("question %d: numeric answer %q is not a number", q.ID, answer.Text)
		}
		for _, b := range q.RiskBuckets {
			if b.Min <= value && value <= b.Max {
				return float64(b.RiskScore) * q.Weight(), ""
			}
		}
		return 0, fmt.Sprintf("question %d: numeric answer %v outside declared risk buckets", q.ID, value)

	default:
		return 0, ""
	}
}

func choiceRiskScore(choices []Choice, value string) int {
	for _, c := range choices {
		if c.Value == value {
			if c.RiskScore == nil {
				return 0
			}
			return *c.RiskScore
		}
	}
	return 0
}
