package rif

// Operator names the comparison or combinator a Condition applies.
type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpIn          Operator = "IN"
	OpIncludes    Operator = "INCLUDES"
	OpIncludesAny Operator = "INCLUDES_ANY"
	OpAnd         Operator = "AND"
	OpOr          Operator = "OR"
)

// Condition is a recursive boolean expression over collected answers. Leaf
// conditions reference a question by its stable questionKey; composite
// conditions combine children with AND/OR.
type Condition struct {
	Op          Operator     `json:"operator"`
	QuestionKey string       `json:"questionKey,omitempty"`
	Value       string       `json:"value,omitempty"`
	Values      []string     `json:"values,omitempty"`
	Conditions  []*Condition `json:"conditions,omitempty"`
}

// Resolver looks up the current answer for a questionKey. The second return
// is false when the question has not been answered.
type Resolver func(questionKey string) (Answer, bool)

// NewResolver builds a Resolver from a form definition and an answer set,
// bridging the key-based condition references to the ID-keyed answers.
func NewResolver(form *FormDefinition, answers AnswerSet) Resolver {
	byKey := make(map[string]int64)
	for si := range form.Sections {
		for _, q := range form.Sections[si].Questions {
			byKey[q.QuestionKey] = q.ID
		}
	}
	return func(key string) (Answer, bool) {
		id, ok := byKey[key]
		if !ok {
			return Answer{}, false
		}
		a, ok := answers[id]
		return a, ok
	}
}

// Eval evaluates the condition against the resolver. A nil condition is
// vacuously true. Unresolved question keys fail the leaf instead of erroring:
// a missing prerequisite must never crash a submission.
func (c *Condition) Eval(resolve Resolver) bool {
	if c == nil {
		return true
	}

	switch c.Op {
	case OpAnd:
		for _, child := range c.Conditions {
			if !child.Eval(resolve) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range c.Conditions {
			if child.Eval(resolve) {
				return true
			}
		}
		return false
	case OpEquals:
		a, ok := resolve(c.QuestionKey)
		return ok && !a.IsList && a.Text == c.Value
	case OpIn:
		a, ok := resolve(c.QuestionKey)
		if !ok || a.IsList {
			return false
		}
		return containsString(c.Values, a.Text)
	case OpIncludes:
		a, ok := resolve(c.QuestionKey)
		if !ok || !a.IsList {
			return false
		}
		return containsString(a.List, c.Value)
	case OpIncludesAny:
		a, ok := resolve(c.QuestionKey)
		if !ok || !a.IsList {
			return false
		}
		for _, v := range c.Values {
			if containsString(a.List, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Active decides whether a section or question is currently visible. A
// showIf gate activates on true, a hideIf gate deactivates on true, and
// carrying neither means always active.
func Active(showIf, hideIf *Condition, resolve Resolver) bool {
	if showIf != nil {
		return showIf.Eval(resolve)
	}
	if hideIf != nil {
		return !hideIf.Eval(resolve)
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
