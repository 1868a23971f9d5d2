package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"riskintake/internal/rif"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrSubmissionNotEditable   = errors.New("submission is not editable")
	ErrSubmissionNotFinal      = errors.New("submission not finalized")
	ErrSubmissionForbidden     = errors.New("submission forbidden")
	ErrQuestionNotInForm       = errors.New("question not in form")
	ErrMissingRequired         = errors.New("required questions unanswered")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNotAssignedReviewer     = errors.New("submission is assigned to another reviewer")
)

// Submission statuses. A draft is mutable; everything after submit is an
// audit trail. Rejection reopens the answers for resubmission.
const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
)

// formLoader is the slice of the form service the workflow needs.
type formLoader interface {
	PublishedDefinition(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error)
	DefinitionByVersionID(ctx context.Context, versionID int64) (*rif.FormDefinition, error)
}

// Notifier delivers workflow notifications. A nil Notifier disables them.
type Notifier interface {
	NotifySubmission(ctx context.Context, email, reference string, level rif.RiskLevel) error
}

type Service struct {
	db         *sql.DB
	forms      formLoader
	notifier   Notifier
	thresholds rif.Thresholds
}

func NewService(db *sql.DB, forms formLoader, notifier Notifier, thresholds rif.Thresholds) *Service {
	return &Service{db: db, forms: forms, notifier: notifier, thresholds: thresholds}
}

type Submission struct {
	ID                 int64      `json:"id"`
	Reference          string     `json:"reference"`
	FormVersionID      int64      `json:"form_version_id"`
	VendorID           int64      `json:"vendor_id"`
	CreatedBy          int64      `json:"created_by"`
	AssignedReviewerID *int64     `json:"assigned_reviewer_id,omitempty"`
	Status             string     `json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
}

type SubmissionSummary struct {
	Submission
	TotalActiveQuestions int          `json:"total_active_questions"`
	AnsweredQuestions    int          `json:"answered_questions"`
	LatestScore          *ScoreRecord `json:"latest_score,omitempty"`
}

// ScoreRecord is one persisted scoring run. Rows are append-only: a
// resubmission adds a new record and leaves prior ones for audit history.
type ScoreRecord struct {
	ID               int64         `json:"id"`
	SubmissionID     int64         `json:"submission_id"`
	RawScore         float64       `json:"raw_score"`
	MaxPossibleScore float64       `json:"max_possible_score"`
	NormalizedScore  int           `json:"normalized_score"`
	RiskLevel        rif.RiskLevel `json:"risk_level"`
	Warnings         []string      `json:"warnings,omitempty"`
	ComputedAt       time.Time     `json:"computed_at"`
}

type StartSubmissionInput struct {
	FormKey            string
	VendorID           int64
	CreatedBy          int64
	AssignedReviewerID int64
}

// AnswerInput carries one answer from the client. Exactly one of Value or
// Values is expected, matching the question type.
type AnswerInput struct {
	QuestionID int64    `json:"question_id"`
	Value      *string  `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
}

type SaveAnswersInput struct {
	SubmissionID int64
	Answers      []AnswerInput
}

type ReviewInput struct {
	SubmissionID int64
	ReviewerID   int64
	ActorRole    string
	Approve      bool
	Note         string
}

type submissionRow struct {
	ID                 int64
	Reference          string
	FormVersionID      int64
	VendorID           int64
	CreatedBy          int64
	AssignedReviewerID sql.NullInt64
	Status             string
	StartedAt          time.Time
	SubmittedAt        sql.NullTime
}

func (r *submissionRow) toSubmission() Submission {
	out := Submission{
		ID:            r.ID,
		Reference:     r.Reference,
		FormVersionID: r.FormVersionID,
		VendorID:      r.VendorID,
		CreatedBy:     r.CreatedBy,
		Status:        r.Status,
		StartedAt:     r.StartedAt,
	}
	if r.AssignedReviewerID.Valid {
		out.AssignedReviewerID = &r.AssignedReviewerID.Int64
	}
	if r.SubmittedAt.Valid {
		out.SubmittedAt = &r.SubmittedAt.Time
	}
	return out
}

// StartSubmission opens a draft against the currently published version of
// the form. The version is pinned at start so later publishes never change
// what a draft is scored against.
func (s *Service) StartSubmission(ctx context.Context, in StartSubmissionInput) (*Submission, error) {
	if strings.TrimSpace(in.FormKey) == "" || in.VendorID <= 0 || in.CreatedBy <= 0 {
		return nil, ErrInvalidInput
	}

	_, versionID, err := s.forms.PublishedDefinition(ctx, in.FormKey)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, reference, form_version_id, vendor_id, created_by, assigned_reviewer_id, status, started_at, submitted_at
		FROM submissions
		WHERE form_version_id = $1 AND vendor_id = $2 AND status = 'draft'
	`, versionID, in.VendorID)

	var existing submissionRow
	if err := scanSubmission(row, &existing); err == nil {
		out := existing.toSubmission()
		return &out, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query existing draft: %w", err)
	}

	reference := "RIF-" + strings.ToUpper(uuid.NewString()[:8])
	created := submissionRow{}
	err = scanSubmission(s.db.QueryRowContext(ctx, `
		INSERT INTO submissions (
			reference, form_version_id, vendor_id, created_by, assigned_reviewer_id,
			status, started_at, updated_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, 0), 'draft', now(), now())
		RETURNING id, reference, form_version_id, vendor_id, created_by, assigned_reviewer_id, status, started_at, submitted_at
	`, reference, versionID, in.VendorID, in.CreatedBy, in.AssignedReviewerID), &created)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	_ = s.writeEvent(ctx, created.ID, in.CreatedBy, "submission_started", map[string]any{
		"form_version_id": versionID,
		"vendor_id":       in.VendorID,
	})

	out := created.toSubmission()
	return &out, nil
}

// SaveAnswers upserts a batch of answers, typically one section at a time.
// Only drafts and rejected submissions accept changes.
func (s *Service) SaveAnswers(ctx context.Context, in SaveAnswersInput) error {
	if in.SubmissionID <= 0 || len(in.Answers) == 0 {
		return ErrInvalidInput
	}

	row, err := s.loadSubmissionRow(ctx, in.SubmissionID)
	if err != nil {
		return err
	}
	if row.Status != StatusDraft && row.Status != StatusRejected {
		return ErrSubmissionNotEditable
	}

	def, err := s.forms.DefinitionByVersionID(ctx, row.FormVersionID)
	if err != nil {
		return err
	}
	known := make(map[int64]bool)
	for _, section := range def.Sections {
		for _, q := range section.Questions {
			known[q.ID] = true
		}
	}

	for _, a := range in.Answers {
		if !known[a.QuestionID] {
			return ErrQuestionNotInForm
		}
		payload, err := encodeAnswerPayload(a)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO submission_answers (submission_id, question_id, answer_payload, updated_at)
			VALUES ($1, $2, $3::jsonb, now())
			ON CONFLICT (submission_id, question_id)
			DO UPDATE SET
				answer_payload = EXCLUDED.answer_payload,
				updated_at = now()
		`, in.SubmissionID, a.QuestionID, payload); err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
	}

	return nil
}

// Submit finalizes the answer set: it validates that every required active
// question is answered, computes the score, appends a score record, and
// moves the submission to submitted. Resubmitting after rejection runs the
// same path and produces a fresh score record next to the old one.
func (s *Service) Submit(ctx context.Context, submissionID, actorID int64) (*ScoreRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := s.loadSubmissionRowForUpdate(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}
	if row.Status != StatusDraft && row.Status != StatusRejected {
		return nil, ErrSubmissionNotEditable
	}

	def, err := s.forms.DefinitionByVersionID(ctx, row.FormVersionID)
	if err != nil {
		return nil, err
	}

	answers, err := s.loadAnswerSet(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}

	if missing := missingRequired(def, answers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	result := rif.ComputeScore(def, answers, s.thresholds)

	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return nil, fmt.Errorf("encode warnings: %w", err)
	}

	record := ScoreRecord{}
	var warningsRaw []byte
	err = tx.QueryRowContext(ctx, `
		INSERT INTO submission_scores (
			submission_id, raw_score, max_possible_score, normalized_score,
			risk_level, warnings, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, now())
		RETURNING id, submission_id, raw_score, max_possible_score, normalized_score, risk_level, warnings, computed_at
	`, submissionID, result.RawScore, result.MaxPossibleScore, result.NormalizedScore,
		string(result.RiskLevel), warningsJSON).Scan(
		&record.ID, &record.SubmissionID, &record.RawScore, &record.MaxPossibleScore,
		&record.NormalizedScore, &record.RiskLevel, &warningsRaw, &record.ComputedAt)
	if err != nil {
		return nil, fmt.Errorf("insert score record: %w", err)
	}
	if len(warningsRaw) > 0 {
		_ = json.Unmarshal(warningsRaw, &record.Warnings)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET status = 'submitted', submitted_at = now(), updated_at = now()
		WHERE id = $1
	`, submissionID); err != nil {
		return nil, fmt.Errorf("update submission status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit: %w", err)
	}

	_ = s.writeEvent(ctx, submissionID, actorID, "submission_submitted", map[string]any{
		"score_record_id":  record.ID,
		"normalized_score": record.NormalizedScore,
		"risk_level":       record.RiskLevel,
	})
	s.notifyReviewer(ctx, row, record)

	return &record, nil
}

// AssignReviewer routes a submitted RIF to a reviewer.
func (s *Service) AssignReviewer(ctx context.Context, submissionID, reviewerID, actorID int64) (*Submission, error) {
	if submissionID <= 0 || reviewerID <= 0 {
		return nil, ErrInvalidInput
	}

	row, err := s.loadSubmissionRow(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if row.Status != StatusSubmitted {
		return nil, ErrInvalidStatusTransition
	}

	updated := submissionRow{}
	err = scanSubmission(s.db.QueryRowContext(ctx, `
		UPDATE submissions
		SET assigned_reviewer_id = $2, status = 'under_review', updated_at = now()
		WHERE id = $1
		RETURNING id, reference, form_version_id, vendor_id, created_by, assigned_reviewer_id, status, started_at, submitted_at
	`, submissionID, reviewerID), &updated)
	if err != nil {
		return nil, fmt.Errorf("assign reviewer: %w", err)
	}

	_ = s.writeEvent(ctx, submissionID, actorID, "reviewer_assigned", map[string]any{
		"reviewer_id": reviewerID,
	})

	out := updated.toSubmission()
	return &out, nil
}

// Review records the reviewer's decision. Only the assigned reviewer may
// decide; admins may decide any submission. Rejection reopens the answers so
// the vendor contact can amend and resubmit.
func (s *Service) Review(ctx context.Context, in ReviewInput) (*Submission, error) {
	if in.SubmissionID <= 0 || in.ReviewerID <= 0 {
		return nil, ErrInvalidInput
	}

	row, err := s.loadSubmissionRow(ctx, in.SubmissionID)
	if err != nil {
		return nil, err
	}
	if row.Status != StatusUnderReview {
		return nil, ErrInvalidStatusTransition
	}
	if in.ActorRole != "admin" && row.AssignedReviewerID.Valid && row.AssignedReviewerID.Int64 != in.ReviewerID {
		return nil, ErrNotAssignedReviewer
	}

	newStatus := StatusRejected
	eventType := "submission_rejected"
	if in.Approve {
		newStatus = StatusApproved
		eventType = "submission_approved"
	}

	updated := submissionRow{}
	err = scanSubmission(s.db.QueryRowContext(ctx, `
		UPDATE submissions
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, reference, form_version_id, vendor_id, created_by, assigned_reviewer_id, status, started_at, submitted_at
	`, in.SubmissionID, newStatus), &updated)
	if err != nil {
		return nil, fmt.Errorf("update review status: %w", err)
	}

	_ = s.writeEvent(ctx, in.SubmissionID, in.ReviewerID, eventType, map[string]any{
		"note": strings.TrimSpace(in.Note),
	})

	out := updated.toSubmission()
	return &out, nil
}

// GetSummary returns the submission with visibility-aware progress counts
// and its most recent score record, when one exists.
func (s *Service) GetSummary(ctx context.Context, submissionID int64) (*SubmissionSummary, error) {
	row, err := s.loadSubmissionRow(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	def, err := s.forms.DefinitionByVersionID(ctx, row.FormVersionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswerSet(ctx, s.db, submissionID)
	if err != nil {
		return nil, err
	}

	total, answered := progress(def, answers)

	summary := &SubmissionSummary{
		Submission:           row.toSubmission(),
		TotalActiveQuestions: total,
		AnsweredQuestions:    answered,
	}

	latest, err := s.latestScore(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	summary.LatestScore = latest

	return summary, nil
}

// ScoreHistory returns every scoring run for a submission, newest first.
func (s *Service) ScoreHistory(ctx context.Context, submissionID int64) ([]ScoreRecord, error) {
	if _, err := s.loadSubmissionRow(ctx, submissionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submission_id, raw_score, max_possible_score, normalized_score, risk_level, warnings, computed_at
		FROM submission_scores
		WHERE submission_id = $1
		ORDER BY computed_at DESC, id DESC
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	items := make([]ScoreRecord, 0)
	for rows.Next() {
		var (
			rec         ScoreRecord
			warningsRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.SubmissionID, &rec.RawScore, &rec.MaxPossibleScore,
			&rec.NormalizedScore, &rec.RiskLevel, &warningsRaw, &rec.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan score record: %w", err)
		}
		if len(warningsRaw) > 0 {
			_ = json.Unmarshal(warningsRaw, &rec.Warnings)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history: %w", err)
	}
	return items, nil
}

// GetOwner returns the user who started the submission, for access checks.
func (s *Service) GetOwner(ctx context.Context, submissionID int64) (int64, error) {
	var createdBy int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT created_by
		FROM submissions
		WHERE id = $1
	`, submissionID).Scan(&createdBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSubmissionNotFound
		}
		return 0, fmt.Errorf("load submission owner: %w", err)
	}
	return createdBy, nil
}

func (s *Service) latestScore(ctx context.Context, submissionID int64) (*ScoreRecord, error) {
	var (
		rec         ScoreRecord
		warningsRaw []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, submission_id, raw_score, max_possible_score, normalized_score, risk_level, warnings, computed_at
		FROM submission_scores
		WHERE submission_id = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`, submissionID).Scan(&rec.ID, &rec.SubmissionID, &rec.RawScore, &rec.MaxPossibleScore,
		&rec.NormalizedScore, &rec.RiskLevel, &warningsRaw, &rec.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest score: %w", err)
	}
	if len(warningsRaw) > 0 {
		_ = json.Unmarshal(warningsRaw, &rec.Warnings)
	}
	return &rec, nil
}

func (s *Service) notifyReviewer(ctx context.Context, row *submissionRow, record ScoreRecord) {
	if s.notifier == nil || !row.AssignedReviewerID.Valid {
		return
	}

	var email sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT email
		FROM users
		WHERE id = $1
	`, row.AssignedReviewerID.Int64).Scan(&email); err != nil || !email.Valid {
		return
	}

	if err := s.notifier.NotifySubmission(ctx, email.String, row.Reference, record.RiskLevel); err != nil {
		log.Printf("submission %s: notify reviewer failed: %v", row.Reference, err)
	}
}

func (s *Service) writeEvent(ctx context.Context, submissionID, actorID int64, eventType string, payload map[string]any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO submission_events (submission_id, actor_id, event_type, payload, created_at)
		VALUES ($1, NULLIF($2, 0), $3, $4::jsonb, now())
	`, submissionID, actorID, eventType, payloadJSON); err != nil {
		return fmt.Errorf("insert submission event: %w", err)
	}
	return nil
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *Service) loadSubmissionRow(ctx context.Context, submissionID int64) (*submissionRow, error) {
	row := &submissionRow{}
	err := scanSubmission(s.db.QueryRowContext(ctx, `
		SELECT id, reference, form_version_id, vendor_id, created_by, assigned_reviewer_id, status, started_at, submitted_at
		FROM submissions
		WHERE id = $1
	`, submissionID), row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return row, nil
}

func (s *Service) loadSubmissionRowForUpdate(ctx context.Context, tx *sql.Tx, submissionID int64) (*submissionRow, error) {
	row := &submissionRow{}
	err := scanSubmission(tx.QueryRowContext(ctx, `
		SELECT id, reference, form_version_id, vendor_id, created_by, assigned_reviewer_id, status, started_at, submitted_at
		FROM submissions
		WHERE id = $1
		FOR UPDATE
	`, submissionID), row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission for update: %w", err)
	}
	return row, nil
}

func scanSubmission(row *sql.Row, out *submissionRow) error {
	return row.Scan(
		&out.ID,
		&out.Reference,
		&out.FormVersionID,
		&out.VendorID,
		&out.CreatedBy,
		&out.AssignedReviewerID,
		&out.Status,
		&out.StartedAt,
		&out.SubmittedAt,
	)
}

func (s *Service) loadAnswerSet(ctx context.Context, q queryable, submissionID int64) (rif.AnswerSet, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT question_id, answer_payload
		FROM submission_answers
		WHERE submission_id = $1
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	answers := rif.AnswerSet{}
	for rows.Next() {
		var (
			questionID int64
			payload    []byte
		)
		if err := rows.Scan(&questionID, &payload); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answer, ok := decodeAnswerPayload(questionID, payload)
		if ok {
			answers[questionID] = answer
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return answers, nil
}

func encodeAnswerPayload(in AnswerInput) ([]byte, error) {
	switch {
	case in.Values != nil:
		cleaned := make([]string, 0, len(in.Values))
		for _, v := range in.Values {
			v = strings.TrimSpace(v)
			if v != "" {
				cleaned = append(cleaned, v)
			}
		}
		return json.Marshal(map[string]any{"values": cleaned})
	case in.Value != nil:
		return json.Marshal(map[string]any{"value": strings.TrimSpace(*in.Value)})
	default:
		return nil, fmt.Errorf("%w: answer for question %d carries neither value nor values", ErrInvalidInput, in.QuestionID)
	}
}

// decodeAnswerPayload parses a stored answer defensively: malformed rows are
// dropped rather than failing the whole evaluation.
func decodeAnswerPayload(questionID int64, payload []byte) (rif.Answer, bool) {
	if len(payload) == 0 {
		return rif.Answer{}, false
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return rif.Answer{}, false
	}

	if v, ok := obj["values"]; ok {
		arr, ok := v.([]interface{})
		if !ok {
			return rif.Answer{}, false
		}
		list := make([]string, 0, len(arr))
		for _, it := range arr {
			str, ok := it.(string)
			if !ok {
				continue
			}
			str = strings.TrimSpace(str)
			if str != "" {
				list = append(list, str)
			}
		}
		return rif.ListAnswer(questionID, list), true
	}

	if v, ok := obj["value"]; ok {
		str, ok := v.(string)
		if !ok {
			return rif.Answer{}, false
		}
		return rif.TextAnswer(questionID, strings.TrimSpace(str)), true
	}

	return rif.Answer{}, false
}

// missingRequired lists the question keys of required, currently active
// questions that have no answer. Questions inside inactive sections are
// exempt: hidden prerequisites must not block a submission.
func missingRequired(def *rif.FormDefinition, answers rif.AnswerSet) []string {
	resolve := rif.NewResolver(def, answers)

	var missing []string
	for _, section := range def.SortedSections() {
		if !rif.Active(section.ShowIf, section.HideIf, resolve) {
			continue
		}
		for _, q := range section.SortedQuestions() {
			if !q.IsRequired {
				continue
			}
			if !rif.Active(q.ShowIf, q.HideIf, resolve) {
				continue
			}
			if a, ok := answers[q.ID]; !ok || a.IsEmpty() {
				missing = append(missing, q.QuestionKey)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// progress counts active questions and how many of them are answered.
func progress(def *rif.FormDefinition, answers rif.AnswerSet) (total, answered int) {
	resolve := rif.NewResolver(def, answers)

	for _, section := range def.SortedSections() {
		if !rif.Active(section.ShowIf, section.HideIf, resolve) {
			continue
		}
		for _, q := range section.SortedQuestions() {
			if !rif.Active(q.ShowIf, q.HideIf, resolve) {
				continue
			}
			total++
			if a, ok := answers[q.ID]; ok && !a.IsEmpty() {
				answered++
			}
		}
	}
	return total, answered
}
