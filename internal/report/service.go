package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	db *sql.DB
}

// RiskDistribution counts final submissions per risk level for one form.
type RiskDistribution struct {
	FormKey string `json:"form_key"`
	Low     int    `json:"low"`
	Medium  int    `json:"medium"`
	High    int    `json:"high"`
	Total   int    `json:"total"`
}

// VendorRiskSummary is the latest computed score per vendor.
type VendorRiskSummary struct {
	VendorID        int64     `json:"vendor_id"`
	VendorName      string    `json:"vendor_name"`
	SubmissionID    int64     `json:"submission_id"`
	Reference       string    `json:"reference"`
	Status          string    `json:"status"`
	NormalizedScore int       `json:"normalized_score"`
	RiskLevel       string    `json:"risk_level"`
	ScoredAt        time.Time `json:"scored_at"`
}

type FormOverview struct {
	FormKey         string  `json:"form_key"`
	Submissions     int     `json:"submissions"`
	AverageScore    float64 `json:"average_score"`
	HighRiskVendors int     `json:"high_risk_vendors"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// RiskDistributionByForm buckets the latest score of each submission that has
// left draft state. Draft submissions have no score row and are excluded.
func (s *Service) RiskDistributionByForm(ctx context.Context, formKey string) (*RiskDistribution, error) {
	if formKey == "" {
		return nil, ErrInvalidInput
	}

	out := &RiskDistribution{FormKey: formKey}
	err := s.db.QueryRowContext(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (sc.submission_id) sc.submission_id, sc.risk_level
			FROM submission_scores sc
			JOIN submissions sub ON sub.id = sc.submission_id
			JOIN form_versions fv ON fv.id = sub.form_version_id
			JOIN forms f ON f.id = fv.form_id
			WHERE f.form_key = $1
			ORDER BY sc.submission_id, sc.computed_at DESC, sc.id DESC
		)
		SELECT
			COUNT(*) FILTER (WHERE risk_level = 'LOW'),
			COUNT(*) FILTER (WHERE risk_level = 'MEDIUM'),
			COUNT(*) FILTER (WHERE risk_level = 'HIGH'),
			COUNT(*)
		FROM latest
	`, formKey).Scan(&out.Low, &out.Medium, &out.High, &out.Total)
	if err != nil {
		return nil, fmt.Errorf("risk distribution: %w", err)
	}
	return out, nil
}

// VendorSummaries lists each vendor's most recent scored submission, worst
// risk first.
func (s *Service) VendorSummaries(ctx context.Context, orgID int64, limit, offset int) ([]VendorRiskSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (sub.vendor_id)
				sub.vendor_id, sub.id AS submission_id, sub.reference, sub.status,
				sc.normalized_score, sc.risk_level, sc.computed_at AS scored_at
			FROM submission_scores sc
			JOIN submissions sub ON sub.id = sc.submission_id
			ORDER BY sub.vendor_id, sc.computed_at DESC, sc.id DESC
		)
		SELECT l.vendor_id, v.name, l.submission_id, l.reference, l.status,
			l.normalized_score, l.risk_level, l.scored_at
		FROM latest l
		JOIN vendors v ON v.id = l.vendor_id
		WHERE ($1 <= 0 OR v.org_id = $1)
		ORDER BY
			CASE l.risk_level WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END,
			l.normalized_score DESC,
			v.name ASC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("vendor summaries: %w", err)
	}
	defer rows.Close()

	out := make([]VendorRiskSummary, 0)
	for rows.Next() {
		var it VendorRiskSummary
		if err := rows.Scan(&it.VendorID, &it.VendorName, &it.SubmissionID, &it.Reference,
			&it.Status, &it.NormalizedScore, &it.RiskLevel, &it.ScoredAt); err != nil {
			return nil, fmt.Errorf("scan vendor summary: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor summaries: %w", err)
	}
	return out, nil
}

// FormOverviews aggregates per form: scored submission count, average of the
// latest normalized scores, and how many vendors currently sit at HIGH.
func (s *Service) FormOverviews(ctx context.Context) ([]FormOverview, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (sc.submission_id)
				sc.submission_id, sc.normalized_score, sc.risk_level, fv.form_id
			FROM submission_scores sc
			JOIN submissions sub ON sub.id = sc.submission_id
			JOIN form_versions fv ON fv.id = sub.form_version_id
			ORDER BY sc.submission_id, sc.computed_at DESC, sc.id DESC
		)
		SELECT f.form_key,
			COUNT(l.submission_id),
			COALESCE(AVG(l.normalized_score), 0),
			COUNT(*) FILTER (WHERE l.risk_level = 'HIGH')
		FROM forms f
		LEFT JOIN latest l ON l.form_id = f.id
		GROUP BY f.form_key
		ORDER BY f.form_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("form overviews: %w", err)
	}
	defer rows.Close()

	out := make([]FormOverview, 0)
	for rows.Next() {
		var it FormOverview
		if err := rows.Scan(&it.FormKey, &it.Submissions, &it.AverageScore, &it.HighRiskVendors); err != nil {
			return nil, fmt.Errorf("scan form overview: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate form overviews: %w", err)
	}
	return out, nil
}
