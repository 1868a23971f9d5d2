package form

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"riskintake/internal/rif"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrFormNotFound     = errors.New("form not found")
	ErrVersionNotFound  = errors.New("form version not found")
	ErrVersionNotDraft  = errors.New("form version is not a draft")
	ErrNoPublishedForm  = errors.New("form has no published version")
	ErrDuplicateFormKey = errors.New("form key already exists")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type Form struct {
	ID        int64     `json:"id"`
	FormKey   string    `json:"form_key"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FormVersion struct {
	ID          int64           `json:"id"`
	FormID      int64           `json:"form_id"`
	VersionNo   int             `json:"version_no"`
	Status      string          `json:"status"`
	Definition  json.RawMessage `json:"definition"`
	CreatedBy   *int64          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

type CreateFormInput struct {
	FormKey string
	Title   string
}

type CreateVersionInput struct {
	FormID     int64
	Definition json.RawMessage
	CreatedBy  int64
}

func (s *Service) CreateForm(ctx context.Context, in CreateFormInput) (*Form, error) {
	key := strings.TrimSpace(in.FormKey)
	title := strings.TrimSpace(in.Title)
	if key == "" || title == "" {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM forms WHERE form_key = $1)
	`, key).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check form key: %w", err)
	}
	if exists {
		return nil, ErrDuplicateFormKey
	}

	var out Form
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO forms (form_key, title, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, now(), now())
		RETURNING id, form_key, title, is_active, created_at, updated_at
	`, key, title).Scan(&out.ID, &out.FormKey, &out.Title, &out.IsActive, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert form: %w", err)
	}
	return &out, nil
}

// CreateVersion stores a new draft definition for a form. The definition is
// parsed and validated up front so malformed documents never reach storage.
func (s *Service) CreateVersion(ctx context.Context, in CreateVersionInput) (*FormVersion, error) {
	if in.FormID <= 0 || len(in.Definition) == 0 {
		return nil, ErrInvalidInput
	}
	if _, err := rif.ParseFormDefinition(in.Definition); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create version tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var formExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM forms WHERE id = $1)
	`, in.FormID).Scan(&formExists); err != nil {
		return nil, fmt.Errorf("check form: %w", err)
	}
	if !formExists {
		return nil, ErrFormNotFound
	}

	var nextVersion int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version_no), 0) + 1
		FROM form_versions
		WHERE form_id = $1
	`, in.FormID).Scan(&nextVersion); err != nil {
		return nil, fmt.Errorf("next version number: %w", err)
	}

	out, err := scanVersion(tx.QueryRowContext(ctx, `
		INSERT INTO form_versions (form_id, version_no, status, definition, created_by, created_at)
		VALUES ($1, $2, 'draft', $3::jsonb, NULLIF($4, 0), now())
		RETURNING id, form_id, version_no, status, definition, created_by, created_at, published_at
	`, in.FormID, nextVersion, []byte(in.Definition), in.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("insert form version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create version: %w", err)
	}
	return out, nil
}

// PublishVersion promotes a draft to the single published version of its
// form, retiring whichever version was published before.
func (s *Service) PublishVersion(ctx context.Context, formID int64, versionNo int) (*FormVersion, error) {
	if formID <= 0 || versionNo <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin publish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	if err := tx.QueryRowContext(ctx, `
		SELECT status
		FROM form_versions
		WHERE form_id = $1 AND version_no = $2
		FOR UPDATE
	`, formID, versionNo).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("load version status: %w", err)
	}
	if status != "draft" {
		return nil, ErrVersionNotDraft
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE form_versions
		SET status = 'retired'
		WHERE form_id = $1 AND status = 'published'
	`, formID); err != nil {
		return nil, fmt.Errorf("retire published version: %w", err)
	}

	out, err := scanVersion(tx.QueryRowContext(ctx, `
		UPDATE form_versions
		SET status = 'published', published_at = now()
		WHERE form_id = $1 AND version_no = $2
		RETURNING id, form_id, version_no, status, definition, created_by, created_at, published_at
	`, formID, versionNo))
	if err != nil {
		return nil, fmt.Errorf("publish version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return out, nil
}

// PublishedDefinition loads the currently published definition for a form
// key, ready for evaluation. The version row ID ties submissions to the
// exact definition they were scored against.
func (s *Service) PublishedDefinition(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error) {
	formKey = strings.TrimSpace(formKey)
	if formKey == "" {
		return nil, 0, ErrInvalidInput
	}

	var (
		versionID int64
		versionNo int
		raw       []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT fv.id, fv.version_no, fv.definition
		FROM form_versions fv
		JOIN forms f ON f.id = fv.form_id
		WHERE f.form_key = $1 AND fv.status = 'published'
	`, formKey).Scan(&versionID, &versionNo, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNoPublishedForm
		}
		return nil, 0, fmt.Errorf("load published definition: %w", err)
	}

	def, err := decodeDefinition(raw, formKey, versionNo)
	if err != nil {
		return nil, 0, err
	}
	return def, versionID, nil
}

// DefinitionByVersionID loads the definition a submission was created
// against, regardless of its publication status.
func (s *Service) DefinitionByVersionID(ctx context.Context, versionID int64) (*rif.FormDefinition, error) {
	if versionID <= 0 {
		return nil, ErrInvalidInput
	}

	var (
		formKey   string
		versionNo int
		raw       []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT f.form_key, fv.version_no, fv.definition
		FROM form_versions fv
		JOIN forms f ON f.id = fv.form_id
		WHERE fv.id = $1
	`, versionID).Scan(&formKey, &versionNo, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("load definition by version: %w", err)
	}

	return decodeDefinition(raw, formKey, versionNo)
}

func (s *Service) ListForms(ctx context.Context) ([]Form, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_key, title, is_active, created_at, updated_at
		FROM forms
		WHERE is_active = TRUE
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	defer rows.Close()

	items := make([]Form, 0)
	for rows.Next() {
		var f Form
		if err := rows.Scan(&f.ID, &f.FormKey, &f.Title, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forms: %w", err)
	}
	return items, nil
}

func (s *Service) ListVersions(ctx context.Context, formID int64) ([]FormVersion, error) {
	if formID <= 0 {
		return nil, ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, version_no, status, definition, created_by, created_at, published_at
		FROM form_versions
		WHERE form_id = $1
		ORDER BY version_no DESC
	`, formID)
	if err != nil {
		return nil, fmt.Errorf("query form versions: %w", err)
	}
	defer rows.Close()

	items := make([]FormVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan form version: %w", err)
		}
		items = append(items, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate form versions: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*FormVersion, error) {
	var (
		v           FormVersion
		createdBy   sql.NullInt64
		publishedAt sql.NullTime
		raw         []byte
	)
	if err := row.Scan(&v.ID, &v.FormID, &v.VersionNo, &v.Status, &raw, &createdBy, &v.CreatedAt, &publishedAt); err != nil {
		return nil, err
	}
	v.Definition = json.RawMessage(raw)
	if createdBy.Valid {
		v.CreatedBy = &createdBy.Int64
	}
	if publishedAt.Valid {
		v.PublishedAt = &publishedAt.Time
	}
	return &v, nil
}

// decodeDefinition trusts stored documents only as far as re-validation
// allows; a definition edited out-of-band still fails loudly here.
func decodeDefinition(raw []byte, formKey string, versionNo int) (*rif.FormDefinition, error) {
	def, err := rif.ParseFormDefinition(raw)
	if err != nil {
		return nil, fmt.Errorf("stored definition for %s v%d: %w", formKey, versionNo, err)
	}
	def.FormKey = formKey
	def.Version = versionNo
	return def, nil
}
