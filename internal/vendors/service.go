package vendors

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrOrgNotFound      = errors.New("organization not found")
	ErrVendorNotFound   = errors.New("vendor not found")
	ErrDuplicateVendor  = errors.New("vendor already exists in organization")
	ErrVendorReferenced = errors.New("vendor has submissions and cannot be deleted")
)

type Service struct {
	db *sql.DB
}

type Organization struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

type CreateOrganizationInput struct {
	Name    string
	Code    string
	Address string
}

type Vendor struct {
	ID           int64  `json:"id"`
	OrgID        int64  `json:"org_id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
	Category     string `json:"category,omitempty"`
	Country      string `json:"country,omitempty"`
	IsActive     bool   `json:"is_active"`
}

type VendorInput struct {
	OrgID        int64
	Name         string
	ContactEmail string
	Category     string
	Country      string
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateOrganization(ctx context.Context, actorID int64, in CreateOrganizationInput) (*Organization, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	address := strings.TrimSpace(in.Address)
	if name == "" {
		return nil, ErrInvalidInput
	}

	var org Organization
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name, code, address, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), now(), now())
		RETURNING id, name, COALESCE(code,''), COALESCE(address,'')
	`, name, code, address).Scan(&org.ID, &org.Name, &org.Code, &org.Address)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "organization_created", "organization", fmt.Sprintf("%d", org.ID), map[string]any{
		"name": org.Name,
		"code": org.Code,
	})
	return &org, nil
}

func (s *Service) UpdateOrganization(ctx context.Context, actorID, id int64, in CreateOrganizationInput) (*Organization, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	address := strings.TrimSpace(in.Address)
	if id <= 0 || name == "" {
		return nil, ErrInvalidInput
	}

	var org Organization
	err := s.db.QueryRowContext(ctx, `
		UPDATE organizations
		SET name = $2,
			code = NULLIF($3,''),
			address = NULLIF($4,''),
			updated_at = now()
		WHERE id = $1
		RETURNING id, name, COALESCE(code,''), COALESCE(address,'')
	`, id, name, code, address).Scan(&org.ID, &org.Name, &org.Code, &org.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("update organization: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "organization_updated", "organization", fmt.Sprintf("%d", org.ID), map[string]any{
		"name": org.Name,
		"code": org.Code,
	})
	return &org, nil
}

func (s *Service) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(code,''), COALESCE(address,'')
		FROM organizations
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	out := make([]Organization, 0)
	for rows.Next() {
		var it Organization
		if err := rows.Scan(&it.ID, &it.Name, &it.Code, &it.Address); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return out, nil
}

func (s *Service) CreateVendor(ctx context.Context, actorID int64, in VendorInput) (*Vendor, error) {
	if err := validateVendorInput(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vendors
			WHERE org_id = $1 AND LOWER(name) = LOWER($2)
		)
	`, in.OrgID, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check vendor: %w", err)
	}
	if exists {
		return nil, ErrDuplicateVendor
	}

	var v Vendor
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vendors (org_id, name, contact_email, category, country, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), TRUE, now(), now())
		RETURNING id, org_id, name, COALESCE(contact_email,''), COALESCE(category,''), COALESCE(country,''), is_active
	`, in.OrgID, name, strings.TrimSpace(in.ContactEmail), strings.TrimSpace(in.Category), strings.TrimSpace(in.Country)).Scan(
		&v.ID, &v.OrgID, &v.Name, &v.ContactEmail, &v.Category, &v.Country, &v.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "vendor_created", "vendor", fmt.Sprintf("%d", v.ID), map[string]any{
		"org_id": v.OrgID,
		"name":   v.Name,
	})
	return &v, nil
}

func (s *Service) UpdateVendor(ctx context.Context, actorID, id int64, in VendorInput) (*Vendor, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateVendorInput(in); err != nil {
		return nil, err
	}

	var v Vendor
	err := s.db.QueryRowContext(ctx, `
		UPDATE vendors
		SET org_id = $2,
			name = $3,
			contact_email = NULLIF($4,''),
			category = NULLIF($5,''),
			country = NULLIF($6,''),
			updated_at = now()
		WHERE id = $1
		RETURNING id, org_id, name, COALESCE(contact_email,''), COALESCE(category,''), COALESCE(country,''), is_active
	`, id, in.OrgID, strings.TrimSpace(in.Name), strings.TrimSpace(in.ContactEmail), strings.TrimSpace(in.Category), strings.TrimSpace(in.Country)).Scan(
		&v.ID, &v.OrgID, &v.Name, &v.ContactEmail, &v.Category, &v.Country, &v.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("update vendor: %w", err)
	}

	_ = s.writeAudit(ctx, actorID, "vendor_updated", "vendor", fmt.Sprintf("%d", v.ID), map[string]any{
		"org_id": v.OrgID,
		"name":   v.Name,
	})
	return &v, nil
}

func (s *Service) GetVendor(ctx context.Context, id int64) (*Vendor, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	var v Vendor
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, COALESCE(contact_email,''), COALESCE(category,''), COALESCE(country,''), is_active
		FROM vendors
		WHERE id = $1
	`, id).Scan(&v.ID, &v.OrgID, &v.Name, &v.ContactEmail, &v.Category, &v.Country, &v.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return &v, nil
}

func (s *Service) ListVendors(ctx context.Context, orgID int64, activeOnly bool) ([]Vendor, error) {
	query := `
		SELECT id, org_id, name, COALESCE(contact_email,''), COALESCE(category,''), COALESCE(country,''), is_active
		FROM vendors
		WHERE ($1 <= 0 OR org_id = $1)
	`
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	out := make([]Vendor, 0)
	for rows.Next() {
		var it Vendor
		if err := rows.Scan(&it.ID, &it.OrgID, &it.Name, &it.ContactEmail, &it.Category, &it.Country, &it.IsActive); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return out, nil
}

// DeactivateVendor soft-deletes. Vendors referenced by submissions keep their
// rows so score history stays intact.
func (s *Service) DeactivateVendor(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE vendors
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate vendor: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrVendorNotFound
	}

	_ = s.writeAudit(ctx, actorID, "vendor_deactivated", "vendor", fmt.Sprintf("%d", id), map[string]any{})
	return nil
}

func validateVendorInput(in VendorInput) error {
	if in.OrgID <= 0 || strings.TrimSpace(in.Name) == "" {
		return ErrInvalidInput
	}
	if email := strings.TrimSpace(in.ContactEmail); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: invalid contact email", ErrInvalidInput)
		}
	}
	return nil
}

func (s *Service) writeAudit(ctx context.Context, userID int64, action, entity, entityID string, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, action, entity, entity_id, payload, created_at)
		VALUES (NULLIF($1,0), $2, $3, $4, $5::jsonb, now())
	`, userID, action, entity, entityID, string(b))
	return err
}
