package vendors

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type ImportRowError struct {
	Row    int    `json:"row"`
	Vendor string `json:"vendor,omitempty"`
	Error  string `json:"error"`
}

type ImportReport struct {
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	FailedRows  int              `json:"failed_rows"`
	Errors      []ImportRowError `json:"errors"`
}

func (s *Service) ExportVendorsExcel(ctx context.Context, orgID int64) ([]byte, error) {
	items, err := s.ListVendors(ctx, orgID, false)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"organization", "name", "contact_email", "category", "country", "is_active"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	orgNames, err := s.orgNamesByID(ctx)
	if err != nil {
		return nil, err
	}

	for i, it := range items {
		row := i + 2
		values := []any{
			orgNames[it.OrgID],
			it.Name,
			it.ContactEmail,
			it.Category,
			it.Country,
			it.IsActive,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "F", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportVendorsExcel upserts vendors row by row. Organizations named in the
// sheet are created on demand so a fresh deployment can be seeded from one
// file.
func (s *Service) ImportVendorsExcel(ctx context.Context, actorID int64, r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	required := []string{"organization", "name"}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		report.TotalRows++

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		orgName := get("organization")
		name := get("name")
		email := strings.ToLower(get("contact_email"))
		category := get("category")
		country := get("country")
		activeRaw := strings.ToLower(get("is_active"))

		if orgName == "" || name == "" {
			report.FailedRows++
			report.Errors = append(report.Errors, ImportRowError{
				Row:    rowNo,
				Vendor: name,
				Error:  "organization and name are required",
			})
			continue
		}
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				report.FailedRows++
				report.Errors = append(report.Errors, ImportRowError{
					Row:    rowNo,
					Vendor: name,
					Error:  "invalid contact email",
				})
				continue
			}
		}

		if err := s.importVendorRow(ctx, orgName, VendorInput{
			Name:         name,
			ContactEmail: email,
			Category:     category,
			Country:      country,
		}, parseBoolLoose(activeRaw)); err != nil {
			report.FailedRows++
			report.Errors = append(report.Errors, ImportRowError{
				Row:    rowNo,
				Vendor: name,
				Error:  err.Error(),
			})
			continue
		}
		report.SuccessRows++
	}

	_ = s.writeAudit(ctx, actorID, "vendors_import_excel", "vendor_import", "excel", map[string]any{
		"total_rows":   report.TotalRows,
		"success_rows": report.SuccessRows,
		"failed_rows":  report.FailedRows,
	})

	return report, nil
}

func (s *Service) importVendorRow(ctx context.Context, orgName string, in VendorInput, isActive bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	orgID, err := getOrCreateOrgTx(ctx, tx, orgName)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vendors (org_id, name, contact_email, category, country, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, now(), now())
		ON CONFLICT (org_id, lower(name))
		DO UPDATE SET
			contact_email = EXCLUDED.contact_email,
			category = EXCLUDED.category,
			country = EXCLUDED.country,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, orgID, in.Name, in.ContactEmail, in.Category, in.Country, isActive)
	if err != nil {
		return fmt.Errorf("upsert vendor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func getOrCreateOrgTx(ctx context.Context, tx *sql.Tx, orgName string) (int64, error) {
	var orgID int64
	err := tx.QueryRowContext(ctx, `
		SELECT id
		FROM organizations
		WHERE LOWER(name) = LOWER($1)
		LIMIT 1
	`, orgName).Scan(&orgID)
	if err == nil {
		return orgID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup organization: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO organizations (name, created_at, updated_at)
		VALUES ($1, now(), now())
		RETURNING id
	`, orgName).Scan(&orgID)
	if err != nil {
		return 0, fmt.Errorf("insert organization: %w", err)
	}
	return orgID, nil
}

func (s *Service) orgNamesByID(ctx context.Context) (map[int64]string, error) {
	orgs, err := s.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(orgs))
	for _, o := range orgs {
		out[o.ID] = o.Name
	}
	return out, nil
}

func parseBoolLoose(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return true
	}
	switch v {
	case "1", "true", "yes", "active":
		return true
	case "0", "false", "no", "inactive":
		return false
	default:
		if n, err := strconv.Atoi(v); err == nil {
			return n != 0
		}
		return true
	}
}
