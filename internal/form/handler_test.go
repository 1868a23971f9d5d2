package form

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"riskintake/internal/rif"

	"github.com/go-chi/chi/v5"
)

type mockFormService struct {
	createFormFn          func(ctx context.Context, in CreateFormInput) (*Form, error)
	createVersionFn       func(ctx context.Context, in CreateVersionInput) (*FormVersion, error)
	publishVersionFn      func(ctx context.Context, formID int64, versionNo int) (*FormVersion, error)
	publishedDefinitionFn func(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error)
	listFormsFn           func(ctx context.Context) ([]Form, error)
	listVersionsFn        func(ctx context.Context, formID int64) ([]FormVersion, error)
}

func (m *mockFormService) CreateForm(ctx context.Context, in CreateFormInput) (*Form, error) {
	if m.createFormFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createFormFn(ctx, in)
}

func (m *mockFormService) CreateVersion(ctx context.Context, in CreateVersionInput) (*FormVersion, error) {
	if m.createVersionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createVersionFn(ctx, in)
}

func (m *mockFormService) PublishVersion(ctx context.Context, formID int64, versionNo int) (*FormVersion, error) {
	if m.publishVersionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.publishVersionFn(ctx, formID, versionNo)
}

func (m *mockFormService) PublishedDefinition(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error) {
	if m.publishedDefinitionFn == nil {
		return nil, 0, errors.New("not implemented")
	}
	return m.publishedDefinitionFn(ctx, formKey)
}

func (m *mockFormService) ListForms(ctx context.Context) ([]Form, error) {
	if m.listFormsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFormsFn(ctx)
}

func (m *mockFormService) ListVersions(ctx context.Context, formID int64) ([]FormVersion, error) {
	if m.listVersionsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listVersionsFn(ctx, formID)
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateVersionRejectsInvalidDefinition(t *testing.T) {
	h := NewHandler(&mockFormService{
		createVersionFn: func(ctx context.Context, in CreateVersionInput) (*FormVersion, error) {
			return nil, fmt.Errorf("%w: section 1: duplicate question key", rif.ErrInvalidDefinition)
		},
	})

	payload := []byte(`{"definition":{"formKey":"x","sections":[]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/1/versions", bytes.NewReader(payload))
	req = withChiParam(req, "id", "1")
	w := httptest.NewRecorder()

	h.CreateVersion(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestCreateFormDuplicateKeyConflict(t *testing.T) {
	h := NewHandler(&mockFormService{
		createFormFn: func(ctx context.Context, in CreateFormInput) (*Form, error) {
			return nil, ErrDuplicateFormKey
		},
	})

	payload := []byte(`{"form_key":"vendor_onboarding","title":"Vendor Onboarding"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestPublishNonDraftConflict(t *testing.T) {
	h := NewHandler(&mockFormService{
		publishVersionFn: func(ctx context.Context, formID int64, versionNo int) (*FormVersion, error) {
			return nil, ErrVersionNotDraft
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/1/versions/2/publish", nil)
	req = withChiParam(req, "id", "1")
	req = withChiParam(req, "versionNo", "2")
	w := httptest.NewRecorder()

	h.Publish(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestPublishedDefinitionNotFound(t *testing.T) {
	h := NewHandler(&mockFormService{
		publishedDefinitionFn: func(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error) {
			return nil, 0, ErrNoPublishedForm
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms/vendor_onboarding/definition", nil)
	req = withChiParam(req, "formKey", "vendor_onboarding")
	w := httptest.NewRecorder()

	h.PublishedDefinition(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPublishedDefinitionReturnsVersionID(t *testing.T) {
	h := NewHandler(&mockFormService{
		publishedDefinitionFn: func(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error) {
			return &rif.FormDefinition{FormKey: formKey, Version: 3}, 42, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms/vendor_onboarding/definition", nil)
	req = withChiParam(req, "formKey", "vendor_onboarding")
	w := httptest.NewRecorder()

	h.PublishedDefinition(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"version_id":42`)) {
		t.Fatalf("expected version_id in response, got %s", w.Body.String())
	}
}
