package form

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"riskintake/internal/app/apiresp"
	"riskintake/internal/auth"
	"riskintake/internal/rif"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc formService
}

type formService interface {
	CreateForm(ctx context.Context, in CreateFormInput) (*Form, error)
	CreateVersion(ctx context.Context, in CreateVersionInput) (*FormVersion, error)
	PublishVersion(ctx context.Context, formID int64, versionNo int) (*FormVersion, error)
	PublishedDefinition(ctx context.Context, formKey string) (*rif.FormDefinition, int64, error)
	ListForms(ctx context.Context) ([]Form, error)
	ListVersions(ctx context.Context, formID int64) ([]FormVersion, error)
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type createFormRequest struct {
	FormKey string `json:"form_key"`
	Title   string `json:"title"`
}

type createVersionRequest struct {
	Definition json.RawMessage `json:"definition"`
}

type publishedDefinitionResponse struct {
	VersionID  int64               `json:"version_id"`
	Definition *rif.FormDefinition `json:"definition"`
}

func NewHandler(svc formService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListForms(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to list forms"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	created, err := h.svc.CreateForm(r.Context(), CreateFormInput{FormKey: req.FormKey, Title: req.Title})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "form_key and title are required"})
		case errors.Is(err, ErrDuplicateFormKey):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to create form"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: created})
}

func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	formID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || formID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid form id"})
		return
	}

	items, err := h.svc.ListVersions(r.Context(), formID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to list versions"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	formID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || formID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid form id"})
		return
	}

	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	createdBy := int64(0)
	if user, ok := auth.CurrentUser(r.Context()); ok {
		createdBy = user.ID
	}

	created, err := h.svc.CreateVersion(r.Context(), CreateVersionInput{
		FormID:     formID,
		Definition: req.Definition,
		CreatedBy:  createdBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "definition is required"})
		case errors.Is(err, rif.ErrInvalidDefinition):
			writeJSON(w, r, http.StatusUnprocessableEntity, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrFormNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to create version"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: created})
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	formID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || formID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid form id"})
		return
	}
	versionNo, err := strconv.Atoi(chi.URLParam(r, "versionNo"))
	if err != nil || versionNo <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid version number"})
		return
	}

	published, err := h.svc.PublishVersion(r.Context(), formID, versionNo)
	if err != nil {
		switch {
		case errors.Is(err, ErrVersionNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrVersionNotDraft):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to publish version"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: published})
}

func (h *Handler) PublishedDefinition(w http.ResponseWriter, r *http.Request) {
	formKey := chi.URLParam(r, "formKey")

	def, versionID, err := h.svc.PublishedDefinition(r.Context(), formKey)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "form key is required"})
		case errors.Is(err, ErrNoPublishedForm):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to load definition"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: publishedDefinitionResponse{VersionID: versionID, Definition: def}})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
