package report

import (
	"errors"
	"net/http"
	"strconv"

	"riskintake/internal/app/apiresp"
)

type Handler struct {
	svc *Service
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RiskDistribution(w http.ResponseWriter, r *http.Request) {
	formKey := r.URL.Query().Get("form_key")

	dist, err := h.svc.RiskDistributionByForm(r.Context(), formKey)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "form_key is required"})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "failed to compute risk distribution"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: dist})
}

func (h *Handler) VendorSummaries(w http.ResponseWriter, r *http.Request) {
	orgID, _ := strconv.ParseInt(r.URL.Query().Get("org_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.VendorSummaries(r.Context(), orgID, limit, offset)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "failed to list vendor summaries"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) FormOverviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.FormOverviews(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "failed to list form overviews"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	apiresp.Write(w, r, code, payload.OK, payload.Data, payload.Error)
}
