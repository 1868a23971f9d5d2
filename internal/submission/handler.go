package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"riskintake/internal/app/apiresp"
	"riskintake/internal/auth"
	"riskintake/internal/form"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc submissionService
}

type submissionService interface {
	StartSubmission(ctx context.Context, in StartSubmissionInput) (*Submission, error)
	SaveAnswers(ctx context.Context, in SaveAnswersInput) error
	Submit(ctx context.Context, submissionID, actorID int64) (*ScoreRecord, error)
	AssignReviewer(ctx context.Context, submissionID, reviewerID, actorID int64) (*Submission, error)
	Review(ctx context.Context, in ReviewInput) (*Submission, error)
	GetSummary(ctx context.Context, submissionID int64) (*SubmissionSummary, error)
	ScoreHistory(ctx context.Context, submissionID int64) ([]ScoreRecord, error)
	GetOwner(ctx context.Context, submissionID int64) (int64, error)
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type startSubmissionRequest struct {
	FormKey            string `json:"form_key"`
	VendorID           int64  `json:"vendor_id"`
	AssignedReviewerID int64  `json:"assigned_reviewer_id"`
}

type saveAnswersRequest struct {
	Answers []AnswerInput `json:"answers"`
}

type assignReviewerRequest struct {
	ReviewerID int64 `json:"reviewer_id"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

func NewHandler(svc submissionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return
	}

	created, err := h.svc.StartSubmission(r.Context(), StartSubmissionInput{
		FormKey:            req.FormKey,
		VendorID:           req.VendorID,
		CreatedBy:          user.ID,
		AssignedReviewerID: req.AssignedReviewerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "form_key and vendor_id are required"})
		case errors.Is(err, form.ErrNoPublishedForm):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "failed to start submission"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: created})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	submissionID, _, ok := h.authorize(w, r, false)
	if !ok {
		return
	}

	summary, err := h.svc.GetSummary(r.Context(), submissionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: summary})
}

func (h *Handler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	submissionID, _, ok := h.authorize(w, r, true)
	if !ok {
		return
	}

	var req saveAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	err := h.svc.SaveAnswers(r.Context(), SaveAnswersInput{
		SubmissionID: submissionID,
		Answers:      req.Answers,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrSubmissionNotEditable):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrQuestionNotInForm):
			writeJSON(w, r, http.StatusUnprocessableEntity, response{OK: false, Error: err.Error()})
		default:
			h.writeServiceError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	submissionID, user, ok := h.authorize(w, r, true)
	if !ok {
		return
	}

	record, err := h.svc.Submit(r.Context(), submissionID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSubmissionNotEditable):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrMissingRequired):
			writeJSON(w, r, http.StatusUnprocessableEntity, response{OK: false, Error: err.Error()})
		default:
			h.writeServiceError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: record})
}

func (h *Handler) ScoreHistory(w http.ResponseWriter, r *http.Request) {
	submissionID, _, ok := h.authorize(w, r, false)
	if !ok {
		return
	}

	items, err := h.svc.ScoreHistory(r.Context(), submissionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) AssignReviewer(w http.ResponseWriter, r *http.Request) {
	submissionID, err := parseID(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid submission id"})
		return
	}

	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return
	}

	var req assignReviewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	updated, err := h.svc.AssignReviewer(r.Context(), submissionID, req.ReviewerID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "reviewer_id is required"})
		case errors.Is(err, ErrInvalidStatusTransition):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		default:
			h.writeServiceError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: updated})
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	submissionID, err := parseID(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid submission id"})
		return
	}

	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if req.Decision != "approve" && req.Decision != "reject" {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "decision must be approve or reject"})
		return
	}

	updated, err := h.svc.Review(r.Context(), ReviewInput{
		SubmissionID: submissionID,
		ReviewerID:   user.ID,
		ActorRole:    user.Role,
		Approve:      req.Decision == "approve",
		Note:         req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatusTransition):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrNotAssignedReviewer):
			writeJSON(w, r, http.StatusForbidden, response{OK: false, Error: err.Error()})
		default:
			h.writeServiceError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: updated})
}

// authorize resolves the submission ID and enforces ownership: clients may
// only touch their own submissions, reviewers and admins may read anything,
// but edits always belong to the owner.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, editing bool) (int64, *auth.User, bool) {
	submissionID, err := parseID(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid submission id"})
		return 0, nil, false
	}

	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return 0, nil, false
	}

	owner, err := h.svc.GetOwner(r.Context(), submissionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return 0, nil, false
	}

	isPrivileged := user.Role == "admin" || user.Role == "reviewer"
	if owner != user.ID {
		if editing || !isPrivileged {
			writeJSON(w, r, http.StatusForbidden, response{OK: false, Error: "forbidden"})
			return 0, nil, false
		}
	}

	return submissionID, user, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSubmissionNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
	case errors.Is(err, form.ErrVersionNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	apiresp.Write(w, r, code, payload.OK, payload.Data, payload.Error)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
