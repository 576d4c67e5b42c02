// internal/circulation/handler.go
package circulation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libracirc/internal/clients"
	"libracirc/internal/eventstore"
	"libracirc/internal/platform/logger"
	"libracirc/internal/platform/validate"
	"libracirc/internal/policy"
	"libracirc/internal/rules"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the circulation endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/circulation", func(r chi.Router) {
		r.Post("/loans/due-date", h.HandleDueDate)
		r.Post("/loans/renew", h.HandleRenew)
		r.Post("/loans/override-renew", h.HandleOverrideRenew)
		r.Post("/loans/recall", h.HandleRecall)
		r.Get("/loans/{id}/events", h.HandleHistory)
		r.Get("/loan-policies/{id}", h.HandleGetPolicy)
	})
}

func (h *Handler) HandleDueDate(w http.ResponseWriter, r *http.Request) {
	var req DueDateRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.service.DueDate(r.Context(), &req.Loan, req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.service.Renew(r.Context(), &req.Loan)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleOverrideRenew(w http.ResponseWriter, r *http.Request) {
	var req OverrideRenewRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.service.OverrideRenew(r.Context(), &req.Loan, req.DueDate, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleRecall(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.service.Recall(r.Context(), &req.Loan)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	out, err := h.service.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads and validates the body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := codec.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var fields validate.Errors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
			return false
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if vf, ok := policy.AsValidationFailure(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": vf.Errors})
		return
	}

	switch {
	case errors.Is(err, policy.ErrDocumentNotFound),
		errors.Is(err, clients.ErrNotFound),
		errors.Is(err, rules.ErrNoMatchingRule):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		logger.C(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"errors": []map[string]string{{"message": msg}}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = codec.NewEncoder(w).Encode(v)
}
