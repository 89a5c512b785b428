package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/provisioning/be/service"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/problemdetails"
)

// Provisioner is the service surface exposed over HTTP.
type Provisioner interface {
	Provision(ctx context.Context, handle string) (service.Status, error)
	Check(ctx context.Context, handle string) (service.Status, error)
}

// ProvisionRequest is the body sent by the onboarding provisioning client.
type ProvisionRequest struct {
	BotecoUsername string `json:"boteco_username"`
}

// Handler serves the provisioning endpoint.
type Handler struct {
	svc    Provisioner
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc Provisioner, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("provisioning service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the provisioning routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/provision_org", h.Provision)
	r.Get("/api/provision_org/{username}", h.Check)
}

func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problemdetails.WriteStatus(w, r, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	status, err := h.svc.Provision(r.Context(), req.BotecoUsername)
	if err != nil {
		h.writeError(w, r, "provisionOrg", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Check(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, r, "provisionOrgCheck", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := h.logger
	if l, ok := logging.FromContext(r.Context()); ok {
		logger = l
	}

	if service.IsInvalidHandle(err) {
		logger.Warn("provisioning request rejected", zap.String("operation", op), zap.Error(err))
		problemdetails.Write(w, problemdetails.New(
			"Validation failed",
			"boteco_username must be 3 to 30 letters, digits or underscores",
			problemdetails.TypeValidation,
			http.StatusUnprocessableEntity,
			map[string][]string{"boteco_username": {"invalid"}},
		))
		return
	}

	logger.Error("provisioning operation failed", zap.String("operation", op), zap.Error(err))
	problemdetails.WriteStatus(w, r, http.StatusInternalServerError, "provisioning failed")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
