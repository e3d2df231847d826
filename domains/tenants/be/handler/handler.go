package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/service"
	platformlogging "github.com/skillsight-analytics/skillsight-saas/platform/go/logging"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/problems"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// Handler exposes the tenant registry over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the tenant endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{tenantID}", h.get)
	r.Patch("/{tenantID}", h.update)
	return r
}

type codesPayload struct {
	LMS          *string `json:"lms,omitempty"`
	EnglishMaths *string `json:"englishMaths,omitempty"`
	CRM          *string `json:"crm,omitempty"`
	HR           *string `json:"hr,omitempty"`
}

type tenantResponse struct {
	ID                  string       `json:"id"`
	Slug                string       `json:"slug"`
	DisplayName         *string      `json:"displayName,omitempty"`
	Codes               codesPayload `json:"providerCodes"`
	ExternalWorkspaceID *string      `json:"externalWorkspaceId,omitempty"`
	IsActive            bool         `json:"isActive"`
	CreatedAt           string       `json:"createdAt"`
	UpdatedAt           string       `json:"updatedAt"`
}

type createTenantRequest struct {
	Slug                string        `json:"slug"`
	DisplayName         *string       `json:"displayName"`
	Codes               *codesPayload `json:"providerCodes"`
	ExternalWorkspaceID *string       `json:"externalWorkspaceId"`
}

type updateTenantRequest struct {
	DisplayName         *string       `json:"displayName"`
	Codes               *codesPayload `json:"providerCodes"`
	ExternalWorkspaceID *string       `json:"externalWorkspaceId"`
}

type tenantListResponse struct {
	Items      []tenantResponse `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "pageSize", 20),
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]tenantResponse, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, toResponse(t))
	}

	writeJSON(w, http.StatusOK, tenantListResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problems.Validation(w, r, "invalid request body")
		return
	}

	input := service.CreateInput{
		Slug:                body.Slug,
		DisplayName:         body.DisplayName,
		Codes:               toCodes(body.Codes),
		ExternalWorkspaceID: body.ExternalWorkspaceID,
	}

	t, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/admin/tenants/%s", t.ID))
	writeJSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problems.Validation(w, r, "invalid tenant id")
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problems.Validation(w, r, "invalid tenant id")
		return
	}

	var body updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problems.Validation(w, r, "invalid request body")
		return
	}

	input := service.UpdateInput{
		DisplayName:         body.DisplayName,
		ExternalWorkspaceID: body.ExternalWorkspaceID,
	}
	if body.Codes != nil {
		codes := toCodes(body.Codes)
		input.Codes = &codes
	}

	t, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problems.NotFound(w, r, "tenant not found")
	case errors.Is(err, service.ErrConflictSlug):
		problems.Conflict(w, r, "tenant slug already exists")
	case errors.Is(err, service.ErrSlugRequired), errors.Is(err, service.ErrInvalidCode):
		problems.Validation(w, r, err.Error())
	default:
		platformlogging.FromRequest(r, h.logger).Error("tenants handler", zap.Error(err))
		problems.Internal(w, r)
	}
}

func toCodes(p *codesPayload) provider.Codes {
	if p == nil {
		return provider.Codes{}
	}
	return provider.Codes{LMS: p.LMS, EnglishMaths: p.EnglishMaths, CRM: p.CRM, HR: p.HR}
}

func toResponse(t service.Tenant) tenantResponse {
	return tenantResponse{
		ID:          t.ID.String(),
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Codes: codesPayload{
			LMS:          t.Codes.LMS,
			EnglishMaths: t.Codes.EnglishMaths,
			CRM:          t.Codes.CRM,
			HR:           t.Codes.HR,
		},
		ExternalWorkspaceID: t.ExternalWorkspaceID,
		IsActive:            t.IsActive,
		CreatedAt:           t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v < 1 {
		return def
	}
	return v
}
