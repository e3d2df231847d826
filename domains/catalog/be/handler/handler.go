package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillsight-analytics/skillsight-saas/domains/catalog/be/service"
	tenants "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/service"
	platformlogging "github.com/skillsight-analytics/skillsight-saas/platform/go/logging"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/problems"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// Handler exposes catalog matching over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("catalog service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the catalog endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/templates/{templateID}", h.getTemplate)
	return r
}

// TenantRoutes mounts the tenant-scoped matching endpoint; callers nest this
// under a tenant path carrying a tenantID URL param.
func (h *Handler) TenantRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/matches", h.match)
	return r
}

type candidateResponse struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	CodeString string `json:"codeString"`
	MatchType  string `json:"matchType"`
	MatchScore int    `json:"matchScore"`
	IsDeployed bool   `json:"isDeployed"`
}

type matchResponse struct {
	Candidates    []candidateResponse `json:"candidates"`
	TotalMatching int                 `json:"totalMatching"`
	Deployed      int                 `json:"deployed"`
	Pending       int                 `json:"pending"`
}

type templateResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	CodeString string  `json:"codeString"`
	RoleName   *string `json:"roleName,omitempty"`
	IsActive   bool    `json:"isActive"`
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problems.Validation(w, r, "invalid tenant id")
		return
	}

	result, err := h.svc.MatchCatalog(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	candidates := make([]candidateResponse, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		candidates = append(candidates, candidateResponse{
			TemplateID: c.TemplateID.String(),
			Name:       c.Name,
			Category:   c.Category,
			CodeString: c.CodeString,
			MatchType:  string(c.MatchType),
			MatchScore: c.MatchScore,
			IsDeployed: c.IsDeployed,
		})
	}

	writeJSON(w, http.StatusOK, matchResponse{
		Candidates:    candidates,
		TotalMatching: result.TotalMatching,
		Deployed:      result.Deployed,
		Pending:       result.Pending,
	})
}

func (h *Handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		problems.Validation(w, r, "invalid template id")
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, templateResponse{
		ID:         t.ID.String(),
		Name:       t.Name,
		Category:   t.Category,
		CodeString: provider.BuildCodeString(t.EffectiveCodes()),
		RoleName:   t.RoleName,
		IsActive:   t.IsActive,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problems.NotFound(w, r, "catalog template not found")
	case errors.Is(err, service.ErrTenantNotFound), errors.Is(err, tenants.ErrNotFound):
		problems.NotFound(w, r, "tenant not found")
	default:
		platformlogging.FromRequest(r, h.logger).Error("catalog handler", zap.Error(err))
		problems.Internal(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
