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

	"github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
	tenants "github.com/skillsight-analytics/skillsight-saas/domains/tenants/be/service"
	platformlogging "github.com/skillsight-analytics/skillsight-saas/platform/go/logging"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/problems"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/requesttrace"
)

// Handler exposes deployment operations over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("deployments service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts report-scoped endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{reportID}/activate", h.activate)
	r.Post("/{reportID}/fail", h.fail)
	r.Post("/{reportID}/archive", h.archive)
	return r
}

// TenantRoutes mounts tenant-scoped endpoints; callers nest this under a
// tenant path carrying a tenantID URL param.
func (h *Handler) TenantRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/bulk", h.bulkDeploy)
	r.Post("/reconcile", h.reconcile)
	r.Get("/log", h.listLog)
	return r
}

type manualDeploymentPayload struct {
	TemplateID          string  `json:"templateId"`
	ExternalReportID    string  `json:"externalReportId"`
	ExternalWorkspaceID string  `json:"externalWorkspaceId"`
	ExternalDatasetID   *string `json:"externalDatasetId"`
}

type bulkDeployRequest struct {
	Mode        string                    `json:"mode"`
	TemplateIDs []string                  `json:"templateIds"`
	Manual      []manualDeploymentPayload `json:"manual"`
}

type deployedReportResponse struct {
	ID                  string  `json:"id"`
	TenantID            string  `json:"tenantId"`
	TemplateID          string  `json:"templateId"`
	ExternalReportID    *string `json:"externalReportId,omitempty"`
	ExternalWorkspaceID *string `json:"externalWorkspaceId,omitempty"`
	ExternalDatasetID   *string `json:"externalDatasetId,omitempty"`
	Status              string  `json:"status"`
	ErrorMessage        *string `json:"errorMessage,omitempty"`
}

type templateFailureResponse struct {
	TemplateID string `json:"templateId"`
	Error      string `json:"error"`
}

type bulkDeployResponse struct {
	Deployed        []deployedReportResponse  `json:"deployed"`
	AlreadyDeployed []string                  `json:"alreadyDeployed"`
	Failed          []templateFailureResponse `json:"failed"`
}

type failRequest struct {
	Message string `json:"message"`
}

type deployedTabResponse struct {
	Module           string `json:"module"`
	Tab              string `json:"tab"`
	TenantTabID      string `json:"tenantTabId"`
	DeployedReportID string `json:"deployedReportId"`
	ExternalReportID string `json:"externalReportId"`
}

type unmatchedTabResponse struct {
	Module         string   `json:"module,omitempty"`
	Tab            string   `json:"tab,omitempty"`
	ReportName     string   `json:"reportName"`
	Reason         string   `json:"reason"`
	AvailablePages []string `json:"availablePages,omitempty"`
}

type failedTabResponse struct {
	Module string `json:"module"`
	Tab    string `json:"tab"`
	Error  string `json:"error"`
}

type reconcileResponse struct {
	Deployed        []deployedTabResponse  `json:"deployed"`
	AlreadyDeployed []deployedTabResponse  `json:"alreadyDeployed"`
	Unmatched       []unmatchedTabResponse `json:"unmatched"`
	Failed          []failedTabResponse    `json:"failed"`
}

type logEntryResponse struct {
	ID               string  `json:"id"`
	DeployedReportID *string `json:"deployedReportId,omitempty"`
	Action           string  `json:"action"`
	Outcome          string  `json:"outcome"`
	Detail           *string `json:"detail,omitempty"`
	ActorKind        string  `json:"actorKind"`
	ActorUserID      *string `json:"actorUserId,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func (h *Handler) bulkDeploy(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problems.Validation(w, r, "invalid tenant id")
		return
	}

	var body bulkDeployRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problems.Validation(w, r, "invalid request body")
		return
	}

	input := service.BulkDeployInput{Mode: service.DeployMode(body.Mode)}
	for _, raw := range body.TemplateIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			problems.Validation(w, r, "invalid template id "+raw)
			return
		}
		input.TemplateIDs = append(input.TemplateIDs, id)
	}
	for _, m := range body.Manual {
		id, err := uuid.Parse(m.TemplateID)
		if err != nil {
			problems.Validation(w, r, "invalid template id "+m.TemplateID)
			return
		}
		input.Manual = append(input.Manual, service.ManualDeployment{
			TemplateID:          id,
			ExternalReportID:    m.ExternalReportID,
			ExternalWorkspaceID: m.ExternalWorkspaceID,
			ExternalDatasetID:   m.ExternalDatasetID,
		})
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	result, err := h.svc.BulkDeploy(r.Context(), audit, tenantID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := bulkDeployResponse{
		Deployed:        make([]deployedReportResponse, 0, len(result.Deployed)),
		AlreadyDeployed: make([]string, 0, len(result.AlreadyDeployed)),
		Failed:          make([]templateFailureResponse, 0, len(result.Failed)),
	}
	for _, report := range result.Deployed {
		resp.Deployed = append(resp.Deployed, toReportResponse(report))
	}
	for _, id := range result.AlreadyDeployed {
		resp.AlreadyDeployed = append(resp.AlreadyDeployed, id.String())
	}
	for _, failure := range result.Failed {
		resp.Failed = append(resp.Failed, templateFailureResponse{TemplateID: failure.TemplateID.String(), Error: failure.Error})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problems.Validation(w, r, "invalid tenant id")
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	result, err := h.svc.ReconcileWorkspace(r.Context(), audit, tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := reconcileResponse{
		Deployed:        make([]deployedTabResponse, 0, len(result.Deployed)),
		AlreadyDeployed: make([]deployedTabResponse, 0, len(result.AlreadyDeployed)),
		Unmatched:       make([]unmatchedTabResponse, 0, len(result.Unmatched)),
		Failed:          make([]failedTabResponse, 0, len(result.Failed)),
	}
	for _, tab := range result.Deployed {
		resp.Deployed = append(resp.Deployed, toDeployedTabResponse(tab))
	}
	for _, tab := range result.AlreadyDeployed {
		resp.AlreadyDeployed = append(resp.AlreadyDeployed, toDeployedTabResponse(tab))
	}
	for _, tab := range result.Unmatched {
		resp.Unmatched = append(resp.Unmatched, unmatchedTabResponse{
			Module:         tab.Module,
			Tab:            tab.Tab,
			ReportName:     tab.ReportName,
			Reason:         tab.Reason,
			AvailablePages: tab.AvailablePages,
		})
	}
	for _, tab := range result.Failed {
		resp.Failed = append(resp.Failed, failedTabResponse{Module: tab.Module, Tab: tab.Tab, Error: tab.Error})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listLog(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problems.Validation(w, r, "invalid tenant id")
		return
	}

	entries, err := h.svc.DeploymentLog(r.Context(), tenantID, queryInt(r, "limit", 100))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]logEntryResponse, 0, len(entries))
	for _, entry := range entries {
		item := logEntryResponse{
			ID:          entry.ID.String(),
			Action:      entry.Action,
			Outcome:     entry.Outcome,
			Detail:      entry.Detail,
			ActorKind:   entry.ActorKind,
			ActorUserID: entry.ActorUserID,
			CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if entry.DeployedReportID != nil {
			id := entry.DeployedReportID.String()
			item.DeployedReportID = &id
		}
		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, audit requesttrace.AuditInfo) (service.DeployedReport, error) {
		return h.svc.ConfirmActive(r.Context(), audit, id)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request) {
	var body failRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		problems.Validation(w, r, "message is required")
		return
	}
	h.transition(w, r, func(id uuid.UUID, audit requesttrace.AuditInfo) (service.DeployedReport, error) {
		return h.svc.MarkFailed(r.Context(), audit, id, body.Message)
	})
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, audit requesttrace.AuditInfo) (service.DeployedReport, error) {
		return h.svc.Archive(r.Context(), audit, id)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(uuid.UUID, requesttrace.AuditInfo) (service.DeployedReport, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "reportID"))
	if err != nil {
		problems.Validation(w, r, "invalid report id")
		return
	}

	report, err := apply(id, requesttrace.FromContextOrAnonymous(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problems.NotFound(w, r, "deployment record not found")
	case errors.Is(err, service.ErrTenantNotFound), errors.Is(err, tenants.ErrNotFound):
		problems.NotFound(w, r, "tenant not found")
	case errors.Is(err, service.ErrInvalidTransition):
		problems.Conflict(w, r, "status transition not allowed")
	case errors.Is(err, service.ErrNoWorkspace):
		problems.Conflict(w, r, "tenant has no workspace configured")
	case errors.Is(err, service.ErrUnknownDeployMode), errors.Is(err, service.ErrNoTemplatesSelected):
		problems.Validation(w, r, err.Error())
	default:
		platformlogging.FromRequest(r, h.logger).Error("deployments handler", zap.Error(err))
		problems.Internal(w, r)
	}
}

func toDeployedTabResponse(tab service.DeployedTab) deployedTabResponse {
	return deployedTabResponse{
		Module:           tab.Module,
		Tab:              tab.Tab,
		TenantTabID:      tab.TenantTabID.String(),
		DeployedReportID: tab.DeployedReportID.String(),
		ExternalReportID: tab.ExternalReportID,
	}
}

func toReportResponse(report service.DeployedReport) deployedReportResponse {
	return deployedReportResponse{
		ID:                  report.ID.String(),
		TenantID:            report.TenantID.String(),
		TemplateID:          report.TemplateID.String(),
		ExternalReportID:    report.ExternalReportID,
		ExternalWorkspaceID: report.ExternalWorkspaceID,
		ExternalDatasetID:   report.ExternalDatasetID,
		Status:              string(report.Status),
		ErrorMessage:        report.ErrorMessage,
	}
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

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
