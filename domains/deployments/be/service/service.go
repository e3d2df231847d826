package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/requesttrace"
)

// Errors returned by the service layer.
var (
	ErrNotFound            = errors.New("deployment record not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrNoWorkspace         = errors.New("tenant has no workspace configured")
	ErrInvalidTransition   = errors.New("invalid deployment status transition")
	ErrUnknownDeployMode   = errors.New("unknown deploy mode")
	ErrNoTemplatesSelected = errors.New("no templates selected")
)

// DeployStatus is the lifecycle state of a deployed report. Rows are never
// physically deleted: removal is the archived status so log entries keep
// resolving.
type DeployStatus string

const (
	StatusPending  DeployStatus = "pending"
	StatusActive   DeployStatus = "active"
	StatusFailed   DeployStatus = "failed"
	StatusArchived DeployStatus = "archived"
)

// DeployedReport links one catalog template to one externally hosted report
// instance for one tenant.
type DeployedReport struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	TemplateID          uuid.UUID
	ExternalReportID    *string
	ExternalWorkspaceID *string
	ExternalDatasetID   *string
	Status              DeployStatus
	ErrorMessage        *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// GlobalModule and GlobalTab form the shared template hierarchy every tenant
// deploys from.
type GlobalModule struct {
	ID       uuid.UUID
	Name     string
	Position int
}

// GlobalTab points at exactly one catalog template and optionally one page
// within it. Unique by (module, name).
type GlobalTab struct {
	ID             uuid.UUID
	GlobalModuleID uuid.UUID
	Name           string
	TemplateID     uuid.UUID
	PageName       *string
	Position       int
}

// TabTemplate is the reconciler's read view of a global tab joined with its
// module and the catalog name of its template.
type TabTemplate struct {
	Tab          GlobalTab
	Module       GlobalModule
	TemplateName string
}

// OrganizationModule is a tenant's instantiation of a GlobalModule, created
// lazily on first deployment of any tab under it.
type OrganizationModule struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	GlobalModuleID uuid.UUID
	Name           string
	Position       int
	CreatedAt      time.Time
}

// TenantTab is a tenant's instantiation of a GlobalTab. Unique by
// (organization module, name); that key is what makes reconciliation
// idempotent.
type TenantTab struct {
	ID                   uuid.UUID
	OrganizationModuleID uuid.UUID
	GlobalTabID          uuid.UUID
	Name                 string
	DeployedReportID     uuid.UUID
	ExternalPageID       *string
	Position             int
	CreatedAt            time.Time
}

// LogEntry is one append-only audit record of an attempted deployment action.
type LogEntry struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	DeployedReportID *uuid.UUID
	Action           string
	Outcome          string
	Detail           *string
	ActorKind        string
	ActorUserID      *string
	CreatedAt        time.Time
}

// Log outcome values.
const (
	OutcomeDeployed string = "deployed"
	OutcomeSkipped  string = "skipped"
	OutcomeFailed   string = "failed"
	OutcomeApplied  string = "applied"
)

// Repository abstracts hierarchy and deployment persistence. EnsureXxx
// operations are check-then-act with the key's uniqueness constraint as the
// safety net: a concurrent insert of the same key returns the existing row
// with created=false instead of failing.
type Repository interface {
	ListTabTemplates(ctx context.Context) ([]TabTemplate, error)
	GlobalModule(ctx context.Context, id uuid.UUID) (GlobalModule, error)

	FindDeployedByExternalID(ctx context.Context, tenantID uuid.UUID, externalReportID string) (DeployedReport, error)
	FindDeployedByTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (DeployedReport, error)
	CreateDeployedReport(ctx context.Context, report DeployedReport) (DeployedReport, bool, error)
	UpdateDeployedStatus(ctx context.Context, id uuid.UUID, status DeployStatus, errorMessage *string) (DeployedReport, error)

	EnsureOrganizationModule(ctx context.Context, module OrganizationModule) (OrganizationModule, bool, error)
	EnsureTenantTab(ctx context.Context, tab TenantTab) (TenantTab, bool, error)

	AppendLog(ctx context.Context, entry LogEntry) error
	ListLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]LogEntry, error)
}

// WorkspaceSource supplies the tenant's external workspace identity.
type WorkspaceSource interface {
	WorkspaceID(ctx context.Context, tenantID uuid.UUID) (*string, error)
}

// WorkspaceScanner supplies the live list of externally hosted reports and
// their pages for a workspace. Implementations own transport, auth and
// timeouts; any failure surfaces as a single error for the whole scan.
type WorkspaceScanner interface {
	Scan(ctx context.Context, workspaceID string) ([]ScannedReport, error)
}

// ScannedReport is one externally hosted report discovered in a workspace.
type ScannedReport struct {
	ExternalReportID string
	Name             string
	Pages            []ScannedPage
}

// ScannedPage is one page within a scanned report.
type ScannedPage struct {
	ExternalPageID string
	Name           string
	DisplayName    string
}

// DeployMode selects the bulk-deploy entry point behavior.
type DeployMode string

const (
	ModeAuto   DeployMode = "auto"
	ModeManual DeployMode = "manual"
	ModeBulk   DeployMode = "bulk"
)

// ManualDeployment pins a template to a concrete external report instance.
type ManualDeployment struct {
	TemplateID          uuid.UUID
	ExternalReportID    string
	ExternalWorkspaceID string
	ExternalDatasetID   *string
}

// BulkDeployInput is the payload of the bulk-deploy entry point.
type BulkDeployInput struct {
	Mode        DeployMode
	TemplateIDs []uuid.UUID
	Manual      []ManualDeployment
}

// BulkDeployResult reports per-template outcomes; one bad template does not
// block the others.
type BulkDeployResult struct {
	Deployed        []DeployedReport
	AlreadyDeployed []uuid.UUID
	Failed          []TemplateFailure
}

// TemplateFailure carries the error for one template that could not be
// deployed.
type TemplateFailure struct {
	TemplateID uuid.UUID
	Error      string
}

// Service owns deployment reconciliation for tenants.
type Service struct {
	repo    Repository
	tenants WorkspaceSource
	scanner WorkspaceScanner
	logger  *zap.Logger
}

// New constructs a Service with required dependencies.
func New(repo Repository, tenants WorkspaceSource, scanner WorkspaceScanner, logger *zap.Logger) *Service {
	if repo == nil {
		panic("deployments repo is required")
	}
	if tenants == nil {
		panic("workspace source is required")
	}
	if scanner == nil {
		panic("workspace scanner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, tenants: tenants, scanner: scanner, logger: logger}
}

// BulkDeploy ensures a deployed-report row exists for each selected template.
// Auto mode creates pending rows awaiting scan confirmation; manual and bulk
// modes pin concrete external report instances and activate immediately.
// Re-selecting an already-deployed template is reported, not duplicated.
func (s *Service) BulkDeploy(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID, input BulkDeployInput) (BulkDeployResult, error) {
	switch input.Mode {
	case ModeAuto:
		if len(input.TemplateIDs) == 0 {
			return BulkDeployResult{}, ErrNoTemplatesSelected
		}
		return s.bulkDeployAuto(ctx, audit, tenantID, input.TemplateIDs), nil
	case ModeManual, ModeBulk:
		if len(input.Manual) == 0 {
			return BulkDeployResult{}, ErrNoTemplatesSelected
		}
		return s.bulkDeployManual(ctx, audit, tenantID, input.Manual), nil
	default:
		return BulkDeployResult{}, fmt.Errorf("%w: %q", ErrUnknownDeployMode, input.Mode)
	}
}

func (s *Service) bulkDeployAuto(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID, templateIDs []uuid.UUID) BulkDeployResult {
	var result BulkDeployResult
	for _, templateID := range templateIDs {
		existing, err := s.repo.FindDeployedByTemplate(ctx, tenantID, templateID)
		switch {
		case err == nil:
			result.AlreadyDeployed = append(result.AlreadyDeployed, templateID)
			s.appendLog(ctx, audit, tenantID, &existing.ID, "deploy-template", OutcomeSkipped, strPtr("template already deployed"))
			continue
		case !errors.Is(err, ErrNotFound):
			result.Failed = append(result.Failed, TemplateFailure{TemplateID: templateID, Error: err.Error()})
			s.appendLog(ctx, audit, tenantID, nil, "deploy-template", OutcomeFailed, strPtr(err.Error()))
			continue
		}

		report := DeployedReport{
			ID:         uuid.New(),
			TenantID:   tenantID,
			TemplateID: templateID,
			Status:     StatusPending,
		}
		created, wasNew, err := s.repo.CreateDeployedReport(ctx, report)
		if err != nil {
			result.Failed = append(result.Failed, TemplateFailure{TemplateID: templateID, Error: err.Error()})
			s.appendLog(ctx, audit, tenantID, nil, "deploy-template", OutcomeFailed, strPtr(err.Error()))
			continue
		}
		if !wasNew {
			result.AlreadyDeployed = append(result.AlreadyDeployed, templateID)
			s.appendLog(ctx, audit, tenantID, &created.ID, "deploy-template", OutcomeSkipped, strPtr("template already deployed"))
			continue
		}

		result.Deployed = append(result.Deployed, created)
		s.appendLog(ctx, audit, tenantID, &created.ID, "deploy-template", OutcomeDeployed, nil)
		s.logger.Info("deployed report created",
			zap.String("tenant_id", tenantID.String()),
			zap.String("template_id", templateID.String()),
			zap.String("status", string(created.Status)),
		)
	}
	return result
}

func (s *Service) bulkDeployManual(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID, selections []ManualDeployment) BulkDeployResult {
	var result BulkDeployResult
	for _, selection := range selections {
		if existing, err := s.repo.FindDeployedByExternalID(ctx, tenantID, selection.ExternalReportID); err == nil {
			result.AlreadyDeployed = append(result.AlreadyDeployed, selection.TemplateID)
			s.appendLog(ctx, audit, tenantID, &existing.ID, "deploy-template", OutcomeSkipped, strPtr("external report already linked"))
			continue
		} else if !errors.Is(err, ErrNotFound) {
			result.Failed = append(result.Failed, TemplateFailure{TemplateID: selection.TemplateID, Error: err.Error()})
			s.appendLog(ctx, audit, tenantID, nil, "deploy-template", OutcomeFailed, strPtr(err.Error()))
			continue
		}

		if existing, err := s.repo.FindDeployedByTemplate(ctx, tenantID, selection.TemplateID); err == nil {
			result.AlreadyDeployed = append(result.AlreadyDeployed, selection.TemplateID)
			s.appendLog(ctx, audit, tenantID, &existing.ID, "deploy-template", OutcomeSkipped, strPtr("template already deployed"))
			continue
		} else if !errors.Is(err, ErrNotFound) {
			result.Failed = append(result.Failed, TemplateFailure{TemplateID: selection.TemplateID, Error: err.Error()})
			s.appendLog(ctx, audit, tenantID, nil, "deploy-template", OutcomeFailed, strPtr(err.Error()))
			continue
		}

		externalReportID := selection.ExternalReportID
		externalWorkspaceID := selection.ExternalWorkspaceID
		report := DeployedReport{
			ID:                  uuid.New(),
			TenantID:            tenantID,
			TemplateID:          selection.TemplateID,
			ExternalReportID:    &externalReportID,
			ExternalWorkspaceID: &externalWorkspaceID,
			ExternalDatasetID:   selection.ExternalDatasetID,
			Status:              StatusActive,
		}
		created, wasNew, err := s.repo.CreateDeployedReport(ctx, report)
		if err != nil {
			result.Failed = append(result.Failed, TemplateFailure{TemplateID: selection.TemplateID, Error: err.Error()})
			s.appendLog(ctx, audit, tenantID, nil, "deploy-template", OutcomeFailed, strPtr(err.Error()))
			continue
		}
		if !wasNew {
			result.AlreadyDeployed = append(result.AlreadyDeployed, selection.TemplateID)
			s.appendLog(ctx, audit, tenantID, &created.ID, "deploy-template", OutcomeSkipped, strPtr("external report already linked"))
			continue
		}

		result.Deployed = append(result.Deployed, created)
		s.appendLog(ctx, audit, tenantID, &created.ID, "deploy-template", OutcomeDeployed, nil)
	}
	return result
}

// ConfirmActive transitions a pending report to active once the external host
// confirms it.
func (s *Service) ConfirmActive(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (DeployedReport, error) {
	return s.transition(ctx, audit, id, StatusActive, nil)
}

// MarkFailed records an attempt error against a pending or active report.
func (s *Service) MarkFailed(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, message string) (DeployedReport, error) {
	return s.transition(ctx, audit, id, StatusFailed, &message)
}

// Archive soft-deletes an active report. The row is retained because log
// entries reference it.
func (s *Service) Archive(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (DeployedReport, error) {
	return s.transition(ctx, audit, id, StatusArchived, nil)
}

// transition applies a status change; repositories reject illegal transitions
// with ErrInvalidTransition (see AllowedTransition).
func (s *Service) transition(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, next DeployStatus, message *string) (DeployedReport, error) {
	updated, err := s.repo.UpdateDeployedStatus(ctx, id, next, message)
	if err != nil {
		return DeployedReport{}, err
	}

	s.appendLog(ctx, audit, updated.TenantID, &updated.ID, "status-"+string(next), OutcomeApplied, message)
	return updated, nil
}

// AllowedTransition reports whether a status change is legal. Repositories
// consult it before writing.
func AllowedTransition(from, to DeployStatus) bool {
	switch to {
	case StatusActive:
		return from == StatusPending
	case StatusFailed:
		return from == StatusPending || from == StatusActive
	case StatusArchived:
		return from == StatusActive
	default:
		return false
	}
}

// DeploymentLog returns the most recent audit entries for a tenant.
func (s *Service) DeploymentLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListLog(ctx, tenantID, limit)
}

// appendLog writes an audit entry; log failures are reported but never fail
// the operation they describe.
func (s *Service) appendLog(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID, reportID *uuid.UUID, action, outcome string, detail *string) {
	entry := LogEntry{
		ID:               uuid.New(),
		TenantID:         tenantID,
		DeployedReportID: reportID,
		Action:           action,
		Outcome:          outcome,
		Detail:           detail,
		ActorKind:        string(audit.ActorKind),
		ActorUserID:      audit.UserID,
	}
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		s.logger.Error("append deployment log entry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func strPtr(s string) *string {
	return &s
}
