package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/requesttrace"
)

// Unmatched diagnostic reasons. An empty match is an expected outcome, so
// these travel in the result rather than as errors.
const (
	ReasonReportNotFound  = "report not found in workspace"
	ReasonPageNotFound    = "page not found"
	ReasonReportNotMapped = "report not mapped to any tab"
)

// DeployedTab reports one tab fully linked during a reconciliation run.
type DeployedTab struct {
	Module           string
	Tab              string
	TenantTabID      uuid.UUID
	DeployedReportID uuid.UUID
	ExternalReportID string
}

// UnmatchedTab is a first-class diagnostic for an operator: why a tab (or a
// scanned report) could not be linked. AvailablePages is populated for page
// misses so the operator can see what the workspace actually offers.
type UnmatchedTab struct {
	Module         string
	Tab            string
	ReportName     string
	Reason         string
	AvailablePages []string
}

// FailedTab carries the underlying error for one tab whose ensure steps
// failed. Other tabs keep processing.
type FailedTab struct {
	Module string
	Tab    string
	Error  string
}

// ReconcileResult summarises one workspace-scan reconciliation run.
type ReconcileResult struct {
	Deployed        []DeployedTab
	AlreadyDeployed []DeployedTab
	Unmatched       []UnmatchedTab
	Failed          []FailedTab
}

// ReconcileWorkspace scans the tenant's external workspace and converges the
// tenant's module/tab hierarchy onto it: for every global tab whose template
// name matches a scanned report, it ensures a deployed report, an organization
// module and a tenant tab exist. Repeated runs against an unchanged feed make
// no further writes. Per-tab failures are accumulated; only configuration and
// connector failures abort the run.
func (s *Service) ReconcileWorkspace(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID) (ReconcileResult, error) {
	workspaceID, err := s.tenants.WorkspaceID(ctx, tenantID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("resolve tenant workspace: %w", err)
	}
	if workspaceID == nil || strings.TrimSpace(*workspaceID) == "" {
		return ReconcileResult{}, ErrNoWorkspace
	}

	scanned, err := s.scanner.Scan(ctx, *workspaceID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("scan workspace %s: %w", *workspaceID, err)
	}

	tabs, err := s.repo.ListTabTemplates(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list global tabs: %w", err)
	}

	// Tabs are processed in (module position, tab position) order so the audit
	// log reads the same way run after run.
	sort.Slice(tabs, func(i, j int) bool {
		if tabs[i].Module.Position != tabs[j].Module.Position {
			return tabs[i].Module.Position < tabs[j].Module.Position
		}
		return tabs[i].Tab.Position < tabs[j].Tab.Position
	})

	reportsByName := indexReportsByName(scanned, s.logger)

	var result ReconcileResult
	mappedReports := make(map[string]struct{}, len(tabs))
	for _, tab := range tabs {
		report, ok := reportsByName[strings.ToLower(tab.TemplateName)]
		if !ok {
			result.Unmatched = append(result.Unmatched, UnmatchedTab{
				Module:     tab.Module.Name,
				Tab:        tab.Tab.Name,
				ReportName: tab.TemplateName,
				Reason:     ReasonReportNotFound,
			})
			continue
		}
		mappedReports[strings.ToLower(report.Name)] = struct{}{}

		page, ok := findPage(report, tab)
		if !ok {
			result.Unmatched = append(result.Unmatched, UnmatchedTab{
				Module:         tab.Module.Name,
				Tab:            tab.Tab.Name,
				ReportName:     report.Name,
				Reason:         ReasonPageNotFound,
				AvailablePages: pageNames(report),
			})
			continue
		}

		s.reconcileTab(ctx, audit, tenantID, *workspaceID, tab, report, page, &result)
	}

	for _, report := range scanned {
		if _, ok := mappedReports[strings.ToLower(report.Name)]; ok {
			continue
		}
		result.Unmatched = append(result.Unmatched, UnmatchedTab{
			ReportName: report.Name,
			Reason:     ReasonReportNotMapped,
		})
	}

	s.logger.Info("workspace reconciliation finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("workspace_id", *workspaceID),
		zap.Int("deployed", len(result.Deployed)),
		zap.Int("already_deployed", len(result.AlreadyDeployed)),
		zap.Int("unmatched", len(result.Unmatched)),
		zap.Int("failed", len(result.Failed)),
	)

	return result, nil
}

// reconcileTab runs the three ensure steps for one matched tab. Each failure
// is logged and recorded; the caller moves on to the next tab.
func (s *Service) reconcileTab(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID, workspaceID string, tab TabTemplate, report ScannedReport, page ScannedPage, result *ReconcileResult) {
	deployed, err := s.ensureDeployedReport(ctx, audit, tenantID, workspaceID, tab, report)
	if err != nil {
		result.Failed = append(result.Failed, FailedTab{Module: tab.Module.Name, Tab: tab.Tab.Name, Error: err.Error()})
		s.appendLog(ctx, audit, tenantID, nil, "link-report", OutcomeFailed, strPtr(err.Error()))
		return
	}

	module, moduleCreated, err := s.repo.EnsureOrganizationModule(ctx, OrganizationModule{
		ID:             uuid.New(),
		TenantID:       tenantID,
		GlobalModuleID: tab.Module.ID,
		Name:           tab.Module.Name,
		Position:       tab.Module.Position,
	})
	if err != nil {
		result.Failed = append(result.Failed, FailedTab{Module: tab.Module.Name, Tab: tab.Tab.Name, Error: err.Error()})
		s.appendLog(ctx, audit, tenantID, &deployed.ID, "create-module", OutcomeFailed, strPtr(err.Error()))
		return
	}
	if moduleCreated {
		s.appendLog(ctx, audit, tenantID, &deployed.ID, "create-module", OutcomeDeployed, strPtr(module.Name))
	}

	pageID := page.ExternalPageID
	tenantTab, tabCreated, err := s.repo.EnsureTenantTab(ctx, TenantTab{
		ID:                   uuid.New(),
		OrganizationModuleID: module.ID,
		GlobalTabID:          tab.Tab.ID,
		Name:                 tab.Tab.Name,
		DeployedReportID:     deployed.ID,
		ExternalPageID:       &pageID,
		Position:             tab.Tab.Position,
	})
	if err != nil {
		result.Failed = append(result.Failed, FailedTab{Module: tab.Module.Name, Tab: tab.Tab.Name, Error: err.Error()})
		s.appendLog(ctx, audit, tenantID, &deployed.ID, "create-tab", OutcomeFailed, strPtr(err.Error()))
		return
	}

	entry := DeployedTab{
		Module:           tab.Module.Name,
		Tab:              tab.Tab.Name,
		TenantTabID:      tenantTab.ID,
		DeployedReportID: deployed.ID,
		ExternalReportID: report.ExternalReportID,
	}
	if !tabCreated {
		result.AlreadyDeployed = append(result.AlreadyDeployed, entry)
		s.appendLog(ctx, audit, tenantID, &deployed.ID, "create-tab", OutcomeSkipped, strPtr("tab already deployed"))
		return
	}

	result.Deployed = append(result.Deployed, entry)
	s.appendLog(ctx, audit, tenantID, &deployed.ID, "create-tab", OutcomeDeployed, strPtr(tab.Module.Name+"/"+tab.Tab.Name))
}

// ensureDeployedReport reuses the row linked to the discovered external report
// id when present, otherwise creates one. Scan discovery is treated as
// external confirmation, so new rows start active.
func (s *Service) ensureDeployedReport(ctx context.Context, audit requesttrace.AuditInfo, tenantID uuid.UUID, workspaceID string, tab TabTemplate, report ScannedReport) (DeployedReport, error) {
	existing, err := s.repo.FindDeployedByExternalID(ctx, tenantID, report.ExternalReportID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return DeployedReport{}, err
	}

	externalReportID := report.ExternalReportID
	created, wasNew, err := s.repo.CreateDeployedReport(ctx, DeployedReport{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		TemplateID:          tab.Tab.TemplateID,
		ExternalReportID:    &externalReportID,
		ExternalWorkspaceID: &workspaceID,
		Status:              StatusActive,
	})
	if err != nil {
		return DeployedReport{}, err
	}
	if wasNew {
		s.appendLog(ctx, audit, tenantID, &created.ID, "link-report", OutcomeDeployed, strPtr(report.Name))
	}
	return created, nil
}

// indexReportsByName builds a case-insensitive name index over the scan feed.
// Duplicate names are resolved first-wins and logged for the operator.
func indexReportsByName(scanned []ScannedReport, logger *zap.Logger) map[string]ScannedReport {
	byName := make(map[string]ScannedReport, len(scanned))
	for _, report := range scanned {
		key := strings.ToLower(report.Name)
		if _, dup := byName[key]; dup {
			logger.Warn("duplicate report name in workspace scan, keeping first",
				zap.String("name", report.Name),
				zap.String("external_report_id", report.ExternalReportID),
			)
			continue
		}
		byName[key] = report
	}
	return byName
}

// findPage locates the tab's target page: the configured page name first, the
// tab name as fallback, both case-insensitive against name and display name.
func findPage(report ScannedReport, tab TabTemplate) (ScannedPage, bool) {
	wanted := tab.Tab.Name
	if tab.Tab.PageName != nil && strings.TrimSpace(*tab.Tab.PageName) != "" {
		wanted = *tab.Tab.PageName
	}
	for _, page := range report.Pages {
		if strings.EqualFold(page.DisplayName, wanted) || strings.EqualFold(page.Name, wanted) {
			return page, true
		}
	}
	// fallback to the tab name when a configured page name missed
	if wanted != tab.Tab.Name {
		for _, page := range report.Pages {
			if strings.EqualFold(page.DisplayName, tab.Tab.Name) || strings.EqualFold(page.Name, tab.Tab.Name) {
				return page, true
			}
		}
	}
	return ScannedPage{}, false
}

func pageNames(report ScannedReport) []string {
	names := make([]string, 0, len(report.Pages))
	for _, page := range report.Pages {
		if page.DisplayName != "" {
			names = append(names, page.DisplayName)
			continue
		}
		names = append(names, page.Name)
	}
	return names
}
