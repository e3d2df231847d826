package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/requesttrace"
)

// inMemoryRepo is a minimal in-memory impl of Repository for tests.
type inMemoryRepo struct {
	mu sync.Mutex

	tabs []TabTemplate

	reports    map[uuid.UUID]DeployedReport
	modules    map[string]OrganizationModule // tenant|globalModule
	tenantTabs map[string]TenantTab          // orgModule|name
	log        []LogEntry

	failModuleNamed string // force EnsureOrganizationModule failure for this module name
}

func newInMemoryRepo(tabs []TabTemplate) *inMemoryRepo {
	return &inMemoryRepo{
		tabs:       tabs,
		reports:    make(map[uuid.UUID]DeployedReport),
		modules:    make(map[string]OrganizationModule),
		tenantTabs: make(map[string]TenantTab),
	}
}

func (r *inMemoryRepo) ListTabTemplates(ctx context.Context) ([]TabTemplate, error) {
	return r.tabs, nil
}

func (r *inMemoryRepo) GlobalModule(ctx context.Context, id uuid.UUID) (GlobalModule, error) {
	for _, tab := range r.tabs {
		if tab.Module.ID == id {
			return tab.Module, nil
		}
	}
	return GlobalModule{}, ErrNotFound
}

func (r *inMemoryRepo) FindDeployedByExternalID(ctx context.Context, tenantID uuid.UUID, externalReportID string) (DeployedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, report := range r.reports {
		if report.TenantID == tenantID && report.Status != StatusArchived &&
			report.ExternalReportID != nil && *report.ExternalReportID == externalReportID {
			return report, nil
		}
	}
	return DeployedReport{}, ErrNotFound
}

func (r *inMemoryRepo) FindDeployedByTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (DeployedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, report := range r.reports {
		if report.TenantID == tenantID && report.TemplateID == templateID && report.Status != StatusArchived {
			return report, nil
		}
	}
	return DeployedReport{}, ErrNotFound
}

func (r *inMemoryRepo) CreateDeployedReport(ctx context.Context, report DeployedReport) (DeployedReport, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.ExternalReportID != nil {
		for _, existing := range r.reports {
			if existing.TenantID == report.TenantID && existing.Status != StatusArchived &&
				existing.ExternalReportID != nil && *existing.ExternalReportID == *report.ExternalReportID {
				return existing, false, nil
			}
		}
	}
	r.reports[report.ID] = report
	return report, true, nil
}

func (r *inMemoryRepo) UpdateDeployedStatus(ctx context.Context, id uuid.UUID, status DeployStatus, errorMessage *string) (DeployedReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return DeployedReport{}, ErrNotFound
	}
	if !AllowedTransition(report.Status, status) {
		return DeployedReport{}, ErrInvalidTransition
	}
	report.Status = status
	report.ErrorMessage = errorMessage
	r.reports[id] = report
	return report, nil
}

func (r *inMemoryRepo) EnsureOrganizationModule(ctx context.Context, module OrganizationModule) (OrganizationModule, bool, error) {
	if r.failModuleNamed != "" && module.Name == r.failModuleNamed {
		return OrganizationModule{}, false, errors.New("module creation refused")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := module.TenantID.String() + "|" + module.GlobalModuleID.String()
	if existing, ok := r.modules[key]; ok {
		return existing, false, nil
	}
	r.modules[key] = module
	return module, true, nil
}

func (r *inMemoryRepo) EnsureTenantTab(ctx context.Context, tab TenantTab) (TenantTab, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tab.OrganizationModuleID.String() + "|" + strings.ToLower(tab.Name)
	if existing, ok := r.tenantTabs[key]; ok {
		return existing, false, nil
	}
	r.tenantTabs[key] = tab
	return tab, true, nil
}

func (r *inMemoryRepo) AppendLog(ctx context.Context, entry LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, entry)
	return nil
}

func (r *inMemoryRepo) ListLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []LogEntry
	for _, entry := range r.log {
		if entry.TenantID == tenantID {
			entries = append(entries, entry)
		}
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

type stubWorkspaceSource struct {
	workspaceID *string
	err         error
}

func (s stubWorkspaceSource) WorkspaceID(ctx context.Context, tenantID uuid.UUID) (*string, error) {
	return s.workspaceID, s.err
}

type stubScanner struct {
	reports []ScannedReport
	err     error
}

func (s stubScanner) Scan(ctx context.Context, workspaceID string) ([]ScannedReport, error) {
	return s.reports, s.err
}

func strp(s string) *string {
	return &s
}

func fixtureTabs() []TabTemplate {
	opsModule := GlobalModule{ID: uuid.New(), Name: "Operations", Position: 1}
	qualityModule := GlobalModule{ID: uuid.New(), Name: "Quality", Position: 2}
	return []TabTemplate{
		{
			Tab: GlobalTab{
				ID:             uuid.New(),
				GlobalModuleID: opsModule.ID,
				Name:           "Overview",
				TemplateID:     uuid.New(),
				PageName:       strp("Summary"),
				Position:       1,
			},
			Module:       opsModule,
			TemplateName: "APTEM-BKSB-HUBSPOT - Operations Leader v1.2",
		},
		{
			Tab: GlobalTab{
				ID:             uuid.New(),
				GlobalModuleID: qualityModule.ID,
				Name:           "Audits",
				TemplateID:     uuid.New(),
				Position:       1,
			},
			Module:       qualityModule,
			TemplateName: "APTEM - Quality Review v1.0",
		},
	}
}

func fixtureScan() []ScannedReport {
	return []ScannedReport{
		{
			ExternalReportID: "ext-ops-1",
			Name:             "aptem-bksb-hubspot - operations leader v1.2",
			Pages: []ScannedPage{
				{ExternalPageID: "p1", Name: "ReportSection1", DisplayName: "Summary"},
				{ExternalPageID: "p2", Name: "ReportSection2", DisplayName: "Detail"},
			},
		},
		{
			ExternalReportID: "ext-quality-1",
			Name:             "APTEM - Quality Review v1.0",
			Pages: []ScannedPage{
				{ExternalPageID: "p3", Name: "ReportSection1", DisplayName: "Audits"},
			},
		},
	}
}

func testAudit() requesttrace.AuditInfo {
	userID := "operator-1"
	return requesttrace.AuditInfo{ActorKind: requesttrace.ActorKindUser, UserID: &userID}
}

func newTestService(repo Repository, scanner WorkspaceScanner) *Service {
	return New(repo, stubWorkspaceSource{workspaceID: strp("ws-1")}, scanner, zap.NewNop())
}

func TestReconcileWorkspaceDeploysMatchedTabs(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	svc := newTestService(repo, stubScanner{reports: fixtureScan()})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Deployed, 2)
	require.Empty(t, result.AlreadyDeployed)
	require.Empty(t, result.Unmatched)
	require.Empty(t, result.Failed)

	require.Equal(t, "Operations", result.Deployed[0].Module)
	require.Equal(t, "Overview", result.Deployed[0].Tab)
	require.Equal(t, "ext-ops-1", result.Deployed[0].ExternalReportID)
	require.Equal(t, "Quality", result.Deployed[1].Module)

	require.Len(t, repo.reports, 2)
	require.Len(t, repo.modules, 2)
	require.Len(t, repo.tenantTabs, 2)
	for _, report := range repo.reports {
		require.Equal(t, StatusActive, report.Status)
	}
}

func TestReconcileWorkspaceIsIdempotent(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	svc := newTestService(repo, stubScanner{reports: fixtureScan()})
	tenantID := uuid.New()

	first, err := svc.ReconcileWorkspace(context.Background(), testAudit(), tenantID)
	require.NoError(t, err)
	require.Len(t, first.Deployed, 2)

	reportsAfterFirst := len(repo.reports)
	tabsAfterFirst := len(repo.tenantTabs)

	second, err := svc.ReconcileWorkspace(context.Background(), testAudit(), tenantID)
	require.NoError(t, err)

	require.Empty(t, second.Deployed)
	require.Len(t, second.AlreadyDeployed, len(first.Deployed)+len(first.AlreadyDeployed))
	require.Equal(t, reportsAfterFirst, len(repo.reports))
	require.Equal(t, tabsAfterFirst, len(repo.tenantTabs))
}

func TestReconcileWorkspaceReportNotFound(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	scan := fixtureScan()[:1] // quality report missing from the workspace
	svc := newTestService(repo, stubScanner{reports: scan})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Deployed, 1)
	require.Len(t, result.Unmatched, 1)
	require.Equal(t, ReasonReportNotFound, result.Unmatched[0].Reason)
	require.Equal(t, "Audits", result.Unmatched[0].Tab)
}

func TestReconcileWorkspacePageNotFoundListsPages(t *testing.T) {
	tabs := fixtureTabs()
	tabs[0].Tab.PageName = strp("Nonexistent Page")
	tabs[0].Tab.Name = "Also Missing"
	repo := newInMemoryRepo(tabs[:1])
	svc := newTestService(repo, stubScanner{reports: fixtureScan()[:1]})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)

	require.Empty(t, result.Deployed)
	require.Len(t, result.Unmatched, 1)
	require.Equal(t, ReasonPageNotFound, result.Unmatched[0].Reason)
	require.Equal(t, []string{"Summary", "Detail"}, result.Unmatched[0].AvailablePages)
}

func TestReconcileWorkspacePageFallsBackToTabName(t *testing.T) {
	tabs := fixtureTabs()[:1]
	tabs[0].Tab.PageName = strp("Not There")
	tabs[0].Tab.Name = "Detail" // matches the second page display name
	repo := newInMemoryRepo(tabs)
	svc := newTestService(repo, stubScanner{reports: fixtureScan()[:1]})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)
	require.Len(t, result.Deployed, 1)
}

func TestReconcileWorkspaceUnmappedReportReported(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	scan := append(fixtureScan(), ScannedReport{
		ExternalReportID: "ext-orphan",
		Name:             "Orphan Report",
	})
	svc := newTestService(repo, stubScanner{reports: scan})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	require.Equal(t, ReasonReportNotMapped, result.Unmatched[0].Reason)
	require.Equal(t, "Orphan Report", result.Unmatched[0].ReportName)
}

func TestReconcileWorkspacePartialFailureIsolation(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	repo.failModuleNamed = "Operations"
	svc := newTestService(repo, stubScanner{reports: fixtureScan()})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)

	require.Len(t, result.Failed, 1)
	require.Equal(t, "Overview", result.Failed[0].Tab)
	require.Contains(t, result.Failed[0].Error, "module creation refused")

	// the independent Quality module still deploys
	require.Len(t, result.Deployed, 1)
	require.Equal(t, "Quality", result.Deployed[0].Module)
}

func TestReconcileWorkspaceNoWorkspaceConfigured(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	svc := New(repo, stubWorkspaceSource{}, stubScanner{}, zap.NewNop())

	_, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.ErrorIs(t, err, ErrNoWorkspace)
}

func TestReconcileWorkspaceScanFailureAborts(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	boom := errors.New("workspace api unavailable")
	svc := newTestService(repo, stubScanner{err: boom})

	_, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.ErrorIs(t, err, boom)
	require.Empty(t, repo.reports)
}

func TestReconcileWorkspaceDuplicateReportNamesFirstWins(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs()[:1])
	scan := fixtureScan()[:1]
	dup := scan[0]
	dup.ExternalReportID = "ext-dup"
	scan = append(scan, dup)
	svc := newTestService(repo, stubScanner{reports: scan})

	result, err := svc.ReconcileWorkspace(context.Background(), testAudit(), uuid.New())
	require.NoError(t, err)
	require.Len(t, result.Deployed, 1)
	require.Equal(t, "ext-ops-1", result.Deployed[0].ExternalReportID)
}

func TestReconcileWorkspaceLogsEveryAction(t *testing.T) {
	repo := newInMemoryRepo(fixtureTabs())
	svc := newTestService(repo, stubScanner{reports: fixtureScan()})
	tenantID := uuid.New()

	_, err := svc.ReconcileWorkspace(context.Background(), testAudit(), tenantID)
	require.NoError(t, err)

	entries, err := svc.DeploymentLog(context.Background(), tenantID, 50)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	actions := make(map[string]int)
	for _, entry := range entries {
		require.Equal(t, string(requesttrace.ActorKindUser), entry.ActorKind)
		actions[entry.Action]++
	}
	require.Equal(t, 2, actions["link-report"])
	require.Equal(t, 2, actions["create-module"])
	require.Equal(t, 2, actions["create-tab"])
}
