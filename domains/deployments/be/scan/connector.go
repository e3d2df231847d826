// Package scan implements the workspace scanner over the embedded-BI host's
// REST API. The deployments service only sees the WorkspaceScanner interface;
// transport, auth and fan-out live here.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
)

const defaultPageFetchConcurrency = 4

// Config carries the knobs for the HTTP connector.
type Config struct {
	// BaseURL of the embedded-BI REST API, e.g. https://api.bi-host.example/v1.
	BaseURL string
	// Token is sent as a bearer credential on every call.
	Token string
	// Timeout bounds each individual HTTP call. Zero selects a sane default.
	Timeout time.Duration
	// PageFetchConcurrency caps parallel per-report page requests.
	PageFetchConcurrency int
}

// Connector talks to the embedded-BI host. Implements service.WorkspaceScanner.
type Connector struct {
	baseURL     string
	token       string
	client      *http.Client
	concurrency int
}

// NewConnector builds a Connector from config.
func NewConnector(cfg Config) (*Connector, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bi api base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse bi api base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	concurrency := cfg.PageFetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultPageFetchConcurrency
	}

	return &Connector{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
	}, nil
}

// wire shapes of the BI host API.
type apiReport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiReportList struct {
	Value []apiReport `json:"value"`
}

type apiPage struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type apiPageList struct {
	Value []apiPage `json:"value"`
}

// Scan lists the workspace's reports, fetches their pages concurrently and
// joins the results back by report identity. Any failed call fails the whole
// scan: a partial feed would make the reconciler draw wrong conclusions about
// what is missing.
func (c *Connector) Scan(ctx context.Context, workspaceID string) ([]service.ScannedReport, error) {
	var reportList apiReportList
	if err := c.getJSON(ctx, fmt.Sprintf("/workspaces/%s/reports", url.PathEscape(workspaceID)), &reportList); err != nil {
		return nil, fmt.Errorf("list workspace reports: %w", err)
	}

	scanned := make([]service.ScannedReport, len(reportList.Value))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for i, report := range reportList.Value {
		group.Go(func() error {
			var pageList apiPageList
			path := fmt.Sprintf("/workspaces/%s/reports/%s/pages", url.PathEscape(workspaceID), url.PathEscape(report.ID))
			if err := c.getJSON(groupCtx, path, &pageList); err != nil {
				return fmt.Errorf("fetch pages for report %s: %w", report.ID, err)
			}

			pages := make([]service.ScannedPage, 0, len(pageList.Value))
			for _, page := range pageList.Value {
				pages = append(pages, service.ScannedPage{
					ExternalPageID: page.Name,
					Name:           page.Name,
					DisplayName:    page.DisplayName,
				})
			}
			scanned[i] = service.ScannedReport{
				ExternalReportID: report.ID,
				Name:             report.Name,
				Pages:            pages,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return scanned, nil
}

func (c *Connector) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bi api returned %s for %s", resp.Status, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}

// Ensure interface compliance.
var _ service.WorkspaceScanner = (*Connector)(nil)
