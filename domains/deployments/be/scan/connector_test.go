package scan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, pageCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/workspaces/ws-1/reports", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{
				{"id": "rep-1", "name": "Operations Leader"},
				{"id": "rep-2", "name": "Quality Review"},
			},
		})
	})
	mux.HandleFunc("/workspaces/ws-1/reports/rep-1/pages", func(w http.ResponseWriter, r *http.Request) {
		pageCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{
				{"name": "ReportSection1", "displayName": "Summary"},
				{"name": "ReportSection2", "displayName": "Detail"},
			},
		})
	})
	mux.HandleFunc("/workspaces/ws-1/reports/rep-2/pages", func(w http.ResponseWriter, r *http.Request) {
		pageCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{
				{"name": "ReportSection1", "displayName": "Audits"},
			},
		})
	})

	return httptest.NewServer(mux)
}

func TestScanJoinsPagesByReport(t *testing.T) {
	var pageCalls atomic.Int32
	server := newTestServer(t, &pageCalls)
	defer server.Close()

	connector, err := NewConnector(Config{BaseURL: server.URL, Token: "test-token"})
	require.NoError(t, err)

	scanned, err := connector.Scan(context.Background(), "ws-1")
	require.NoError(t, err)

	require.Len(t, scanned, 2)
	require.Equal(t, "rep-1", scanned[0].ExternalReportID)
	require.Equal(t, "Operations Leader", scanned[0].Name)
	require.Len(t, scanned[0].Pages, 2)
	require.Equal(t, "Summary", scanned[0].Pages[0].DisplayName)
	require.Equal(t, "rep-2", scanned[1].ExternalReportID)
	require.Len(t, scanned[1].Pages, 1)
	require.Equal(t, int32(2), pageCalls.Load())
}

func TestScanFailsWholesaleOnPageError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/workspaces/ws-1/reports", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{{"id": "rep-1", "name": "Operations Leader"}},
		})
	})
	mux.HandleFunc("/workspaces/ws-1/reports/rep-1/pages", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	connector, err := NewConnector(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = connector.Scan(context.Background(), "ws-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rep-1")
}

func TestScanFailsOnListError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	connector, err := NewConnector(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = connector.Scan(context.Background(), "ws-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "list workspace reports")
}

func TestNewConnectorRequiresBaseURL(t *testing.T) {
	_, err := NewConnector(Config{})
	require.Error(t, err)
}
