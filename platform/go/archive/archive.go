package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	deployments "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
)

// Sink stores an exported archive object under a key.
type Sink interface {
	Write(ctx context.Context, key string, contents []byte) error
}

// LogSource supplies deployment log entries for a tenant.
type LogSource interface {
	DeploymentLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]deployments.LogEntry, error)
}

// Exporter serializes a tenant's deployment log to JSONL and hands it to a
// sink. Used by the CLI for compliance exports.
type Exporter struct {
	source LogSource
	sink   Sink
	envKey string
	logger *zap.Logger
}

// NewExporter constructs an Exporter with required dependencies.
func NewExporter(source LogSource, sink Sink, envKey string, logger *zap.Logger) *Exporter {
	if source == nil {
		panic("log source is required")
	}
	if sink == nil {
		panic("sink is required")
	}
	if envKey == "" {
		panic("envKey is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{source: source, sink: sink, envKey: envKey, logger: logger}
}

// Export writes the most recent log entries for the tenant and returns the
// object key. Entries are serialized one JSON document per line.
func (e *Exporter) Export(ctx context.Context, tenantID uuid.UUID, limit int) (string, error) {
	entries, err := e.source.DeploymentLog(ctx, tenantID, limit)
	if err != nil {
		return "", fmt.Errorf("load deployment log: %w", err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := encoder.Encode(exportRecord(entry)); err != nil {
			return "", fmt.Errorf("encode log entry %s: %w", entry.ID, err)
		}
	}

	key := BuildObjectKey(e.envKey, tenantID, time.Now().UTC())
	if err := e.sink.Write(ctx, key, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write archive object: %w", err)
	}

	e.logger.Info("deployment log exported",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key", key),
		zap.Int("entries", len(entries)),
	)

	return key, nil
}

// BuildObjectKey combines the environment key, tenant and timestamp into a
// stable archive path, e.g. "dev/deployment-log/<tenant>/20260831T120000Z.jsonl".
func BuildObjectKey(envKey string, tenantID uuid.UUID, ts time.Time) string {
	env := strings.Trim(strings.TrimSpace(envKey), "/")
	return fmt.Sprintf("%s/deployment-log/%s/%s.jsonl", env, tenantID, ts.UTC().Format("20060102T150405Z"))
}

type record struct {
	ID               string  `json:"id"`
	TenantID         string  `json:"tenantId"`
	DeployedReportID *string `json:"deployedReportId,omitempty"`
	Action           string  `json:"action"`
	Outcome          string  `json:"outcome"`
	Detail           *string `json:"detail,omitempty"`
	ActorKind        string  `json:"actorKind"`
	ActorUserID      *string `json:"actorUserId,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func exportRecord(entry deployments.LogEntry) record {
	out := record{
		ID:          entry.ID.String(),
		TenantID:    entry.TenantID.String(),
		Action:      entry.Action,
		Outcome:     entry.Outcome,
		Detail:      entry.Detail,
		ActorKind:   entry.ActorKind,
		ActorUserID: entry.ActorUserID,
		CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339),
	}
	if entry.DeployedReportID != nil {
		id := entry.DeployedReportID.String()
		out.DeployedReportID = &id
	}
	return out
}
