// Package export archives per-tenant deployment logs to GCS or the local
// filesystem for compliance retention.
package export

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	deploymentsrepo "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/repo"
	deploymentsservice "github.com/skillsight-analytics/skillsight-saas/domains/deployments/be/service"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/archive"
	"github.com/skillsight-analytics/skillsight-saas/platform/go/persistence"
)

// logSource adapts the deployments repository to the exporter without pulling
// in the workspace scanner the full service requires.
type logSource struct {
	repo *deploymentsrepo.PostgresRepository
}

func (s logSource) DeploymentLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]deploymentsservice.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListLog(ctx, tenantID, limit)
}

// Command groups export helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit data for retention",
	}

	cmd.AddCommand(deploymentLogCommand())
	return cmd
}

func deploymentLogCommand() *cobra.Command {
	var (
		databaseURL string
		tenantID    string
		envKey      string
		limit       int
		backend     string
		bucket      string
		localDir    string
	)

	c := &cobra.Command{
		Use:   "deployment-log",
		Short: "Export a tenant's deployment log as JSONL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			tid, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}

			var sink archive.Sink
			switch backend {
			case "gcs":
				if bucket == "" {
					return fmt.Errorf("--bucket is required when --backend=gcs")
				}
				client, err := storage.NewClient(ctx)
				if err != nil {
					return fmt.Errorf("init gcs client: %w", err)
				}
				defer client.Close()
				sink = archive.NewGCSSink(client, bucket)
			case "local":
				if strings.TrimSpace(localDir) == "" {
					return fmt.Errorf("--dir is required when --backend=local")
				}
				sink = archive.NewLocalSink(localDir)
			default:
				return fmt.Errorf("invalid backend %q (use gcs or local)", backend)
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			exporter := archive.NewExporter(
				logSource{repo: deploymentsrepo.NewPostgresRepository(pool)},
				sink, envKey, nil,
			)

			key, err := exporter.Export(ctx, tid, limit)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deployment log exported to %s\n", key)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&tenantID, "tenant-id", "", "tenant UUID to export")
	c.Flags().StringVar(&envKey, "env-key", "dev", "environment key prefix for the archive path")
	c.Flags().IntVar(&limit, "limit", 1000, "maximum number of entries to export")
	c.Flags().StringVar(&backend, "backend", "gcs", "archive backend (gcs or local)")
	c.Flags().StringVar(&bucket, "bucket", "", "GCS bucket name (backend=gcs)")
	c.Flags().StringVar(&localDir, "dir", "./.data/archive", "local directory (backend=local)")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("tenant-id")

	return c
}
