package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/neomorfeo/docsign/internal/domain"
)

// Setup creates a River client with the notification and appendix workers
// registered and runs River's internal migrations. The caller must call
// client.Start() to begin processing jobs and client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, blobs domain.BlobStore, maxWorkers int, logger *slog.Logger) (*Client, error) {
	driver := riversqlite.New(db)

	// River's own tables are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	logger = logger.With("system", "jobs")

	workers := river.NewWorkers()
	river.AddWorker(workers, &NotificationWorker{logger: logger})
	river.AddWorker(workers, &AppendixWorker{blobs: blobs, logger: logger})

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
