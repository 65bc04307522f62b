package river

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/docsign/internal/domain"
)

// NotificationWorker hands notifications to the delivery channel. Delivery
// itself (mail and SMS gateways) lives outside this service, so the worker
// records the dispatch in the structured log.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
	logger *slog.Logger
}

func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	w.logger.InfoContext(ctx, "dispatching notification",
		"event", job.Args.Event,
		"collection_id", job.Args.CollectionID,
		"collection_status", job.Args.Status,
		"signer_id", job.Args.SignerID,
		"sending_method", job.Args.SendingMethod,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// AppendixWorker verifies that every appendix of a completed collection has
// reached blob storage. Missing blobs fail the attempt so River retries it.
type AppendixWorker struct {
	river.WorkerDefaults[FinalizeAppendicesArgs]
	blobs  domain.BlobStore
	logger *slog.Logger
}

func (w *AppendixWorker) Work(ctx context.Context, job *river.Job[FinalizeAppendicesArgs]) error {
	var missing []string
	for _, key := range job.Args.BlobKeys {
		if key == "" {
			continue
		}
		ok, err := w.blobs.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("checking appendix %s: %w", key, err)
		}
		if !ok {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		w.logger.WarnContext(ctx, "appendices not yet stored",
			"collection_id", job.Args.CollectionID,
			"missing", missing,
			"attempt", job.Attempt,
		)
		return fmt.Errorf("collection %s: missing appendices %s", job.Args.CollectionID, strings.Join(missing, ", "))
	}

	w.logger.InfoContext(ctx, "appendices finalized",
		"collection_id", job.Args.CollectionID,
		"count", len(job.Args.BlobKeys),
	)
	return nil
}
