package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// OverdueMarker flips past-due documents to Overdue and reports how many
// rows changed. Satisfied by the billing repository.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// NewOverdueSweepHandler returns the handler for TaskOverdueSweep. Sent and
// Partial invoices whose due date has passed become Overdue; the ledger and
// manual transitions never produce that status themselves.
func NewOverdueSweepHandler(marker OverdueMarker, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		updated, err := marker.MarkOverdue(ctx, time.Now())
		if err != nil {
			logger.Error("overdue sweep", slog.Any("error", err))
			return err
		}
		logger.Info("overdue sweep complete", slog.Int64("invoices_marked", updated))
		return nil
	}
}
