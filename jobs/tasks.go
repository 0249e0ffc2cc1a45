package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep marks past-due invoices as Overdue.
	TaskOverdueSweep = "invoices:overdue-sweep"
)

// NewOverdueSweepTask constructs the sweep task. It carries no payload; the
// sweep always runs over every user's invoices.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueSweep, nil)
}
