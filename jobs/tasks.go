package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskArchiveDoneTickets archives every ticket in status DONE.
	TaskArchiveDoneTickets = "tickets:archive-done"
)

// ArchiveDonePayload describes who asked for an archive run.
type ArchiveDonePayload struct {
	Source string `json:"source"`
}

// NewArchiveDoneTask constructs the archive task.
func NewArchiveDoneTask(source string) (*asynq.Task, error) {
	if source == "" {
		source = "cron"
	}
	data, err := json.Marshal(ArchiveDonePayload{Source: source})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArchiveDoneTickets, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
