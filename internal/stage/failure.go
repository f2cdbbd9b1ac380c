package stage

import (
	"context"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
)

// FailureRecorder is implemented by stages that persist a durable failed
// status on their owning entity once a job exhausts its retry budget. The
// pipeline manager calls it after the final Nack.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, job *queue.Job, cause error)
}
