package stage

import (
	"context"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
)

// Handler describes the contract the pipeline manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}
