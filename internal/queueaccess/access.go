// Package queueaccess gives the CLI one queue-operations surface whether the
// daemon is reachable over IPC or the job store must be opened directly.
package queueaccess

import (
	"context"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
)

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]ipc.QueueCounts, error)
	List(ctx context.Context, queueName string, statuses []string) ([]ipc.JobItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) ([]ipc.StageHealth, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]ipc.QueueCounts, error) {
	resp, err := a.client.QueueStats()
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (a *ipcAccess) List(_ context.Context, queueName string, statuses []string) ([]ipc.JobItem, error) {
	resp, err := a.client.QueueList(queueName, statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) ClearCompleted(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearFailed(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Health(_ context.Context) ([]ipc.StageHealth, error) {
	resp, err := a.client.Health()
	if err != nil {
		return nil, err
	}
	return resp.Checks, nil
}

type storeAccess struct {
	store *queue.Store
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]ipc.QueueCounts, error) {
	stats := make(map[string]ipc.QueueCounts, len(config.QueueNames()))
	for _, queueName := range config.QueueNames() {
		counts, err := a.store.Counts(ctx, queueName)
		if err != nil {
			return nil, err
		}
		stats[queueName] = ipc.QueueCounts(counts)
	}
	return stats, nil
}

func (a *storeAccess) List(ctx context.Context, queueName string, statuses []string) ([]ipc.JobItem, error) {
	queues := config.QueueNames()
	if queueName != "" {
		queues = []string{queueName}
	}
	filters := make([]queue.Status, 0, len(statuses))
	for _, value := range statuses {
		switch status := queue.Status(value); status {
		case queue.StatusWaiting, queue.StatusDelayed, queue.StatusActive, queue.StatusCompleted, queue.StatusFailed:
			filters = append(filters, status)
		}
	}

	var items []ipc.JobItem
	for _, name := range queues {
		jobs, err := a.store.List(ctx, name, filters...)
		if err != nil {
			return nil, err
		}
		for _, job := range jobs {
			items = append(items, ipc.JobItem{
				ID:           job.ID,
				Queue:        job.Queue,
				Payload:      job.Payload,
				Status:       string(job.Status),
				AttemptsMade: job.AttemptsMade,
				MaxAttempts:  job.MaxAttempts,
				AvailableAt:  job.AvailableAt,
				ErrorMessage: job.ErrorMessage,
				ProgressPct:  job.ProgressPct,
				ProgressMsg:  job.ProgressMsg,
				CreatedAt:    job.CreatedAt,
				UpdatedAt:    job.UpdatedAt,
			})
		}
	}
	return items, nil
}

func (a *storeAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		if err := a.store.RetryFailed(ctx, id); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (a *storeAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *storeAccess) Health(ctx context.Context) ([]ipc.StageHealth, error) {
	if err := a.store.Health(ctx); err != nil {
		return []ipc.StageHealth{{Name: "queue-store", Ready: false, Detail: err.Error()}}, nil
	}
	return []ipc.StageHealth{{Name: "queue-store", Ready: true}}, nil
}
