package notice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list drained by the document workers.
const DefaultQueue = "notices:tenancy"

// KindTenancyAgreement asks the pipeline to regenerate and send the tenancy
// agreement after a tenant change.
const KindTenancyAgreement = "tenancy_agreement"

// Job is the queued instruction for the external generate-and-send pipeline.
// Retry and failure handling belong to the pipeline, not to this service.
type Job struct {
	ID         string    `json:"id"`
	TenancyID  int64     `json:"tenancy_id"`
	Kind       string    `json:"kind"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Dispatcher hands notice jobs to the document pipeline.
type Dispatcher interface {
	EnqueueTenancyNotice(ctx context.Context, tenancyID int64) error
}

var (
	_ Dispatcher = (*RedisDispatcher)(nil)
	_ Dispatcher = Nop{}
)

// RedisDispatcher queues jobs on a Redis list.
type RedisDispatcher struct {
	client redis.UniversalClient
	queue  string
}

// NewRedisDispatcher constructs a dispatcher; an empty queue name falls back
// to DefaultQueue.
func NewRedisDispatcher(client redis.UniversalClient, queue string) *RedisDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisDispatcher{client: client, queue: queue}
}

// EnqueueTenancyNotice pushes one job for the tenancy.
func (d *RedisDispatcher) EnqueueTenancyNotice(ctx context.Context, tenancyID int64) error {
	job := Job{
		ID:         uuid.NewString(),
		TenancyID:  tenancyID,
		Kind:       KindTenancyAgreement,
		EnqueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notice job: %w", err)
	}
	if err := d.client.LPush(ctx, d.queue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notice job: %w", err)
	}
	return nil
}

// Nop discards jobs. Used when no notice queue is configured.
type Nop struct{}

// EnqueueTenancyNotice does nothing.
func (Nop) EnqueueTenancyNotice(context.Context, int64) error { return nil }
