package cleanup

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type Producer struct {
	r      redis.UniversalClient
	stream string
	maxLen int64
}

func NewProducer(r redis.UniversalClient, stream string, maxLen int64) *Producer {
	return &Producer{r: r, stream: stream, maxLen: maxLen}
}

// EnqueueKeys persists object keys whose deletion failed or was deferred so
// the worker retries them out of band.
func (p *Producer) EnqueueKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return p.enqueue(ctx, PurgeJob{Keys: keys})
}

// EnqueuePrefix schedules a purge of everything under a parent's path.
func (p *Producer) EnqueuePrefix(ctx context.Context, prefix string) error {
	return p.enqueue(ctx, PurgeJob{Prefix: prefix})
}

func (p *Producer) enqueue(ctx context.Context, job PurgeJob) error {
	raw, _ := json.Marshal(job)
	return p.r.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]any{
			"payload": string(raw),
			"attempt": 0,
		},
	}).Err()
}
