package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Yoonyonggeun/mostarle-kr/internal/config"
)

// AssetStore is the slice of the object store the janitor needs.
type AssetStore interface {
	Remove(ctx context.Context, keys ...string) error
	RemovePrefix(ctx context.Context, prefix string) error
}

type Worker struct {
	rc     redis.UniversalClient
	cfg    config.CleanupWorkerConfig
	assets AssetStore
	log    *zap.SugaredLogger
}

// Init starts the worker group and returns the producer mutations enqueue
// purge jobs on.
func Init(ctx context.Context, rc redis.UniversalClient, cfg config.CleanupWorkerConfig, assets AssetStore, log *zap.SugaredLogger) *Producer {
	producer := NewProducer(rc, cfg.Stream, cfg.MaxLen)
	worker := NewWorker(rc, cfg, assets, log)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Warnw("cleanup worker stopped", "err", err)
		}
	}()

	return producer
}

func NewWorker(rc redis.UniversalClient, cfg config.CleanupWorkerConfig, assets AssetStore, log *zap.SugaredLogger) *Worker {
	return &Worker{
		rc:     rc,
		cfg:    cfg,
		assets: assets,
		log:    log,
	}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	// Without MkStream, Redis would error out if you try to create a group before any messages exist in the stream.
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// Redis returns BUSYGROUP if the group already exists therefore we check for other errors
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to ensure Redis group: %w", err)
	}

	w.log.Infow("cleanup worker starting",
		"group", w.cfg.Group, "stream", w.cfg.Stream, "workers", w.cfg.Workers)

	// Adopt orphaned pending messages
	w.autoClaim(ctx)

	errCh := make(chan error, w.cfg.Workers)
	for i := 0; i < w.cfg.Workers; i++ {
		go func() {
			errCh <- w.loop(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		w.log.Infow("cleanup worker stopping", "reason", ctx.Err())
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker loop exited with error: %w", err)
		}
		return nil
	}
}

// autoClaim scans the stream's consumer group for messages that were
// delivered to other consumers but never acknowledged (a worker crashed or
// was killed before XACK) and takes ownership so they get retried.
func (w *Worker) autoClaim(ctx context.Context) {
	next := "0-0"

	// A message must have been idle for a while before we reclaim it, so we
	// do not steal jobs still being processed by slow workers.
	minIdle := 30 * time.Second
	if w.cfg.BlockTimeout > 0 {
		t := w.cfg.BlockTimeout * 6
		if t > minIdle {
			minIdle = t
		}
	}

	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		// XREADGROUP marks delivered messages as pending for this consumer;
		// they stay in the group's PEL until XACK in handle(). A crash before
		// XACK leaves them pending for autoClaim to adopt on restart.
		streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Stream, ">"},
			Count:    1,
			Block:    w.cfg.BlockTimeout,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				_ = w.handle(ctx, m)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, m redis.XMessage) error {
	defer w.rc.XAck(ctx, w.cfg.Stream, w.cfg.Group, m.ID).Err()

	raw, ok := m.Values["payload"].(string)
	if !ok {
		w.log.Warnw("cleanup message without payload", "id", m.ID)
		return nil
	}
	var job PurgeJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		w.log.Warnw("cleanup message with bad payload", "id", m.ID, "err", err)
		return nil
	}
	attempt := toInt(m.Values["attempt"])

	if err := w.process(ctx, job); err != nil {
		if attempt+1 >= w.cfg.MaxAttempts {
			// The orphaned object stays in the bucket; that is the accepted
			// trade-off, a row never points at it.
			sentry.CaptureException(fmt.Errorf("cleanup job dropped after %d attempts: %w", attempt+1, err))
			w.log.Errorw("cleanup job dropped", "job", raw, "attempts", attempt+1, "err", err)
			return nil
		}
		// simple exponential backoff requeue
		backoff := w.cfg.BackoffBase << attempt
		time.AfterFunc(backoff, func() {
			_ = w.rc.XAdd(context.Background(), &redis.XAddArgs{
				Stream: w.cfg.Stream,
				MaxLen: w.cfg.MaxLen,
				Values: map[string]any{
					"payload": raw,
					"attempt": attempt + 1,
				},
			}).Err()
		})
		return err
	}
	return nil
}

func (w *Worker) process(ctx context.Context, job PurgeJob) error {
	if job.Prefix != "" {
		if err := w.assets.RemovePrefix(ctx, job.Prefix); err != nil {
			return fmt.Errorf("purge prefix %s: %w", job.Prefix, err)
		}
		return nil
	}
	if err := w.assets.Remove(ctx, job.Keys...); err != nil {
		return fmt.Errorf("purge %d keys: %w", len(job.Keys), err)
	}
	return nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		var x int
		fmt.Sscanf(t, "%d", &x)
		return x
	default:
		return 0
	}
}
