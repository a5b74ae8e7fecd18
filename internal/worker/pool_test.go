package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestDispatcherWithoutRedisDropsJobs(t *testing.T) {
	var nilDispatcher *Dispatcher
	assert.NoError(t, nilDispatcher.EnqueueReceipt(context.Background(), uuid.New(), uuid.New()))

	d := NewDispatcher(nil)
	assert.NoError(t, d.EnqueueReceipt(context.Background(), uuid.New(), uuid.New()))
}

func TestPoolWithoutRedisDoesNotStart(t *testing.T) {
	p := NewPool(nil, map[string]Handler{})
	assert.NotPanics(t, func() { p.Start(context.Background(), 2) })
}

type countingPurger struct{ calls int }

func (c *countingPurger) PurgeExpired(context.Context) (int, error) {
	c.calls++
	return 1, nil
}

func TestRunPurgeCallsPurger(t *testing.T) {
	p := &countingPurger{}
	runPurge(context.Background(), p)
	assert.Equal(t, 1, p.calls)
}

// callCounter counts commands sent through a redis client.
type callCounter struct{ n atomic.Int64 }

func (c *callCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (c *callCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		c.n.Add(1)
		return next(ctx, cmd)
	}
}

func (c *callCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestPoolBacksOffWhileRedisIsDown(t *testing.T) {
	// Nothing listens on port 1, so every pop fails at once.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()
	counter := &callCounter{}
	rdb.AddHook(counter)

	p := NewPool(rdb, map[string]Handler{})
	p.backoff = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		p.run(ctx, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
	assert.LessOrEqual(t, counter.n.Load(), int64(6))
	assert.GreaterOrEqual(t, counter.n.Load(), int64(1))
}
