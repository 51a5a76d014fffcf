package ndvi

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type fakeSource struct {
	name  string
	obs   Observation
	err   error
	delay time.Duration
	// ignoreCtx makes Query sleep through cancellation.
	ignoreCtx bool
	calls     int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Query(ctx context.Context, in QueryInput) (Observation, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return Observation{}, ErrUnavailable
			}
		}
	}
	return f.obs, f.err
}

func (f *fakeSource) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

type fakeDecoder struct {
	red, nir float64
	err      error
}

func (d fakeDecoder) Decode(ctx context.Context, scene Scene, in QueryInput) (float64, float64, error) {
	return d.red, d.nir, d.err
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}
