package redis

import (
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// testStart sits 100µs into a millisecond so expiry scores exercise sub-millisecond ordering.
var testStart = time.Date(2024, 3, 1, 10, 0, 0, 100_000, time.UTC)

func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(t *testing.T) (*ApprovalStore, *testClock) {
	t.Helper()
	client, _ := newTestRedisClient(t)
	clock := &testClock{now: testStart}
	return NewApprovalStore(client, 5*time.Minute).WithClock(clock.Now), clock
}
