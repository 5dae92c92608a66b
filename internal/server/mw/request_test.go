package mw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

// counterRedis answers INCR/EXPIRE/TTL in memory so no server is dialed.
type counterRedis struct {
	mu       sync.Mutex
	fail     bool
	counts   map[string]int64
	expiring map[string]bool
	names    []string
	args     [][]any
}

func newCounterRedis() *counterRedis {
	return &counterRedis{counts: map[string]int64{}, expiring: map[string]bool{}}
}

func (h *counterRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *counterRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(context.Context, []redis.Cmder) error {
		return errors.New("pipelines are not supported here")
	}
}

func (h *counterRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.fail {
			cmd.SetErr(errors.New("connection refused"))
			return cmd.Err()
		}
		args := cmd.Args()
		h.names = append(h.names, cmd.Name())
		h.args = append(h.args, args)
		key, _ := args[1].(string)
		switch c := cmd.(type) {
		case *redis.IntCmd:
			h.counts[key]++
			c.SetVal(h.counts[key])
		case *redis.BoolCmd:
			h.expiring[key] = true
			c.SetVal(true)
		case *redis.DurationCmd:
			if h.expiring[key] {
				c.SetVal(time.Second)
			} else {
				c.SetVal(-1)
			}
		default:
			cmd.SetErr(errors.New("unexpected command " + cmd.Name()))
			return cmd.Err()
		}
		return nil
	}
}

func (h *counterRedis) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, got := range h.names {
		if got == name {
			n++
		}
	}
	return n
}

func rateLimitedRouter(t *testing.T, fake *counterRedis, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(fake)
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.Use(RateLimit(rdb, limit, zaptest.NewLogger(t)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func ping(r http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	fake := newCounterRedis()
	r := rateLimitedRouter(t, fake, 2)

	for i, want := range []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests} {
		w := ping(r, "192.0.2.1:4000")
		if w.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, want)
		}
	}
	if w := ping(r, "198.51.100.7:4000"); w.Code != http.StatusNoContent {
		t.Fatalf("other ip: status = %d", w.Code)
	}

	// One EXPIRE per window key, set on the first hit, with no Redis 7-only options.
	if got := fake.count("expire"); got != 2 {
		t.Errorf("expire calls = %d, want 2", got)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, args := range fake.args {
		for _, a := range args {
			if s, ok := a.(string); ok && strings.EqualFold(s, "nx") {
				t.Errorf("command %v uses NX", args)
			}
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	fake := newCounterRedis()
	fake.fail = true
	r := rateLimitedRouter(t, fake, 1)

	for i := 0; i < 3; i++ {
		if w := ping(r, "192.0.2.1:4000"); w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
}
