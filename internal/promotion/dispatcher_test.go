package promotion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bbsbot/proxypool/model"
)

const testTarget = "http://promo.test/?fromuid=1"

// newProxy starts an httptest server that plays the role of an HTTP forward proxy.
func newProxy(t *testing.T, handler http.HandlerFunc) model.Endpoint {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return model.Endpoint(strings.TrimPrefix(srv.URL, "http://"))
}

func newTestDispatcher(concurrency int) *ClickDispatcher {
	return NewClickDispatcher(concurrency, 2*time.Second, "https://klpbbs.com/", "test-agent/1.0")
}

func TestDispatchOne_StatusClassification(t *testing.T) {
	seenCh := make(chan *http.Request, 1)
	ok := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		seenCh <- r.Clone(context.Background())
		w.WriteHeader(http.StatusOK)
	})
	created := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	broken := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	d := newTestDispatcher(1)

	assert.True(t, d.DispatchOne(context.Background(), ok, testTarget))
	assert.False(t, d.DispatchOne(context.Background(), created, testTarget), "only an exact 200 is a hit")
	assert.False(t, d.DispatchOne(context.Background(), broken, testTarget))

	var seen *http.Request
	select {
	case seen = <-seenCh:
	default:
	}
	require.NotNil(t, seen)
	assert.Equal(t, "promo.test", seen.URL.Host, "request is routed through the proxy in absolute form")
	assert.Equal(t, "test-agent/1.0", seen.Header.Get("User-Agent"))
	assert.Equal(t, "https://klpbbs.com/", seen.Header.Get("Referer"))
	assert.Empty(t, seen.Header.Get("Cookie"), "clicks are anonymous")
}

func TestDispatchOne_UnreachableProxyIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := model.Endpoint(strings.TrimPrefix(srv.URL, "http://"))
	srv.Close()

	assert.False(t, newTestDispatcher(1).DispatchOne(context.Background(), dead, testTarget))
}

func TestDispatchAll_BoundedConcurrency(t *testing.T) {
	var inflight, maxInflight atomic.Int32
	ep := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		for {
			m := maxInflight.Load()
			if n <= m || maxInflight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inflight.Add(-1)
		w.WriteHeader(http.StatusOK)
	})

	endpoints := make([]model.Endpoint, 12)
	for i := range endpoints {
		endpoints[i] = ep
	}

	hits := 0
	for res := range newTestDispatcher(3).DispatchAll(context.Background(), endpoints, testTarget) {
		if res.Success {
			hits++
		}
	}

	assert.Equal(t, 12, hits)
	assert.LessOrEqual(t, maxInflight.Load(), int32(3))
	assert.GreaterOrEqual(t, maxInflight.Load(), int32(1))
}

func TestDispatchAll_MixedResults(t *testing.T) {
	good := newProxy(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	bad := newProxy(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) })

	got := map[model.Endpoint]bool{}
	for res := range newTestDispatcher(20).DispatchAll(context.Background(), []model.Endpoint{good, bad}, testTarget) {
		got[res.Endpoint] = res.Success
	}

	assert.Equal(t, map[model.Endpoint]bool{good: true, bad: false}, got)
}

func TestDispatchAll_CancelStopsOutstandingWork(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	ep := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		started.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})
	var once sync.Once
	t.Cleanup(func() { once.Do(func() { close(release) }) })

	endpoints := make([]model.Endpoint, 50)
	for i := range endpoints {
		endpoints[i] = ep
	}

	ctx, cancel := context.WithCancel(context.Background())
	results := newTestDispatcher(2).DispatchAll(ctx, endpoints, testTarget)

	require.Eventually(t, func() bool { return started.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	closed := make(chan int)
	go func() {
		n := 0
		for range results {
			n++
		}
		closed <- n
	}()

	select {
	case n := <-closed:
		assert.Less(t, n, len(endpoints), "queued dispatches are abandoned after cancellation")
	case <-time.After(3 * time.Second):
		t.Fatal("result channel was not closed after cancellation")
	}
	assert.LessOrEqual(t, started.Load(), int32(2))
}
