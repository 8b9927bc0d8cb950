package proxypool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bbsbot/internal/shared/types"
	"bbsbot/proxypool/model"
	"bbsbot/proxypool/scraper"
)

// mockScraper is a scripted scraper.Scraper that counts invocations.
type mockScraper struct {
	name    string
	proxies []model.Endpoint
	err     error
	panics  bool
	calls   int
}

func (m *mockScraper) Name() string { return m.name }

func (m *mockScraper) Scrape(ctx context.Context) ([]model.Endpoint, error) {
	m.calls++
	if m.panics {
		panic("boom")
	}
	return m.proxies, m.err
}

func endpoints(prefix string, n int) []model.Endpoint {
	out := make([]model.Endpoint, n)
	for i := range out {
		out[i] = model.Endpoint(fmt.Sprintf("%s.%d:80", prefix, i))
	}
	return out
}

func TestCollect_DeduplicatesAcrossSources(t *testing.T) {
	a := &mockScraper{name: "a", proxies: []model.Endpoint{"1.1.1.1:80", "2.2.2.2:80", "3.3.3.3:80"}}
	b := &mockScraper{name: "b", proxies: []model.Endpoint{"2.2.2.2:80", "3.3.3.3:80", "4.4.4.4:80"}}

	pool, err := NewManager(500, a, b).Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, pool.Len(), "pool size is the size of the union, not the sum")
}

func TestCollect_ShortCircuitsAtThreshold(t *testing.T) {
	a := &mockScraper{name: "a", proxies: endpoints("10.0.0", 3)}
	b := &mockScraper{name: "b", proxies: endpoints("10.0.1", 3)}
	c := &mockScraper{name: "c", proxies: endpoints("10.0.2", 3)}

	pool, err := NewManager(5, a, b, c).Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, pool.Len())
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls, "no source is queried after the threshold is reached")
}

func TestCollect_ZeroThresholdQueriesEverySource(t *testing.T) {
	a := &mockScraper{name: "a", proxies: endpoints("10.0.0", 3)}
	b := &mockScraper{name: "b", proxies: endpoints("10.0.1", 3)}

	pool, err := NewManager(0, a, b).Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, pool.Len())
	assert.Equal(t, 1, b.calls)
}

func TestCollect_SurvivesFailingSources(t *testing.T) {
	failing := &mockScraper{name: "down", err: fmt.Errorf("%w: timeout", scraper.ErrSourceUnavailable)}
	unexpected := &mockScraper{name: "weird", err: errors.New("something else")}
	panicking := &mockScraper{name: "panic", panics: true}
	empty := &mockScraper{name: "empty"}
	good := &mockScraper{name: "good", proxies: []model.Endpoint{"5.5.5.5:80"}}

	pool, err := NewManager(500, failing, unexpected, panicking, empty, good).Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Endpoint{"5.5.5.5:80"}, pool.Endpoints())
	assert.Equal(t, 1, panicking.calls)
	assert.Equal(t, 1, good.calls)
}

func TestCollect_AllSourcesFail(t *testing.T) {
	a := &mockScraper{name: "a", err: scraper.ErrSourceUnavailable}
	b := &mockScraper{name: "b"}
	c := &mockScraper{name: "c", panics: true}

	pool, err := NewManager(500, a, b, c).Collect(context.Background())

	assert.Nil(t, pool)
	assert.ErrorIs(t, err, ErrNoProxiesAvailable)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &mockScraper{name: "a", proxies: endpoints("10.0.0", 1)}

	_, err := NewManager(500, a).Collect(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.calls)
}

func TestCollect_MalformedEntriesNeverReachPool(t *testing.T) {
	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"proxyList":["not-a-proxy","1.1.1.1:80",":99"]}}`)
	}))
	t.Cleanup(archive.Close)
	geonode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"ip":"1.2.3.4","port":"abc"},{"ip":"5.6.7.8","port":8080}]}`)
	}))
	t.Cleanup(geonode.Close)

	client := scraper.NewClient(time.Second)
	m := NewManager(0,
		scraper.NewCheckerProxyScraper(client, archive.URL, 1, 1),
		scraper.NewGeonodeScraper(client, geonode.URL, 10),
	)

	pool, err := m.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Endpoint{"1.1.1.1:80", "5.6.7.8:8080"}, pool.Endpoints())
	for _, e := range pool.Endpoints() {
		assert.True(t, e.Valid(), e)
	}
}

func TestNewManagerFromConfig(t *testing.T) {
	m, err := NewManagerFromConfig(types.ProxyPoolConf{
		Sources:         []string{"geonode", "speedx"},
		SufficientCount: 42,
	})
	require.NoError(t, err)
	require.Len(t, m.scrapers, 2)
	assert.Equal(t, "geonode", m.scrapers[0].Name())
	assert.Equal(t, "speedx", m.scrapers[1].Name())
	assert.Equal(t, 42, m.sufficientCount)

	_, err = NewManagerFromConfig(types.ProxyPoolConf{Sources: []string{"nope"}})
	assert.Error(t, err)
}
