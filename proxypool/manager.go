package proxypool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bbsbot/internal/shared/logger"
	"bbsbot/internal/shared/types"
	"bbsbot/proxypool/model"
	"bbsbot/proxypool/scraper"
)

// ErrNoProxiesAvailable 表示所有代理源都失败或返回空列表。
var ErrNoProxiesAvailable = errors.New("failed to fetch proxies from all sources")

// Manager 按优先级依次查询代理源，把结果合并为一个去重的代理池。
type Manager struct {
	scrapers        []scraper.Scraper
	sufficientCount int
}

// NewManager 创建一个代理聚合器。scrapers 的顺序即查询顺序。
// sufficientCount <= 0 表示不提前停止。
func NewManager(sufficientCount int, scrapers ...scraper.Scraper) *Manager {
	return &Manager{
		scrapers:        scrapers,
		sufficientCount: sufficientCount,
	}
}

// NewManagerFromConfig 按 [proxypool] sources 的顺序构造全部代理源。
func NewManagerFromConfig(cfg types.ProxyPoolConf) (*Manager, error) {
	timeout := time.Duration(cfg.SourceTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := scraper.NewClient(timeout)

	m := NewManager(cfg.SufficientCount)
	for _, name := range cfg.Sources {
		s, err := scraper.NewByName(name, client, cfg)
		if err != nil {
			return nil, err
		}
		m.AddScraper(s)
	}
	return m, nil
}

// AddScraper 添加一个抓取器到管理器，排在已有抓取器之后。
func (m *Manager) AddScraper(s scraper.Scraper) {
	m.scrapers = append(m.scrapers, s)
}

// Collect 执行一次完整的聚合。
// 单个代理源的失败（包括 panic）只会被记录；累计数量达到 sufficientCount 后不再查询后续代理源。
func (m *Manager) Collect(ctx context.Context) (*model.Pool, error) {
	l := logger.WithComponent("ProxyPool/Manager")
	pool := model.NewPool()

	for _, s := range m.scrapers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		proxies, err := m.scrapeSafely(ctx, s)
		if err != nil {
			l.Warn().Err(err).Str("source", s.Name()).Msg("Scraper failed.")
			continue
		}

		added := pool.Add(proxies...)
		l.Info().Str("source", s.Name()).Int("fetched", len(proxies)).Int("added", added).Int("total", pool.Len()).Msg("Merged proxies from source.")

		if m.sufficientCount > 0 && pool.Len() >= m.sufficientCount {
			l.Info().Int("total", pool.Len()).Int("threshold", m.sufficientCount).Msg("Sufficient proxies collected, skipping remaining sources.")
			break
		}
	}

	if pool.Len() == 0 {
		return nil, ErrNoProxiesAvailable
	}
	l.Info().Int("total", pool.Len()).Msg("Collected proxies from available sources.")
	return pool, nil
}

func (m *Manager) scrapeSafely(ctx context.Context, s scraper.Scraper) (proxies []model.Endpoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			proxies = nil
			err = fmt.Errorf("%w: %s: panic: %v", scraper.ErrSourceUnavailable, s.Name(), r)
		}
	}()
	return s.Scrape(ctx)
}
