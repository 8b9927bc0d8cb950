package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

// CheckerProxyScraper 从 checkerproxy.net 的按日归档中抓取代理。
// 从昨天开始逐日回溯，直到累计数量达到 minCount 或回溯窗口用尽。
type CheckerProxyScraper struct {
	client       *resty.Client
	baseURL      string
	minCount     int
	lookbackDays int
	now          func() time.Time
}

type checkerProxyArchive struct {
	Data struct {
		ProxyList json.RawMessage `json:"proxyList"`
	} `json:"data"`
}

// NewCheckerProxyScraper 创建一个新的 CheckerProxyScraper 实例。
func NewCheckerProxyScraper(client *resty.Client, baseURL string, minCount, lookbackDays int) *CheckerProxyScraper {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &CheckerProxyScraper{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		minCount:     minCount,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

func (s *CheckerProxyScraper) Name() string {
	return "checkerproxy"
}

func (s *CheckerProxyScraper) Scrape(ctx context.Context) ([]model.Endpoint, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	collected := model.NewPool()
	day := s.now()
	for i := 0; i < s.lookbackDays; i++ {
		day = day.AddDate(0, 0, -1)
		url := fmt.Sprintf("%s/v1/landing/archive/%s", s.baseURL, day.Format("2006-01-02"))
		l.Info().Str("source", s.Name()).Str("url", url).Msg("Starting scrape...")

		body, err := fetch(ctx, s.client, s.Name(), url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Name(), ctx.Err())
			}
			l.Warn().Err(err).Str("source", s.Name()).Str("day", day.Format("2006-01-02")).Msg("Archive unavailable, trying previous day.")
			continue
		}

		proxies, err := decodeArchive(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Name(), err)
		}
		collected.Add(proxies...)

		if collected.Len() >= s.minCount {
			l.Info().Int("count", collected.Len()).Str("source", s.Name()).Msg("Scrape finished.")
			return collected.Endpoints(), nil
		}
		l.Info().Int("count", collected.Len()).Int("min_count", s.minCount).Str("source", s.Name()).Msg("Not enough proxies yet, walking back one day.")
	}

	l.Warn().Int("count", collected.Len()).Int("lookback_days", s.lookbackDays).Str("source", s.Name()).Msg("Lookback window exhausted.")
	return collected.Endpoints(), nil
}

// decodeArchive 解析 $.data.proxyList，它可能是字符串数组，也可能是值为字符串的对象。
// 不是合法 "host:port" 的条目被丢弃。
func decodeArchive(body []byte) ([]model.Endpoint, error) {
	var archive checkerProxyArchive
	if err := json.Unmarshal(body, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode archive payload: %w", err)
	}

	raw := bytes.TrimSpace(archive.Data.ProxyList)
	if len(raw) == 0 {
		return nil, fmt.Errorf("unexpected type of $.data.proxyList: missing")
	}

	switch raw[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("failed to decode $.data.proxyList as list: %w", err)
		}
		out := make([]model.Endpoint, 0, len(list))
		for _, p := range list {
			if e := model.Endpoint(strings.TrimSpace(p)); e.Valid() {
				out = append(out, e)
			}
		}
		return out, nil
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode $.data.proxyList as map: %w", err)
		}
		out := make([]model.Endpoint, 0, len(m))
		for _, v := range m {
			p, ok := v.(string)
			if !ok {
				continue
			}
			if e := model.Endpoint(strings.TrimSpace(p)); e.Valid() {
				out = append(out, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type of $.data.proxyList: %s", raw)
	}
}
