package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

// GeonodeScraper 通过 geonode 的分页 JSON API 抓取最近检测过的 HTTP 代理。
type GeonodeScraper struct {
	client *resty.Client
	url    string
	limit  int
}

type geonodeResponse struct {
	Data []geonodeItem `json:"data"`
}

type geonodeItem struct {
	IP   string    `json:"ip"`
	Port portField `json:"port"`
}

// portField 兼容 "8080" 与 8080 两种写法。
type portField string

func (p *portField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = portField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.Atoi(n.String()); err != nil {
		return fmt.Errorf("invalid port %s", n)
	}
	*p = portField(n.String())
	return nil
}

// NewGeonodeScraper 创建一个新的 GeonodeScraper 实例。
func NewGeonodeScraper(client *resty.Client, url string, limit int) *GeonodeScraper {
	if limit <= 0 {
		limit = 300
	}
	return &GeonodeScraper{client: client, url: url, limit: limit}
}

func (s *GeonodeScraper) Name() string {
	return "geonode"
}

func (s *GeonodeScraper) Scrape(ctx context.Context) ([]model.Endpoint, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Str("url", s.url).Msg("Starting scrape...")

	body, err := fetch(ctx, s.client, s.Name(), s.url, map[string]string{
		"limit":     strconv.Itoa(s.limit),
		"page":      "1",
		"sort_by":   "lastChecked",
		"sort_type": "desc",
		"protocols": "http",
	})
	if err != nil {
		return nil, err
	}

	var resp geonodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to decode payload: %w", ErrSourceUnavailable, s.Name(), err)
	}

	proxies := make([]model.Endpoint, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.IP == "" || item.Port == "" {
			continue
		}
		if e, ok := hostPort(item.IP, string(item.Port)); ok {
			proxies = append(proxies, e)
		}
	}

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
