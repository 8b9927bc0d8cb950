package scraper

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

// PlainTextScraper 抓取每行一个 "host:port" 的纯文本代理列表。
type PlainTextScraper struct {
	client       *resty.Client
	name         string
	url          string
	requireColon bool
}

// NewPlainTextScraper 创建一个纯文本列表抓取器。
// requireColon 为 true 时（通用 GitHub 列表），不含 ':' 的行会被丢弃。
func NewPlainTextScraper(client *resty.Client, name, url string, requireColon bool) *PlainTextScraper {
	return &PlainTextScraper{
		client:       client,
		name:         name,
		url:          url,
		requireColon: requireColon,
	}
}

func (s *PlainTextScraper) Name() string {
	return s.name
}

func (s *PlainTextScraper) Scrape(ctx context.Context) ([]model.Endpoint, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Str("url", s.url).Msg("Starting scrape...")

	body, err := fetch(ctx, s.client, s.name, s.url, nil)
	if err != nil {
		return nil, err
	}

	proxies := parseLines(body, s.requireColon)
	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}

func parseLines(body []byte, requireColon bool) []model.Endpoint {
	var proxies []model.Endpoint
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if requireColon && !strings.Contains(line, ":") {
			continue
		}
		proxies = append(proxies, model.Endpoint(line))
	}
	return proxies
}
