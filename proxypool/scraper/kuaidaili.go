package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

const KuaidailiBaseURL = "https://www.kuaidaili.com"

var fpsListPattern = regexp.MustCompile(`(?s)(var|let|const)\s+fpsList\s*=\s*(\[.*?\]);`)

// kuaidailiEntry 对应页面脚本中 fpsList 变量的元素。
type kuaidailiEntry struct {
	IP   string `json:"ip"`
	Port string `json:"port"`
}

// KuaidailiScraper 抓取 kuaidaili.com 的免费代理。代理列表嵌在页面脚本的 fpsList 变量里。
type KuaidailiScraper struct {
	baseURL   string
	pages     int
	timeout   time.Duration
	pageDelay time.Duration
	userAgent string
}

// NewKuaidailiScraper 创建一个 KuaidailiScraper。每个分类抓取前 pages 页。
func NewKuaidailiScraper(baseURL string, pages int, timeout, pageDelay time.Duration) *KuaidailiScraper {
	if pages <= 0 {
		pages = 2
	}
	return &KuaidailiScraper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		pages:     pages,
		timeout:   timeout,
		pageDelay: pageDelay,
		userAgent: defaultUserAgent,
	}
}

func (s *KuaidailiScraper) Name() string {
	return "kuaidaili"
}

func (s *KuaidailiScraper) Scrape(ctx context.Context) ([]model.Endpoint, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Msg("Starting scrape...")

	// 每次抓取都新建 collector，避免回调在多次调用之间叠加。
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.StdlibContext(ctx),
	)
	if s.timeout > 0 {
		c.SetRequestTimeout(s.timeout)
	}
	if s.pageDelay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: s.pageDelay}); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Name(), err)
		}
	}

	var proxies []model.Endpoint
	var lastErr error
	okPages := 0

	c.OnResponse(func(r *colly.Response) {
		matches := fpsListPattern.FindSubmatch(r.Body)
		if len(matches) < 3 {
			l.Warn().Str("url", r.Request.URL.String()).Msg("Could not find fpsList variable in response body.")
			return
		}

		var entries []kuaidailiEntry
		if err := json.Unmarshal(matches[2], &entries); err != nil {
			l.Warn().Err(err).Str("url", r.Request.URL.String()).Msg("Failed to unmarshal fpsList JSON.")
			lastErr = err
			return
		}

		okPages++
		for _, e := range entries {
			if endpoint, ok := hostPort(strings.TrimSpace(e.IP), strings.TrimSpace(e.Port)); ok {
				proxies = append(proxies, endpoint)
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		l.Warn().Err(err).Int("status_code", r.StatusCode).Str("url", r.Request.URL.String()).Msg("Scrape request failed.")
		lastErr = err
	})

	for _, category := range []string{"intr", "inha"} {
		for page := 1; page <= s.pages; page++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Name(), err)
			}
			url := fmt.Sprintf("%s/free/%s/%d/", s.baseURL, category, page)
			l.Debug().Str("url", url).Msg("Visiting page...")
			if err := c.Visit(url); err != nil && lastErr == nil {
				lastErr = err
			}
		}
	}
	c.Wait()

	if okPages == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Name(), lastErr)
	}

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
