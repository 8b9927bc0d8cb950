package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

const (
	IP3366URL  = "http://www.ip3366.net/?stype=1&page=1"
	QiyunIPURL = "https://www.qiyunip.com/freeProxy/1.html"
	ZdayeURL   = "https://www.zdaye.com/free/1/?https=1"
)

// TableLayout 描述免费代理网站上代理表格的结构。列号从 0 开始。
type TableLayout struct {
	Row     string // 行选择器
	Cell    string // 行内单元格选择器
	IPCol   int
	PortCol int
	TypeCol int // < 0 表示不按类型过滤
}

var (
	IP3366Layout  = TableLayout{Row: "table.table-bordered tbody tr", Cell: "td", IPCol: 0, PortCol: 1, TypeCol: 3}
	QiyunIPLayout = TableLayout{Row: "table#proxyTable tbody tr", Cell: "th", IPCol: 0, PortCol: 1, TypeCol: 3}
	ZdayeLayout   = TableLayout{Row: "table#ipc tbody tr", Cell: "td", IPCol: 0, PortCol: 1, TypeCol: 2}
)

// HTMLTableScraper 抓取以 HTML 表格形式展示的免费代理页面，只保留 HTTP 类型的代理。
type HTMLTableScraper struct {
	client *resty.Client
	name   string
	url    string
	layout TableLayout
}

// NewHTMLTableScraper 创建一个 HTML 表格抓取器。
func NewHTMLTableScraper(client *resty.Client, name, url string, layout TableLayout) *HTMLTableScraper {
	return &HTMLTableScraper{client: client, name: name, url: url, layout: layout}
}

func (s *HTMLTableScraper) Name() string {
	return s.name
}

func (s *HTMLTableScraper) Scrape(ctx context.Context) ([]model.Endpoint, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Str("url", s.url).Msg("Starting scrape...")

	body, err := fetch(ctx, s.client, s.name, s.url, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to parse HTML document: %w", ErrSourceUnavailable, s.name, err)
	}

	var proxies []model.Endpoint
	doc.Find(s.layout.Row).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(s.layout.Cell)
		if s.layout.TypeCol >= 0 {
			kind := strings.ToUpper(strings.TrimSpace(cells.Eq(s.layout.TypeCol).Text()))
			if !strings.Contains(kind, "HTTP") {
				return
			}
		}

		ip := strings.TrimSpace(cells.Eq(s.layout.IPCol).Text())
		portStr := strings.TrimSpace(cells.Eq(s.layout.PortCol).Text())
		endpoint, ok := hostPort(ip, portStr)
		if !ok {
			l.Debug().Str("ip", ip).Str("port", portStr).Str("source", s.Name()).Msg("Failed to parse IP/port, skipping row.")
			return
		}
		proxies = append(proxies, endpoint)
	})

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}

// hostPort 拼出 "ip:port"，host 或端口不合法时返回 false。
func hostPort(ip, portStr string) (model.Endpoint, bool) {
	e := model.Endpoint(net.JoinHostPort(ip, portStr))
	return e, e.Valid()
}
