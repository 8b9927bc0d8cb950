package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bbsbot/internal/shared/types"
	"bbsbot/proxypool/model"
)

// ErrSourceUnavailable 包装了一个代理源的所有失败：网络错误、超时、非 2xx、负载格式异常。
var ErrSourceUnavailable = errors.New("proxy source unavailable")

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"

	CheckerProxyBaseURL  = "https://api.checkerproxy.net"
	ProxyScrapeURL       = "https://api.proxyscrape.com/v2/?request=getproxies&protocol=http&timeout=2000&country=all"
	ProxyListDownloadURL = "https://www.proxy-list.download/api/v1/get?type=http"
	GeonodeURL           = "https://proxylist.geonode.com/api/proxy-list"
	SpeedXURL            = "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt"
	MonosansURL          = "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt"
)

// Scraper 接口定义了从代理源抓取代理信息的行为。
type Scraper interface {
	// Scrape 执行抓取操作，返回 "host:port" 列表（可能为空）。
	// 失败时返回的错误包装 ErrSourceUnavailable。
	Scrape(ctx context.Context) ([]model.Endpoint, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// NewClient 创建代理源共用的 HTTP 客户端。
func NewClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent)
}

// NewByName 按配置中的名称构造代理源。
func NewByName(name string, client *resty.Client, cfg types.ProxyPoolConf) (Scraper, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "checkerproxy":
		return NewCheckerProxyScraper(client, CheckerProxyBaseURL, cfg.CheckerProxyMinCount, cfg.CheckerProxyLookbackDays), nil
	case "proxyscrape":
		return NewPlainTextScraper(client, "proxyscrape", ProxyScrapeURL, false), nil
	case "proxy-list.download":
		return NewPlainTextScraper(client, "proxy-list.download", ProxyListDownloadURL, false), nil
	case "geonode":
		return NewGeonodeScraper(client, GeonodeURL, cfg.GeonodeLimit), nil
	case "speedx":
		return NewPlainTextScraper(client, "speedx", SpeedXURL, true), nil
	case "monosans":
		return NewPlainTextScraper(client, "monosans", MonosansURL, true), nil
	case "ip3366":
		return NewHTMLTableScraper(client, "ip3366", IP3366URL, IP3366Layout), nil
	case "qiyunip":
		return NewHTMLTableScraper(client, "qiyunip", QiyunIPURL, QiyunIPLayout), nil
	case "zdaye":
		return NewHTMLTableScraper(client, "zdaye", ZdayeURL, ZdayeLayout), nil
	case "kuaidaili":
		return NewKuaidailiScraper(KuaidailiBaseURL, 2, client.GetClient().Timeout, 2*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown proxy source %q", name)
	}
}

// fetch 发起一次 GET 请求并返回响应体；任何失败都包装为 ErrSourceUnavailable。
func fetch(ctx context.Context, client *resty.Client, source, url string, query map[string]string) ([]byte, error) {
	req := client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, source, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s: received non-2xx status code (%d)", ErrSourceUnavailable, source, resp.StatusCode())
	}
	return resp.Body(), nil
}
