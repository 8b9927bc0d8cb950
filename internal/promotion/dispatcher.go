package promotion

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

// ClickResult 是一次代理点击的结果。
type ClickResult struct {
	Endpoint model.Endpoint
	Success  bool
}

// ClickDispatcher 通过代理发起匿名（不带 cookie）的点击请求。
type ClickDispatcher struct {
	concurrency int
	timeout     time.Duration
	headers     map[string]string
	restyLog    resty.Logger
}

// NewClickDispatcher 创建一个点击分发器。
// referer 通常是论坛首页，userAgent 是固定的浏览器 UA。
func NewClickDispatcher(concurrency int, timeout time.Duration, referer, userAgent string) *ClickDispatcher {
	if concurrency <= 0 {
		concurrency = 20
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClickDispatcher{
		concurrency: concurrency,
		timeout:     timeout,
		headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Referer":    referer,
		},
		restyLog: logger.ForResty("Promotion/Dispatcher"),
	}
}

// DispatchOne 通过 endpoint 代理对 targetURL 发起一次 GET，状态码恰好为 200 时返回 true。
// 任何错误（连接拒绝、超时、代理认证失败、DNS 失败）都视为 false。
func (d *ClickDispatcher) DispatchOne(ctx context.Context, endpoint model.Endpoint, targetURL string) bool {
	l := logger.WithComponent("Promotion/Dispatcher")

	proxyURL, err := url.Parse(endpoint.URL())
	if err != nil {
		l.Debug().Err(err).Str("endpoint", endpoint.String()).Msg("Invalid proxy endpoint.")
		return false
	}

	// 代理是不可信的临时节点，跳过证书校验；每次点击使用独立的连接。
	transport := &http.Transport{
		Proxy:                 http.ProxyURL(proxyURL),
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   d.timeout,
		ResponseHeaderTimeout: d.timeout,
	}
	defer transport.CloseIdleConnections()

	client := resty.NewWithClient(&http.Client{
		Transport: transport,
		Timeout:   d.timeout,
	}).SetLogger(d.restyLog)

	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(d.headers).
		Get(targetURL)
	if err != nil {
		l.Debug().Err(err).Str("endpoint", endpoint.String()).Msg("Click failed.")
		return false
	}
	return resp.StatusCode() == http.StatusOK
}

// DispatchAll 为每个端点并发执行一次 DispatchOne，同时在途的请求数不超过 concurrency。
// 结果按完成顺序写入返回的 channel；全部完成或 ctx 取消后 channel 关闭。
// ctx 取消后尚未开始的点击不再执行，迟到的结果被丢弃。
func (d *ClickDispatcher) DispatchAll(ctx context.Context, endpoints []model.Endpoint, targetURL string) <-chan ClickResult {
	results := make(chan ClickResult)

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(d.concurrency)

		for _, e := range endpoints {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res := ClickResult{Endpoint: e, Success: d.DispatchOne(ctx, e, targetURL)}
				select {
				case results <- res:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results
}
