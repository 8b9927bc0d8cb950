package forum

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"

	"bbsbot/internal/shared/logger"
	"bbsbot/internal/shared/types"
)

var (
	// ErrLoginFailed 表示登录请求没有得到 200 响应。
	ErrLoginFailed = errors.New("forum login failed")
	// ErrFormHashNotFound 表示首页上找不到带 formhash 的退出登录链接（通常是未登录）。
	ErrFormHashNotFound = errors.New("formhash not found")
)

var formHashPattern = regexp.MustCompile(`formhash=([a-z0-9]+)`)

const logoutLinkText = "退出登录"

// Session 是一个已登录的论坛会话，持有 cookie 和公共请求头。
// 它是并发安全的，可以被多个任务共享。
type Session struct {
	client  *resty.Client
	baseURL string
}

// NewSession 创建一个带 cookie jar 和公共请求头的会话，尚未登录。
func NewSession(cfg types.ForumConf) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetCookieJar(jar).
		SetTimeout(30 * time.Second).
		SetLogger(logger.ForResty("Forum/Session")).
		SetHeaders(map[string]string{
			"Origin":     baseURL,
			"Referer":    baseURL + "/",
			"User-Agent": cfg.UserAgent,
		})

	return &Session{client: client, baseURL: baseURL}, nil
}

// BaseURL 返回论坛根地址（无结尾斜杠）。
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Get 发起 GET 请求。url 可以是相对于论坛根地址的路径。
func (s *Session) Get(ctx context.Context, url string) (int, string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), resp.String(), nil
}

// Post 以表单形式发起 POST 请求。
func (s *Session) Post(ctx context.Context, url string, form map[string]string) (int, string, error) {
	resp, err := s.client.R().SetContext(ctx).SetFormData(form).Post(url)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), resp.String(), nil
}

// Login 使用账号密码登录，成功后 cookie 保存在会话的 jar 中。
func (s *Session) Login(ctx context.Context, username, password string) error {
	l := logger.WithComponent("Forum/Session")

	status, _, err := s.Post(ctx, "member.php?mod=logging&action=login&loginsubmit=yes", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if status != 200 {
		return fmt.Errorf("%w: received status code %d", ErrLoginFailed, status)
	}

	l.Info().Str("username", username).Msg("Login succeeded.")
	return nil
}

// FormHash 解析首页的退出登录链接，取出 Discuz 表单校验码。
func (s *Session) FormHash(ctx context.Context) (string, error) {
	doc, err := s.document(ctx, "/")
	if err != nil {
		return "", err
	}

	var hash string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) != logoutLinkText {
			return true
		}
		href, _ := sel.Attr("href")
		if m := formHashPattern.FindStringSubmatch(href); m != nil {
			hash = m[1]
		}
		return false
	})

	if hash == "" {
		return "", ErrFormHashNotFound
	}
	return hash, nil
}

func (s *Session) document(ctx context.Context, url string) (*goquery.Document, error) {
	status, body, err := s.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("received non-200 status code (%d) from %s", status, url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return doc, nil
}
