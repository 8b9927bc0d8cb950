package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bbsbot/internal/shared/logger"
)

// ErrMissingFormHash 表示调用方没有提供 formhash，需要表单校验的动作会被跳过。
var ErrMissingFormHash = errors.New("missing formhash")

// bumpMagicID 是论坛道具中“提升卡”的编号。
const bumpMagicID = "10"

// Tasks 封装签到、顶贴、回帖这些一次性的日常动作。
type Tasks struct {
	session *Session
}

// NewTasks 创建一个 Tasks。
func NewTasks(session *Session) *Tasks {
	return &Tasks{session: session}
}

// DailySignIn 在首页查找签到链接并访问它。页面上没有签到链接时返回 false（通常是今天已经签过）。
func (t *Tasks) DailySignIn(ctx context.Context) (bool, error) {
	l := logger.WithComponent("Forum/Tasks")

	doc, err := t.session.document(ctx, "/")
	if err != nil {
		return false, err
	}

	href, ok := doc.Find("a.midaben_signpanel.JD_sign").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		l.Info().Msg("Sign-in link not found, probably already signed in today.")
		return false, nil
	}

	status, _, err := t.session.Get(ctx, strings.TrimSpace(href))
	if err != nil {
		return false, fmt.Errorf("sign-in request failed: %w", err)
	}
	l.Info().Int("status_code", status).Msg("Sign-in request sent.")
	return true, nil
}

// BumpThread 使用提升卡把帖子顶到前面。
func (t *Tasks) BumpThread(ctx context.Context, tid, formhash string) error {
	l := logger.WithComponent("Forum/Tasks")
	if formhash == "" {
		l.Warn().Str("tid", tid).Msg("No formhash, skipping bump.")
		return ErrMissingFormHash
	}

	status, _, err := t.session.Post(ctx, "home.php?mod=magic&action=mybox&infloat=yes&inajax=1", map[string]string{
		"formhash":  formhash,
		"handlekey": "a_bump",
		"operation": "use",
		"magicid":   bumpMagicID,
		"tid":       tid,
		"usesubmit": "yes",
		"idtype":    "tid",
		"id":        tid,
	})
	if err != nil {
		return fmt.Errorf("bump request failed: %w", err)
	}
	if status != 200 {
		l.Warn().Int("status_code", status).Str("tid", tid).Msg("Bump failed, check for a bump card or cooldown.")
		return fmt.Errorf("bump thread %s: received status code %d", tid, status)
	}

	l.Info().Str("tid", tid).Msg("Thread bumped.")
	return nil
}

// ReplyThread 在帖子下发表一条快速回复。
func (t *Tasks) ReplyThread(ctx context.Context, tid, formhash, message string) error {
	l := logger.WithComponent("Forum/Tasks")
	if formhash == "" {
		l.Warn().Str("tid", tid).Msg("No formhash, skipping reply.")
		return ErrMissingFormHash
	}

	url := fmt.Sprintf("forum.php?mod=post&action=reply&tid=%s&extra=&replysubmit=yes&infloat=yes&handlekey=fastpost&inajax=1", tid)
	status, body, err := t.session.Post(ctx, url, map[string]string{
		"formhash": formhash,
		"message":  message,
		"subject":  "",
		"usesig":   "1",
	})
	if err != nil {
		return fmt.Errorf("reply request failed: %w", err)
	}
	if status != 200 {
		return fmt.Errorf("reply to thread %s: received status code %d", tid, status)
	}
	if strings.Contains(body, "errorhandle_") {
		l.Warn().Str("tid", tid).Msg("Forum rejected the reply.")
		return fmt.Errorf("reply to thread %s was rejected", tid)
	}

	l.Info().Str("tid", tid).Msg("Reply posted.")
	return nil
}
