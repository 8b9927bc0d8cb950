package promotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bbsbot/internal/shared/logger"
)

const (
	ApplySuccessMarker   = "任务申请成功"
	AlreadyAppliedMarker = "已经领取"
	DrawSuccessMarker    = "请注意查收"
)

// Session 是核心逻辑所需的已登录会话能力。实现方持有 cookie 和公共请求头，核心只读使用。
type Session interface {
	Get(ctx context.Context, url string) (status int, body string, err error)
}

// RewardClient 使用主账号会话（不走代理）接取任务和领取奖励。
type RewardClient struct {
	session Session
	taskID  int
	timeout time.Duration
	log     zerolog.Logger
}

// NewRewardClient 创建一个 RewardClient。timeout <= 0 时使用 15 秒。
func NewRewardClient(session Session, taskID int, timeout time.Duration) *RewardClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RewardClient{
		session: session,
		taskID:  taskID,
		timeout: timeout,
		log:     logger.WithComponent("Promotion/Reward"),
	}
}

// Apply 接取任务。申请成功或已经领取过都视为成功。
func (c *RewardClient) Apply(ctx context.Context) bool {
	body, ok := c.request(ctx, "apply")
	if !ok {
		return false
	}
	success := strings.Contains(body, ApplySuccessMarker) || strings.Contains(body, AlreadyAppliedMarker)
	c.log.Info().Int("task_id", c.taskID).Bool("success", success).Msg("Task apply result.")
	return success
}

// Draw 尝试领取任务奖励，只有响应中出现发奖提示时才返回 true。
func (c *RewardClient) Draw(ctx context.Context) bool {
	body, ok := c.request(ctx, "draw")
	if !ok {
		return false
	}
	success := strings.Contains(body, DrawSuccessMarker)
	c.log.Info().Int("task_id", c.taskID).Bool("success", success).Msg("Task draw result.")
	return success
}

func (c *RewardClient) request(ctx context.Context, action string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("home.php?mod=task&do=%s&id=%d", action, c.taskID)
	status, body, err := c.session.Get(ctx, url)
	if err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("Task request failed.")
		return "", false
	}
	if status != 200 {
		c.log.Warn().Int("status_code", status).Str("action", action).Msg("Task request returned non-200 status code.")
	}
	return body, true
}
