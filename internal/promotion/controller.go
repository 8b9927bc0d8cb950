package promotion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bbsbot/internal/shared/logger"
	"bbsbot/proxypool/model"
)

// Rewarder 驱动外部任务状态机：接取与领奖。
type Rewarder interface {
	Apply(ctx context.Context) bool
	Draw(ctx context.Context) bool
}

// PoolCollector 为一次运行构建新的代理池。
type PoolCollector interface {
	Collect(ctx context.Context) (*model.Pool, error)
}

// Clicker 并发分发点击并按完成顺序返回结果。
type Clicker interface {
	DispatchAll(ctx context.Context, endpoints []model.Endpoint, targetURL string) <-chan ClickResult
}

// Outcome 是一次推广运行的终止状态。
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeExhausted
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// progressEvery 是每消费多少个点击结果打印一次进度汇总。
const progressEvery = 50

// runState 只在消费结果的 goroutine 中修改。
type runState struct {
	totalHits int
	misses    int
	stepHits  int
	draws     int
}

func (s *runState) results() int {
	return s.totalHits + s.misses
}

// Controller 编排 预检领奖 -> 接取任务 -> 聚合代理 -> 刷流/阶段领奖 的反馈循环。
type Controller struct {
	rewarder  Rewarder
	collector PoolCollector
	clicker   Clicker
	stepSize  int
	stepDelay time.Duration
}

// NewController 创建一个 Controller。stepSize <= 0 时使用 12。
func NewController(rewarder Rewarder, collector PoolCollector, clicker Clicker, stepSize int, stepDelay time.Duration) *Controller {
	if stepSize <= 0 {
		stepSize = 12
	}
	return &Controller{
		rewarder:  rewarder,
		collector: collector,
		clicker:   clicker,
		stepSize:  stepSize,
		stepDelay: stepDelay,
	}
}

// Run 执行一次完整的推广运行，领奖成功时返回 true。
// 可以重复调用，两次调用之间不共享任何状态。
func (c *Controller) Run(ctx context.Context, targetURL string) bool {
	outcome, _ := c.run(ctx, targetURL)
	return outcome == OutcomeDone
}

func (c *Controller) run(ctx context.Context, targetURL string) (Outcome, runState) {
	l := logger.WithComponent("Promotion/Controller").With().Str("run_id", uuid.NewString()).Logger()
	var state runState

	// 1. 启动前补领
	if c.rewarder.Draw(ctx) {
		l.Info().Msg("Reward drawn before clicking, task already completed.")
		return OutcomeDone, state
	}

	// 2. 接取任务，失败不致命
	if !c.rewarder.Apply(ctx) {
		l.Warn().Msg("Task apply may have failed, continuing with clicks and draws anyway.")
	}

	// 3. 构建代理池
	pool, err := c.collector.Collect(ctx)
	if err != nil || pool == nil || pool.Len() == 0 {
		l.Error().Err(err).Msg("Unable to build proxy pool, aborting promotion.")
		return OutcomeExhausted, state
	}
	l.Info().Int("proxies", pool.Len()).Int("step_size", c.stepSize).Str("target", targetURL).Msg("Starting clicks.")

	// 4. 刷流，每满一个阶段尝试一次领奖
	clickCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for res := range c.clicker.DispatchAll(clickCtx, pool.Endpoints(), targetURL) {
		if res.Success {
			state.totalHits++
			state.stepHits++
		} else {
			state.misses++
		}
		if state.results()%progressEvery == 0 {
			l.Info().Int("results", state.results()).Int("total_hits", state.totalHits).Int("misses", state.misses).Int("pool", pool.Len()).Msg("Click progress.")
		}
		if !res.Success {
			continue
		}
		l.Info().Int("total_hits", state.totalHits).Int("step_hits", state.stepHits).Int("step_size", c.stepSize).Str("endpoint", res.Endpoint.String()).Msg("Click hit.")

		if state.stepHits < c.stepSize {
			continue
		}

		done, ok := c.redeem(ctx, &state, l)
		if !ok {
			return OutcomeCancelled, state
		}
		if done {
			cancel()
			return OutcomeDone, state
		}
	}

	if ctx.Err() != nil {
		l.Error().Err(ctx.Err()).Int("total_hits", state.totalHits).Int("misses", state.misses).Msg("Promotion cancelled.")
		return OutcomeCancelled, state
	}

	// 5. 代理池耗尽
	l.Error().Int("total_hits", state.totalHits).Int("misses", state.misses).Int("draws", state.draws).Msg("Proxy pool exhausted without drawing the reward.")
	return OutcomeExhausted, state
}

// redeem 在阶段边界等待 stepDelay 后尝试领奖。done 表示领奖成功；ok 为 false 表示等待期间 ctx 被取消。
func (c *Controller) redeem(ctx context.Context, state *runState, l zerolog.Logger) (done, ok bool) {
	l.Info().Int("step_size", c.stepSize).Dur("delay", c.stepDelay).Msg("Step target reached, waiting before draw.")
	if !sleepContext(ctx, c.stepDelay) {
		l.Error().Err(ctx.Err()).Msg("Promotion cancelled while waiting to draw.")
		return false, false
	}

	state.draws++
	if c.rewarder.Draw(ctx) {
		l.Info().Int("total_hits", state.totalHits).Int("draws", state.draws).Msg("Reward drawn, promotion complete.")
		return true, true
	}

	l.Warn().Int("total_hits", state.totalHits).Msg("Draw failed (clicks may not have registered yet), continuing.")
	state.stepHits = 0
	return false, true
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
