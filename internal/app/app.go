package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bbsbot/internal/forum"
	"bbsbot/internal/promotion"
	"bbsbot/internal/shared/logger"
	"bbsbot/internal/shared/types"
	"bbsbot/proxypool"
)

// ErrPromotionIncomplete 表示推广循环结束时没有领到奖励。
var ErrPromotionIncomplete = errors.New("promotion finished without claiming the reward")

type forumSession interface {
	Login(ctx context.Context, username, password string) error
	FormHash(ctx context.Context) (string, error)
}

type forumTasks interface {
	DailySignIn(ctx context.Context) (bool, error)
	BumpThread(ctx context.Context, tid, formhash string) error
	ReplyThread(ctx context.Context, tid, formhash, message string) error
}

type promoter interface {
	Run(ctx context.Context, targetURL string) bool
}

// App 把论坛会话、日常任务和推广控制器组装在一起，完成一次定时运行。
type App struct {
	cfg        *types.Config
	session    forumSession
	tasks      forumTasks
	controller promoter
}

// New 根据配置创建 App 及其全部依赖。
func New(cfg *types.Config) (*App, error) {
	session, err := forum.NewSession(cfg.ForumConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create forum session: %w", err)
	}

	poolManager, err := proxypool.NewManagerFromConfig(cfg.ProxyPoolConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy pool manager: %w", err)
	}

	pc := cfg.PromotionConf
	rewarder := promotion.NewRewardClient(session, pc.TaskID, seconds(pc.RewardTimeoutSeconds))
	clicker := promotion.NewClickDispatcher(pc.Concurrency, seconds(pc.ClickTimeoutSeconds), session.BaseURL()+"/", cfg.ForumConf.UserAgent)
	controller := promotion.NewController(rewarder, poolManager, clicker, pc.StepSize, seconds(pc.StepDelaySeconds))

	return &App{
		cfg:        cfg,
		session:    session,
		tasks:      forum.NewTasks(session),
		controller: controller,
	}, nil
}

// Run 登录并执行 now 所在小时计划内的动作。
func (a *App) Run(ctx context.Context, now time.Time) error {
	return a.RunActions(ctx, Plan(now.Hour(), a.cfg.ScheduleConf))
}

// RunActions 登录后依次执行给定动作。单个动作失败不会阻止后续动作，所有失败合并后返回。
func (a *App) RunActions(ctx context.Context, actions []Action) error {
	l := logger.WithComponent("App")

	if err := a.session.Login(ctx, a.cfg.ForumConf.Username, a.cfg.ForumConf.Password); err != nil {
		return err
	}

	var errs []error
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		l.Info().Str("action", string(action)).Msg("Running action.")
		if err := a.runAction(ctx, action); err != nil {
			l.Error().Err(err).Str("action", string(action)).Msg("Action failed.")
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) runAction(ctx context.Context, action Action) error {
	fc := a.cfg.ForumConf
	switch action {
	case ActionSignIn:
		_, err := a.tasks.DailySignIn(ctx)
		return err
	case ActionPromote:
		if !a.controller.Run(ctx, a.cfg.PromotionConf.PromoURL) {
			return ErrPromotionIncomplete
		}
		return nil
	case ActionReply:
		formhash, err := a.session.FormHash(ctx)
		if err != nil {
			return err
		}
		return a.tasks.ReplyThread(ctx, fc.TargetTID, formhash, fc.ReplyMessage)
	case ActionBump:
		formhash, err := a.session.FormHash(ctx)
		if err != nil {
			return err
		}
		return a.tasks.BumpThread(ctx, fc.TargetTID, formhash)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
