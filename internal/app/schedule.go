package app

import (
	"fmt"
	"slices"
	"strings"

	"bbsbot/internal/shared/types"
)

// Action 是一次运行中可以执行的日常动作。
type Action string

const (
	ActionSignIn  Action = "signin"
	ActionPromote Action = "promote"
	ActionReply   Action = "reply"
	ActionBump    Action = "bump"
)

var allActions = []Action{ActionSignIn, ActionPromote, ActionReply, ActionBump}

// ParseAction 把命令行上的任务名解析为 Action。
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(allActions, a) {
		return "", fmt.Errorf("unknown task %q (expected one of %v)", name, allActions)
	}
	return a, nil
}

// Plan 根据当前小时决定本次运行要做的动作。推广每次都执行，其余动作按配置的小时触发。
// 返回顺序即执行顺序：签到在推广之前，回帖和顶贴在推广之后。
func Plan(hour int, cfg types.ScheduleConf) []Action {
	var actions []Action
	if hour == cfg.SignInHour {
		actions = append(actions, ActionSignIn)
	}
	actions = append(actions, ActionPromote)
	if slices.Contains(cfg.ReplyHours, hour) {
		actions = append(actions, ActionReply)
	}
	if slices.Contains(cfg.BumpHours, hour) {
		actions = append(actions, ActionBump)
	}
	return actions
}
