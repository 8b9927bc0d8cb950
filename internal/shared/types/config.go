package types

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// ForumConf 描述论坛站点与登录账号。
type ForumConf struct {
	BaseURL      string `ini:"base_url"`
	UserAgent    string `ini:"user_agent"`
	Username     string `ini:"username"`
	Password     string `ini:"password"`
	TargetTID    string `ini:"target_tid"`
	ReplyMessage string `ini:"reply_message"`
}

// PromotionConf 控制推广刷流与领奖循环。
type PromotionConf struct {
	PromoURL             string `ini:"promo_url"`
	TaskID               int    `ini:"task_id"`
	StepSize             int    `ini:"step_size"`          // 每命中多少次尝试一次领奖
	StepDelaySeconds     int    `ini:"step_delay_seconds"` // 领奖前的同步等待
	Concurrency          int    `ini:"concurrency"`
	ClickTimeoutSeconds  int    `ini:"click_timeout_seconds"`
	RewardTimeoutSeconds int    `ini:"reward_timeout_seconds"`
}

// ProxyPoolConf 控制代理源的顺序与聚合阈值。
type ProxyPoolConf struct {
	Sources                  []string `ini:"sources" delim:","`
	SufficientCount          int      `ini:"sufficient_count"`
	SourceTimeoutSeconds     int      `ini:"source_timeout_seconds"`
	CheckerProxyMinCount     int      `ini:"checkerproxy_min_count"`
	CheckerProxyLookbackDays int      `ini:"checkerproxy_lookback_days"`
	GeonodeLimit             int      `ini:"geonode_limit"`
}

// ScheduleConf 决定一天中哪个小时执行哪些日常动作。
type ScheduleConf struct {
	SignInHour int   `ini:"sign_in_hour"`
	ReplyHours []int `ini:"reply_hours" delim:","`
	BumpHours  []int `ini:"bump_hours" delim:","`
}

// Config 是 bbsbot 的统一配置结构体
type Config struct {
	LogConf       `ini:"log"`
	ForumConf     `ini:"forum"`
	PromotionConf `ini:"promotion"`
	ProxyPoolConf `ini:"proxypool"`
	ScheduleConf  `ini:"schedule"`
}
