package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"bbsbot/internal/shared/types"
)

const (
	DefaultBaseURL   = "https://klpbbs.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36 Edg/116.0.1938.81"
)

// DefaultSources 是代理源的默认优先级：结构化、可靠的源在前，通用抓取列表在后。
var DefaultSources = []string{
	"checkerproxy",
	"proxyscrape",
	"proxy-list.download",
	"geonode",
	"speedx",
	"monosans",
}

// Default 返回所有字段均已填充默认值的配置。
func Default() *types.Config {
	return &types.Config{
		LogConf: types.LogConf{Level: "info"},
		ForumConf: types.ForumConf{
			BaseURL:      DefaultBaseURL,
			UserAgent:    DefaultUserAgent,
			ReplyMessage: "支持一下，感谢分享！",
		},
		PromotionConf: types.PromotionConf{
			TaskID:               1,
			StepSize:             12,
			StepDelaySeconds:     15,
			Concurrency:          20,
			ClickTimeoutSeconds:  10,
			RewardTimeoutSeconds: 15,
		},
		ProxyPoolConf: types.ProxyPoolConf{
			Sources:                  append([]string(nil), DefaultSources...),
			SufficientCount:          500,
			SourceTimeoutSeconds:     15,
			CheckerProxyMinCount:     100,
			CheckerProxyLookbackDays: 7,
			GeonodeLimit:             300,
		},
		ScheduleConf: types.ScheduleConf{
			SignInHour: 16,
			ReplyHours: []int{0},
			BumpHours:  []int{6, 12},
		},
	}
}

// Load 先加载 .env（如果存在），再把 ini 文件映射到默认配置之上，最后应用环境变量覆盖。
// ini 文件不存在时只使用默认值和环境变量。
func Load(iniPath string) (*types.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if err := LoadIni(cfg, iniPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file '%s': %w", iniPath, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadIni 将 ini 文件映射到 cfg。未出现在文件中的键保留原值。
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); err != nil {
		return err
	}
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	return iniFile.MapTo(cfg)
}

func applyEnv(cfg *types.Config) {
	overrideFromEnvString(&cfg.ForumConf.Username, "USERNAME")
	overrideFromEnvString(&cfg.ForumConf.Password, "PASSWORD")
	overrideFromEnvString(&cfg.ForumConf.TargetTID, "TARGET_TID")
	overrideFromEnvString(&cfg.PromotionConf.PromoURL, "PROMO_URL")
	overrideFromEnvString(&cfg.LogConf.Level, "LOG_LEVEL")
	overrideFromEnvInt(&cfg.PromotionConf.StepSize, "STEP_SIZE")
}

// Validate 检查运行所必需的字段。
func Validate(cfg *types.Config) error {
	switch {
	case cfg.ForumConf.Username == "" || cfg.ForumConf.Password == "":
		return errors.New("forum username and password are required")
	case cfg.PromotionConf.PromoURL == "":
		return errors.New("promotion promo_url is required")
	case cfg.PromotionConf.StepSize <= 0:
		return fmt.Errorf("promotion step_size must be positive, got %d", cfg.PromotionConf.StepSize)
	case cfg.PromotionConf.Concurrency <= 0:
		return fmt.Errorf("promotion concurrency must be positive, got %d", cfg.PromotionConf.Concurrency)
	case len(cfg.ProxyPoolConf.Sources) == 0:
		return errors.New("proxypool sources must not be empty")
	}
	return nil
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}
