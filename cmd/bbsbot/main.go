package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bbsbot/internal/app"
	"bbsbot/internal/shared/config"
	"bbsbot/internal/shared/logger"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	task := flag.String("task", "", "Run a single task (signin, promote, reply, bump) instead of the hourly plan")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "bbsbot.ini")

	// 1. 加载配置：默认值 <- .ini <- 环境变量
	cfg, err := config.Load(iniPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// 2. 组装并运行
	bot, err := app.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize bbsbot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *task != "" {
		action, perr := app.ParseAction(*task)
		if perr != nil {
			logger.Fatal().Err(perr).Msg("Invalid -task flag")
		}
		err = bot.RunActions(ctx, []app.Action{action})
	} else {
		err = bot.Run(ctx, time.Now())
	}

	if err != nil {
		logger.Error().Err(err).Msg("Run finished with errors")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("Run finished")
}
