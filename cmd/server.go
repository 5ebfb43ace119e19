package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"

	"github.com/opsre/chatgate/internal/config"
	"github.com/opsre/chatgate/internal/database"
	"github.com/opsre/chatgate/internal/middleware"
	"github.com/opsre/chatgate/internal/server"

	// 注册各平台 Provider
	_ "github.com/opsre/chatgate/internal/provider/messenger"
	_ "github.com/opsre/chatgate/internal/provider/telegram"
	_ "github.com/opsre/chatgate/internal/provider/twilio"
	_ "github.com/opsre/chatgate/internal/provider/whatsapp"
)

// serverCmd 服务器命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 HTTP 服务器",
	Long:  `启动 ChatGate HTTP 服务器，提供集成管理 API 和各平台的 Webhook 回调入口。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 初始化 JWT
		middleware.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenExpireHours)

		// 初始化数据库
		db := database.GetDB()

		// 创建 HTTP 服务器
		srv := server.NewHTTPGinServer(cfg, db)

		// 启动服务器
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		// 等待退出信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case sig := <-quit:
			logx.Info("Received signal %s, shutting down", sig)
		}

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}

		if err := database.Close(); err != nil {
			logx.Error("Failed to close database: %v", err)
		}

		logx.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
