package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "chatgate",
	Short: "ChatGate - 多租户聊天平台集成网关",
	Long: `ChatGate 是一个多租户聊天平台集成网关。

统一接入 Telegram、WhatsApp、Messenger、Twilio 等聊天平台，
管理各工作区的平台凭证，接收平台回调消息并通过对应平台回复。`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认搜索 ./config.yaml, ./configs/config.yaml)")
}
