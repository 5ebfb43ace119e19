package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/opsre/chatgate/internal/database"
	"github.com/opsre/chatgate/internal/provider"
	"github.com/opsre/chatgate/internal/service"
)

var (
	integrationOutputType string
)

// integrationCmd 集成管理命令组
var integrationCmd = &cobra.Command{
	Use:   "integration",
	Short: "管理平台集成",
	Long:  `查看各工作区已连接的聊天平台集成和本服务支持的平台列表。`,
}

// integrationListCmd 列出所有集成
var integrationListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有集成",
	Long:  `列出所有工作区已连接的平台集成。凭证内容不会展示。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := service.NewIntegrationService(database.GetDB())

		integrations, err := store.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list integrations: %w", err)
		}

		// 输出结果
		if integrationOutputType == "json" {
			type row struct {
				WorkspaceID string `json:"workspaceId"`
				Provider    string `json:"provider"`
				UpdatedAt   string `json:"updatedAt"`
			}
			rows := make([]row, 0, len(integrations))
			for _, it := range integrations {
				rows = append(rows, row{
					WorkspaceID: it.WorkspaceID,
					Provider:    it.Provider,
					UpdatedAt:   it.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Println(string(data))
		} else {
			// 使用 lipgloss/table 表格输出
			rows := [][]string{}

			for _, it := range integrations {
				rows = append(rows, []string{
					it.WorkspaceID, it.Provider,
					it.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
				Headers("Workspace", "Provider", "Updated At").
				Rows(rows...)

			fmt.Println(t)
			fmt.Println()
			logx.Info("Query completed, count %d", len(integrations))
		}

		return nil
	},
}

// integrationProvidersCmd 列出支持的平台
var integrationProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "列出支持的平台",
	Long:  `列出本服务支持的聊天平台及各平台连接所需的凭证字段。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := [][]string{}

		for _, name := range provider.List() {
			p, err := provider.Get(name)
			if err != nil {
				continue
			}
			handshake := "no"
			if p.NeedsHandshake() {
				handshake = "yes"
			}
			rows = append(rows, []string{
				name,
				strings.Join(p.RequiredFields(), ", "),
				handshake,
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
			Headers("Provider", "Required Fields", "Handshake").
			Rows(rows...)

		fmt.Println(t)
		return nil
	},
}

func init() {
	integrationListCmd.Flags().StringVarP(&integrationOutputType, "output", "o", "table", "输出格式 (table/json)")

	integrationCmd.AddCommand(integrationListCmd)
	integrationCmd.AddCommand(integrationProvidersCmd)
	rootCmd.AddCommand(integrationCmd)
}
