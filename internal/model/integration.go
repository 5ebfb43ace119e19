package model

import "time"

// 集成连接状态
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Integration 平台集成模型
// 每个 (workspace_id, provider) 组合最多只有一条记录
type Integration struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID string    `gorm:"size:100;not null;uniqueIndex:idx_workspace_provider" json:"workspace_id"`
	Provider    string    `gorm:"size:50;not null;uniqueIndex:idx_workspace_provider" json:"provider"`
	Credentials JSONMap   `gorm:"type:text;not null" json:"-"` // 凭证不对外序列化
	UserID      string    `gorm:"size:100" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Integration) TableName() string {
	return "integrations"
}

// IntegrationStatus 单个平台的连接状态
type IntegrationStatus struct {
	Status string `json:"status"`
}
