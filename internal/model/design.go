package model

import "time"

// ChatDesign 聊天挂件外观配置模型
// 每个 (user_id, name) 组合最多只有一条记录
type ChatDesign struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"size:100;not null;uniqueIndex:idx_user_name" json:"user_id"`
	Name            string    `gorm:"size:200;not null;uniqueIndex:idx_user_name" json:"name"`
	Config          JSONMap   `gorm:"type:text;not null" json:"config"`
	PreviewSnapshot string    `gorm:"type:text" json:"preview_snapshot,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ChatDesign) TableName() string {
	return "chat_designs"
}
