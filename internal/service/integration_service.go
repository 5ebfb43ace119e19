package service

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/opsre/chatgate/internal/model"
)

// IntegrationService 集成凭证存储服务
type IntegrationService struct {
	db *gorm.DB
}

// NewIntegrationService 创建集成存储服务实例
func NewIntegrationService(db *gorm.DB) *IntegrationService {
	return &IntegrationService{db: db}
}

// Get 获取指定工作区和平台的集成，不存在时返回 nil
func (s *IntegrationService) Get(workspaceID, provider string) (*model.Integration, error) {
	var integration model.Integration
	err := s.db.Where("workspace_id = ? AND provider = ?", workspaceID, provider).First(&integration).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// Upsert 保存集成凭证，同一 (workspace_id, provider) 的旧凭证被整体替换
func (s *IntegrationService) Upsert(workspaceID, provider string, creds model.JSONMap, userID string) error {
	if workspaceID == "" || provider == "" || len(creds) == 0 {
		return fmt.Errorf("workspace_id, provider and credentials are required")
	}

	credsJSON, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	// 使用原生SQL实现真正的Upsert
	// SQLite使用 INSERT ... ON CONFLICT ... DO UPDATE
	now := time.Now()
	return s.db.Exec(`
		INSERT INTO integrations (workspace_id, provider, credentials, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, provider)
		DO UPDATE SET
			credentials = excluded.credentials,
			updated_at = excluded.updated_at
	`, workspaceID, provider, string(credsJSON), userID, now, now).Error
}

// Remove 删除集成，删除不存在的记录不是错误
func (s *IntegrationService) Remove(workspaceID, provider string) error {
	return s.db.Where("workspace_id = ? AND provider = ?", workspaceID, provider).
		Delete(&model.Integration{}).Error
}

// ListProviders 列出工作区已连接的平台名称
func (s *IntegrationService) ListProviders(workspaceID string) ([]string, error) {
	var providers []string
	err := s.db.Model(&model.Integration{}).
		Where("workspace_id = ?", workspaceID).
		Pluck("provider", &providers).Error
	return providers, err
}

// ListAll 列出所有集成(用于 CLI 展示)
func (s *IntegrationService) ListAll() ([]model.Integration, error) {
	var integrations []model.Integration
	err := s.db.Order("workspace_id, provider").Find(&integrations).Error
	return integrations, err
}
