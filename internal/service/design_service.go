package service

import (
	"gorm.io/gorm"

	"github.com/opsre/chatgate/internal/model"
)

// DesignService 挂件外观配置存储服务
type DesignService struct {
	db *gorm.DB
}

// NewDesignService 创建外观配置存储服务实例
func NewDesignService(db *gorm.DB) *DesignService {
	return &DesignService{db: db}
}

// Get 获取指定用户和名称的外观配置，不存在时返回 nil
func (s *DesignService) Get(userID, name string) (*model.ChatDesign, error) {
	var design model.ChatDesign
	err := s.db.Where("user_id = ? AND name = ?", userID, name).First(&design).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &design, nil
}

// Save 保存外观配置，同一 (user_id, name) 的旧配置被替换
func (s *DesignService) Save(design *model.ChatDesign) error {
	// 检查是否已存在配置
	var existing model.ChatDesign
	err := s.db.Where("user_id = ? AND name = ?", design.UserID, design.Name).First(&existing).Error
	if err == nil {
		// 存在则更新
		design.ID = existing.ID
		design.CreatedAt = existing.CreatedAt
		return s.db.Save(design).Error
	}
	if err == gorm.ErrRecordNotFound {
		// 不存在则创建
		return s.db.Create(design).Error
	}
	return err
}
