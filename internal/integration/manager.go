// Package integration 实现集成生命周期管理: 连接、测试、断开、状态查询
package integration

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
	"github.com/opsre/chatgate/internal/service"
)

// ErrMissingWorkspace 请求缺少工作区标识
var ErrMissingWorkspace = errors.New("missing workspaceId")

// Manager 集成管理器
type Manager struct {
	store *service.IntegrationService
}

// NewManager 创建集成管理器
func NewManager(store *service.IntegrationService) *Manager {
	return &Manager{store: store}
}

// Connect 校验并保存平台凭证，同一 (workspace, provider) 的旧凭证被替换
func (m *Manager) Connect(actorID, workspaceID, providerName string, rawCreds any) error {
	p, err := provider.Get(providerName)
	if err != nil {
		return err
	}

	if workspaceID == "" {
		return ErrMissingWorkspace
	}

	creds, err := normalizeCredentials(rawCreds)
	if err != nil {
		return err
	}

	if err := provider.ValidateCredentials(p, creds); err != nil {
		return err
	}

	return m.store.Upsert(workspaceID, providerName, creds, actorID)
}

// normalizeCredentials 凭证既可以是JSON对象，也可以是JSON编码的字符串
func normalizeCredentials(rawCreds any) (model.JSONMap, error) {
	switch v := rawCreds.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, provider.ErrMalformedCredentials
		}
		return model.JSONMap(v), nil
	case model.JSONMap:
		if len(v) == 0 {
			return nil, provider.ErrMalformedCredentials
		}
		return v, nil
	case string:
		var creds model.JSONMap
		if err := json.Unmarshal([]byte(v), &creds); err != nil || len(creds) == 0 {
			return nil, provider.ErrMalformedCredentials
		}
		return creds, nil
	default:
		return nil, provider.ErrMalformedCredentials
	}
}

// Test 用存储的凭证对平台 API 做一次真实校验
// opts.Action 为 setWebhook 时执行回调地址注册(仅部分平台支持)
func (m *Manager) Test(ctx context.Context, workspaceID, providerName string, opts *provider.TestOptions) (*provider.TestResult, error) {
	p, err := provider.Get(providerName)
	if err != nil {
		return nil, err
	}

	if workspaceID == "" {
		return nil, ErrMissingWorkspace
	}

	integration, err := m.store.Get(workspaceID, providerName)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, provider.ErrNotConnected
	}

	return p.TestLiveness(ctx, integration.Credentials, opts)
}

// Disconnect 删除集成，重复断开不是错误
func (m *Manager) Disconnect(workspaceID, providerName string) error {
	if _, err := provider.Get(providerName); err != nil {
		return err
	}

	if workspaceID == "" {
		return ErrMissingWorkspace
	}

	return m.store.Remove(workspaceID, providerName)
}

// Status 返回工作区对每个已注册平台的连接状态，未连接的平台也在列
func (m *Manager) Status(workspaceID string) (map[string]model.IntegrationStatus, error) {
	if workspaceID == "" {
		return nil, ErrMissingWorkspace
	}

	connected, err := m.store.ListProviders(workspaceID)
	if err != nil {
		return nil, err
	}

	connectedSet := make(map[string]bool, len(connected))
	for _, name := range connected {
		connectedSet[name] = true
	}

	status := make(map[string]model.IntegrationStatus)
	for _, name := range provider.List() {
		if connectedSet[name] {
			status[name] = model.IntegrationStatus{Status: model.StatusConnected}
		} else {
			status[name] = model.IntegrationStatus{Status: model.StatusDisconnected}
		}
	}

	return status, nil
}
