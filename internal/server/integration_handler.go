package server

import (
	"errors"
	"net/http"
	"strconv"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"

	"github.com/opsre/chatgate/internal/integration"
	"github.com/opsre/chatgate/internal/provider"
)

// IntegrationHandler 集成管理处理器
type IntegrationHandler struct {
	manager *integration.Manager
}

// NewIntegrationHandler 创建集成管理处理器
func NewIntegrationHandler(manager *integration.Manager) *IntegrationHandler {
	return &IntegrationHandler{manager: manager}
}

// ConnectRequest 连接请求
type ConnectRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Credentials any    `json:"credentials"`
}

// Connect 保存平台凭证
func (h *IntegrationHandler) Connect(c *gin.Context) {
	providerName := c.Param("provider")

	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing data")
		return
	}

	if req.WorkspaceID == "" || req.Credentials == nil {
		fail(c, http.StatusBadRequest, "Missing data")
		return
	}

	actorID := actorIDFromContext(c)

	if err := h.manager.Connect(actorID, req.WorkspaceID, providerName, req.Credentials); err != nil {
		h.writeManagerError(c, err)
		return
	}

	// 不回显任何凭证内容
	success(c, gin.H{"status": "connected"})
}

// TestRequest 测试请求
type TestRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Action      string `json:"action"`
	WebhookURL  string `json:"webhookUrl"`
}

// Test 用存储的凭证对平台 API 做一次真实校验
func (h *IntegrationHandler) Test(c *gin.Context) {
	providerName := c.Param("provider")

	var req TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing data")
		return
	}

	opts := &provider.TestOptions{
		Action:     req.Action,
		WebhookURL: req.WebhookURL,
	}

	result, err := h.manager.Test(c.Request.Context(), req.WorkspaceID, providerName, opts)
	if err != nil {
		h.writeManagerError(c, err)
		return
	}

	success(c, result)
}

// Disconnect 断开集成，重复断开不是错误
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	providerName := c.Param("provider")

	// workspaceId 从请求体或查询参数获取
	var req struct {
		WorkspaceID string `json:"workspaceId"`
	}
	_ = c.ShouldBindJSON(&req)

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = c.Query("workspaceId")
	}

	if err := h.manager.Disconnect(workspaceID, providerName); err != nil {
		h.writeManagerError(c, err)
		return
	}

	success(c, gin.H{"status": "disconnected"})
}

// Status 返回工作区对每个已注册平台的连接状态
func (h *IntegrationHandler) Status(c *gin.Context) {
	workspaceID := c.Query("workspaceId")

	status, err := h.manager.Status(workspaceID)
	if err != nil {
		h.writeManagerError(c, err)
		return
	}

	success(c, status)
}

// writeManagerError 按错误类型映射响应状态码
func (h *IntegrationHandler) writeManagerError(c *gin.Context, err error) {
	var missingField *provider.MissingFieldError
	var providerErr *provider.ProviderError

	switch {
	case errors.Is(err, provider.ErrInvalidProvider):
		fail(c, http.StatusBadRequest, "Invalid provider")
	case errors.Is(err, provider.ErrNotConnected):
		fail(c, http.StatusBadRequest, "Not connected")
	case errors.Is(err, integration.ErrMissingWorkspace):
		fail(c, http.StatusBadRequest, "Missing workspaceId")
	case errors.Is(err, provider.ErrMalformedCredentials):
		fail(c, http.StatusBadRequest, "Malformed credentials")
	case errors.As(err, &missingField):
		fail(c, http.StatusBadRequest, missingField.Error())
	case errors.As(err, &providerErr):
		// 平台侧拒绝，透传平台自己的错误信息
		fail(c, http.StatusBadRequest, providerErr.Error())
	default:
		// 内部错误不暴露细节，凭证内容不落日志
		logx.Error("Integration request failed: %v", err)
		fail(c, http.StatusInternalServerError, "Server error")
	}
}

// actorIDFromContext 从认证中间件取调用者身份
func actorIDFromContext(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(uint); ok {
			return strconv.FormatUint(uint64(id), 10)
		}
	}
	return ""
}
