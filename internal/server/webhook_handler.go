package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opsre/chatgate/internal/gateway"
	"github.com/opsre/chatgate/internal/provider"
)

// maxWebhookBody 入站回调请求体上限
const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookHandler 平台回调处理器
type WebhookHandler struct {
	gateway *gateway.Gateway
}

// NewWebhookHandler 创建平台回调处理器
func NewWebhookHandler(gw *gateway.Gateway) *WebhookHandler {
	return &WebhookHandler{gateway: gw}
}

// Verify 处理 GET 挑战握手
// Meta 系平台使用 hub.* 前缀的参数名，同时兼容无前缀的写法
func (h *WebhookHandler) Verify(c *gin.Context) {
	providerName := c.Param("provider")
	workspaceID := c.Param("workspaceId")

	mode := firstQuery(c, "hub.mode", "mode")
	verifyToken := firstQuery(c, "hub.verify_token", "verify_token")
	challenge := firstQuery(c, "hub.challenge", "challenge")

	status, body := h.gateway.HandleVerify(providerName, workspaceID, mode, verifyToken, challenge)
	if status == http.StatusOK {
		c.String(http.StatusOK, body)
		return
	}
	c.Status(status)
}

// Inbound 处理 POST 消息投递
func (h *WebhookHandler) Inbound(c *gin.Context) {
	providerName := c.Param("provider")
	workspaceID := c.Param("workspaceId")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.Status(http.StatusForbidden)
		return
	}

	req := &provider.InboundRequest{
		URL:    requestURL(c.Request),
		Header: c.Request.Header,
		Body:   body,
	}

	// 表单型平台(如 twilio)的参数在请求体里
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			c.Status(http.StatusForbidden)
			return
		}
		req.Form = form
	}

	status := h.gateway.HandleInbound(providerName, workspaceID, req)
	c.Status(status)
}

// firstQuery 按顺序取第一个非空的查询参数
func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return v
		}
	}
	return ""
}

// requestURL 还原对外可见的完整请求地址，签名校验需要
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI)
}
