package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/opsre/chatgate/internal/model"
)

// DefaultTimeout 调用平台 API 的默认超时时间
const DefaultTimeout = 10 * time.Second

// Provider 定义了消息平台的统一接口
type Provider interface {
	// Name 返回平台名称 (如: telegram, whatsapp)
	Name() string

	// RequiredFields 返回连接该平台必须提供的凭证字段
	RequiredFields() []string

	// NeedsHandshake 返回该平台是否需要 GET 挑战握手来注册回调地址
	NeedsHandshake() bool

	// VerifyInbound 校验入站回调请求的真实性
	// 校验不通过或校验过程出错时返回非空错误
	VerifyInbound(creds model.JSONMap, req *InboundRequest) error

	// ExtractMessage 从入站回调中提取归一化消息
	// 消息不含发送者或文本时返回 false
	ExtractMessage(req *InboundRequest) (*InboundMessage, bool)

	// Send 通过平台 API 发送文本消息
	Send(ctx context.Context, creds model.JSONMap, recipientID, text string) error

	// TestLiveness 校验凭证有效性
	TestLiveness(ctx context.Context, creds model.JSONMap, opts *TestOptions) (*TestResult, error)
}

// InboundRequest 入站回调请求的原始内容
type InboundRequest struct {
	URL    string      // 完整请求地址，部分平台的签名计算需要
	Header http.Header // 请求头
	Body   []byte      // 原始请求体
	Form   url.Values  // 表单型平台的请求参数
}

// InboundMessage 归一化后的入站消息
type InboundMessage struct {
	SenderID string // 平台侧的发送者标识
	Text     string // 消息文本
}

// TestOptions 凭证测试选项
type TestOptions struct {
	// Action 管理动作，如 telegram 的 setWebhook；空值表示只读校验
	Action string
	// WebhookURL setWebhook 动作的目标地址
	WebhookURL string
}

// ActionSetWebhook 注册回调地址的管理动作
const ActionSetWebhook = "setWebhook"

// TestResult 凭证测试结果
type TestResult struct {
	OK     bool           `json:"ok"`
	Detail map[string]any `json:"detail,omitempty"`
}

// NewHTTPClient 创建带超时的 HTTP 客户端
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}
