// Package telegram 实现 Telegram Bot API 的消息平台适配
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram Telegram 平台适配器
type Telegram struct {
	apiBase    string
	httpClient *http.Client
}

// New 创建 Telegram 适配器
func New() *Telegram {
	return &Telegram{
		apiBase:    defaultAPIBase,
		httpClient: provider.NewHTTPClient(),
	}
}

func init() {
	provider.Register("telegram", New())
}

// Name 返回平台名称
func (t *Telegram) Name() string {
	return "telegram"
}

// RequiredFields 返回必须的凭证字段
func (t *Telegram) RequiredFields() []string {
	return []string{"bot_token"}
}

// NeedsHandshake Telegram 通过 setWebhook 注册回调，无 GET 握手
func (t *Telegram) NeedsHandshake() bool {
	return false
}

// VerifyInbound Telegram 回调无签名机制，凭 URL 中的 workspace 定位集成
func (t *Telegram) VerifyInbound(creds model.JSONMap, req *provider.InboundRequest) error {
	return nil
}

// update Telegram Update 消息结构
type update struct {
	Message       *message `json:"message"`
	EditedMessage *message `json:"edited_message"`
}

type message struct {
	Chat chat   `json:"chat"`
	Text string `json:"text"`
}

type chat struct {
	ID int64 `json:"id"`
}

// ExtractMessage 从 Update 中提取消息，message 和 edited_message 均可触发
func (t *Telegram) ExtractMessage(req *provider.InboundRequest) (*provider.InboundMessage, bool) {
	var u update
	if err := json.Unmarshal(req.Body, &u); err != nil {
		return nil, false
	}

	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil || msg.Chat.ID == 0 || msg.Text == "" {
		return nil, false
	}

	return &provider.InboundMessage{
		SenderID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:     msg.Text,
	}, true
}

// apiResponse Telegram API 统一响应结构
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Send 通过 sendMessage 接口发送文本消息
func (t *Telegram) Send(ctx context.Context, creds model.JSONMap, recipientID, text string) error {
	token := creds.GetString("bot_token")

	payload := map[string]any{
		"chat_id": recipientID,
		"text":    text,
	}

	_, err := t.callAPI(ctx, token, "sendMessage", payload)
	return err
}

// TestLiveness 校验 bot_token 有效性，或执行 setWebhook 管理动作
func (t *Telegram) TestLiveness(ctx context.Context, creds model.JSONMap, opts *provider.TestOptions) (*provider.TestResult, error) {
	token := creds.GetString("bot_token")

	// setWebhook 管理动作，必须显式指定
	if opts != nil && opts.Action == provider.ActionSetWebhook {
		if opts.WebhookURL == "" {
			return nil, &provider.ProviderError{Provider: "telegram", Message: "missing webhookUrl"}
		}
		payload := map[string]any{"url": opts.WebhookURL}
		if _, err := t.callAPI(ctx, token, "setWebhook", payload); err != nil {
			return nil, err
		}
		return &provider.TestResult{OK: true, Detail: map[string]any{"result": "webhook set"}}, nil
	}

	// 只读校验: getMe 返回 bot 身份
	resp, err := t.getMe(ctx, token)
	if err != nil {
		return nil, err
	}

	var bot struct {
		Username string `json:"username"`
	}
	_ = json.Unmarshal(resp.Result, &bot)

	return &provider.TestResult{OK: true, Detail: map[string]any{"bot": bot.Username}}, nil
}

// getMe 获取 bot 身份
func (t *Telegram) getMe(ctx context.Context, token string) (*apiResponse, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", t.apiBase, token)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "telegram", Err: err}
	}

	return t.doRequest(req)
}

// callAPI 调用 Telegram Bot API 的 POST 接口
func (t *Telegram) callAPI(ctx context.Context, token, method string, payload any) (*apiResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "telegram", Err: err}
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.apiBase, token, method)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, &provider.ProviderError{Provider: "telegram", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return t.doRequest(req)
}

// doRequest 发送请求并解析统一响应
func (t *Telegram) doRequest(req *http.Request) (*apiResponse, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "telegram", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &provider.ProviderError{Provider: "telegram", Err: err}
	}

	if !result.OK {
		msg := result.Description
		if msg == "" {
			msg = "request failed"
		}
		return nil, &provider.ProviderError{Provider: "telegram", Message: msg}
	}

	return &result, nil
}
