// Package whatsapp 实现 WhatsApp Business Cloud API 的消息平台适配
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
)

const defaultAPIBase = "https://graph.facebook.com/v17.0"

// WhatsApp WhatsApp 平台适配器
type WhatsApp struct {
	apiBase    string
	httpClient *http.Client
}

// New 创建 WhatsApp 适配器
func New() *WhatsApp {
	return &WhatsApp{
		apiBase:    defaultAPIBase,
		httpClient: provider.NewHTTPClient(),
	}
}

func init() {
	provider.Register("whatsapp", New())
}

// Name 返回平台名称
func (w *WhatsApp) Name() string {
	return "whatsapp"
}

// RequiredFields 返回必须的凭证字段
// verify_token 可选，仅用于 GET 挑战握手
func (w *WhatsApp) RequiredFields() []string {
	return []string{"phone_number_id", "access_token"}
}

// NeedsHandshake WhatsApp 回调注册需要 GET 挑战握手
func (w *WhatsApp) NeedsHandshake() bool {
	return true
}

// VerifyInbound POST 投递无额外校验，握手阶段已确认回调归属
func (w *WhatsApp) VerifyInbound(creds model.JSONMap, req *provider.InboundRequest) error {
	return nil
}

// envelope WhatsApp 回调消息结构: entry/changes/value/messages
type envelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ExtractMessage 从回调中提取第一条文本消息
func (w *WhatsApp) ExtractMessage(req *provider.InboundRequest) (*provider.InboundMessage, bool) {
	var env envelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return nil, false
	}

	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		return nil, false
	}

	messages := env.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return nil, false
	}

	msg := messages[0]
	if msg.From == "" || msg.Text.Body == "" {
		return nil, false
	}

	return &provider.InboundMessage{
		SenderID: msg.From,
		Text:     msg.Text.Body,
	}, true
}

// graphError Graph API 错误响应结构
type graphError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send 通过 Cloud API 发送文本消息
func (w *WhatsApp) Send(ctx context.Context, creds model.JSONMap, recipientID, text string) error {
	phoneNumberID := creds.GetString("phone_number_id")
	accessToken := creds.GetString("access_token")

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipientID,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return &provider.ProviderError{Provider: "whatsapp", Err: err}
	}

	url := fmt.Sprintf("%s/%s/messages", w.apiBase, phoneNumberID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return &provider.ProviderError{Provider: "whatsapp", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	_, err = w.doRequest(req)
	return err
}

// TestLiveness 校验电话号码注册信息
func (w *WhatsApp) TestLiveness(ctx context.Context, creds model.JSONMap, opts *provider.TestOptions) (*provider.TestResult, error) {
	phoneNumberID := creds.GetString("phone_number_id")
	accessToken := creds.GetString("access_token")

	url := fmt.Sprintf("%s/%s", w.apiBase, phoneNumberID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "whatsapp", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := w.doRequest(req)
	if err != nil {
		return nil, err
	}

	var info struct {
		ID                 string `json:"id"`
		DisplayPhoneNumber string `json:"display_phone_number"`
	}
	_ = json.Unmarshal(body, &info)

	return &provider.TestResult{OK: true, Detail: map[string]any{
		"phone_number_id": info.ID,
		"phone_number":    info.DisplayPhoneNumber,
	}}, nil
}

// doRequest 发送请求并处理 Graph API 错误
func (w *WhatsApp) doRequest(req *http.Request) ([]byte, error) {
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "whatsapp", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "whatsapp", Err: err}
	}

	if resp.StatusCode >= 400 {
		var ge graphError
		_ = json.Unmarshal(body, &ge)
		msg := ge.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("http status %d", resp.StatusCode)
		}
		return nil, &provider.ProviderError{Provider: "whatsapp", Message: msg}
	}

	return body, nil
}
