// Package messenger 实现 Facebook Messenger Platform 的消息平台适配
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
)

const defaultAPIBase = "https://graph.facebook.com/v17.0"

// Messenger Messenger 平台适配器
type Messenger struct {
	apiBase    string
	httpClient *http.Client
}

// New 创建 Messenger 适配器
func New() *Messenger {
	return &Messenger{
		apiBase:    defaultAPIBase,
		httpClient: provider.NewHTTPClient(),
	}
}

func init() {
	provider.Register("messenger", New())
}

// Name 返回平台名称
func (m *Messenger) Name() string {
	return "messenger"
}

// RequiredFields 返回必须的凭证字段
// verify_token 可选，仅用于 GET 挑战握手
func (m *Messenger) RequiredFields() []string {
	return []string{"page_id", "page_token"}
}

// NeedsHandshake Messenger 回调注册需要 GET 挑战握手
func (m *Messenger) NeedsHandshake() bool {
	return true
}

// VerifyInbound POST 投递无额外校验，握手阶段已确认回调归属
func (m *Messenger) VerifyInbound(creds model.JSONMap, req *provider.InboundRequest) error {
	return nil
}

// envelope Messenger 回调消息结构: entry/messaging
type envelope struct {
	Entry []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ExtractMessage 从回调中提取第一条文本消息
func (m *Messenger) ExtractMessage(req *provider.InboundRequest) (*provider.InboundMessage, bool) {
	var env envelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return nil, false
	}

	if len(env.Entry) == 0 || len(env.Entry[0].Messaging) == 0 {
		return nil, false
	}

	msg := env.Entry[0].Messaging[0]
	if msg.Sender.ID == "" || msg.Message.Text == "" {
		return nil, false
	}

	return &provider.InboundMessage{
		SenderID: msg.Sender.ID,
		Text:     msg.Message.Text,
	}, true
}

// graphError Graph API 错误响应结构
type graphError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send 通过 Send API 发送文本消息
func (m *Messenger) Send(ctx context.Context, creds model.JSONMap, recipientID, text string) error {
	pageToken := creds.GetString("page_token")

	payload := map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return &provider.ProviderError{Provider: "messenger", Err: err}
	}

	// Messenger Send API 使用查询参数传递页面令牌
	sendURL := fmt.Sprintf("%s/me/messages?access_token=%s", m.apiBase, url.QueryEscape(pageToken))

	req, err := http.NewRequestWithContext(ctx, "POST", sendURL, bytes.NewReader(data))
	if err != nil {
		return &provider.ProviderError{Provider: "messenger", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = m.doRequest(req)
	return err
}

// TestLiveness 校验页面令牌有效性
func (m *Messenger) TestLiveness(ctx context.Context, creds model.JSONMap, opts *provider.TestOptions) (*provider.TestResult, error) {
	pageToken := creds.GetString("page_token")

	testURL := fmt.Sprintf("%s/me?access_token=%s", m.apiBase, url.QueryEscape(pageToken))

	req, err := http.NewRequestWithContext(ctx, "GET", testURL, nil)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "messenger", Err: err}
	}

	body, err := m.doRequest(req)
	if err != nil {
		return nil, err
	}

	var page struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	_ = json.Unmarshal(body, &page)

	return &provider.TestResult{OK: true, Detail: map[string]any{
		"page_id": page.ID,
		"page":    page.Name,
	}}, nil
}

// doRequest 发送请求并处理 Graph API 错误
func (m *Messenger) doRequest(req *http.Request) ([]byte, error) {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "messenger", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "messenger", Err: err}
	}

	if resp.StatusCode >= 400 {
		var ge graphError
		_ = json.Unmarshal(body, &ge)
		msg := ge.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("http status %d", resp.StatusCode)
		}
		return nil, &provider.ProviderError{Provider: "messenger", Message: msg}
	}

	return body, nil
}
