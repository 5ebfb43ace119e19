// Package twilio 实现 Twilio Programmable Messaging 的消息平台适配
package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
)

const defaultAPIBase = "https://api.twilio.com"

// Twilio Twilio 平台适配器
type Twilio struct {
	apiBase    string
	httpClient *http.Client
}

// New 创建 Twilio 适配器
func New() *Twilio {
	return &Twilio{
		apiBase:    defaultAPIBase,
		httpClient: provider.NewHTTPClient(),
	}
}

func init() {
	provider.Register("twilio", New())
}

// Name 返回平台名称
func (t *Twilio) Name() string {
	return "twilio"
}

// RequiredFields 返回必须的凭证字段
func (t *Twilio) RequiredFields() []string {
	return []string{"account_sid", "auth_token", "phone_number"}
}

// NeedsHandshake Twilio 回调在控制台配置，无 GET 握手
func (t *Twilio) NeedsHandshake() bool {
	return false
}

// VerifyInbound 校验 X-Twilio-Signature 请求签名
// 签名算法: Base64(HMAC-SHA1(url + 按键名排序拼接的表单参数, auth_token))
func (t *Twilio) VerifyInbound(creds model.JSONMap, req *provider.InboundRequest) error {
	authToken := creds.GetString("auth_token")
	if authToken == "" {
		// 凭证缺失属于配置错误，与伪造请求区分开
		return fmt.Errorf("twilio signature verification misconfigured: %w", provider.ErrSignatureMismatch)
	}

	signature := req.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return provider.ErrSignatureMismatch
	}

	expected := ComputeSignature(authToken, req.URL, req.Form)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return provider.ErrSignatureMismatch
	}

	return nil
}

// ComputeSignature 计算 Twilio 请求签名
func ComputeSignature(authToken, reqURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(reqURL)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(sb.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ExtractMessage Twilio 回调为表单编码，取 From 和 Body 字段
func (t *Twilio) ExtractMessage(req *provider.InboundRequest) (*provider.InboundMessage, bool) {
	from := req.Form.Get("From")
	body := req.Form.Get("Body")
	if from == "" || body == "" {
		return nil, false
	}

	return &provider.InboundMessage{
		SenderID: from,
		Text:     body,
	}, true
}

// apiError Twilio API 错误响应结构
type apiError struct {
	Message string `json:"message"`
}

// Send 通过 Messages 接口发送短信
func (t *Twilio) Send(ctx context.Context, creds model.JSONMap, recipientID, text string) error {
	accountSID := creds.GetString("account_sid")
	authToken := creds.GetString("auth_token")
	fromNumber := creds.GetString("phone_number")

	form := url.Values{}
	form.Set("To", recipientID)
	form.Set("From", fromNumber)
	form.Set("Body", text)

	sendURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.apiBase, accountSID)

	req, err := http.NewRequestWithContext(ctx, "POST", sendURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &provider.ProviderError{Provider: "twilio", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(accountSID, authToken)

	_, err = t.doRequest(req)
	return err
}

// TestLiveness 拉取账号信息校验凭证有效性
func (t *Twilio) TestLiveness(ctx context.Context, creds model.JSONMap, opts *provider.TestOptions) (*provider.TestResult, error) {
	accountSID := creds.GetString("account_sid")
	authToken := creds.GetString("auth_token")

	testURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", t.apiBase, accountSID)

	req, err := http.NewRequestWithContext(ctx, "GET", testURL, nil)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "twilio", Err: err}
	}
	req.SetBasicAuth(accountSID, authToken)

	body, err := t.doRequest(req)
	if err != nil {
		return nil, err
	}

	var account struct {
		FriendlyName string `json:"friendly_name"`
		Status       string `json:"status"`
	}
	_ = json.Unmarshal(body, &account)

	return &provider.TestResult{OK: true, Detail: map[string]any{
		"account": account.FriendlyName,
		"status":  account.Status,
	}}, nil
}

// doRequest 发送请求并处理 Twilio API 错误
func (t *Twilio) doRequest(req *http.Request) ([]byte, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "twilio", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "twilio", Err: err}
	}

	if resp.StatusCode >= 400 {
		var ae apiError
		_ = json.Unmarshal(body, &ae)
		msg := ae.Message
		if msg == "" {
			msg = fmt.Sprintf("http status %d", resp.StatusCode)
		}
		return nil, &provider.ProviderError{Provider: "twilio", Message: msg}
	}

	return body, nil
}
