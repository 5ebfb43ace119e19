package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProvider 平台不在注册表中
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrNotConnected 工作区尚未连接该平台
	ErrNotConnected = errors.New("not connected")

	// ErrMalformedCredentials 凭证不是合法的JSON对象
	ErrMalformedCredentials = errors.New("malformed credentials")

	// ErrSignatureMismatch 入站请求签名或校验令牌不匹配
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// MissingFieldError 缺少必须的凭证字段
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing credential field: %s", e.Field)
}

// ProviderError 平台 API 调用失败
type ProviderError struct {
	Provider string
	Message  string // 平台返回的错误信息
	Err      error  // 底层错误(网络/超时等)
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ValidateCredentials 校验凭证是否包含平台要求的全部字段
func ValidateCredentials(p Provider, creds map[string]interface{}) error {
	for _, field := range p.RequiredFields() {
		v, ok := creds[field]
		if !ok {
			return &MissingFieldError{Field: field}
		}
		if s, isStr := v.(string); isStr && s == "" {
			return &MissingFieldError{Field: field}
		}
	}
	return nil
}
