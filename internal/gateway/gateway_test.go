package gateway

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
	"github.com/opsre/chatgate/internal/service"
)

// fakeProvider 可配置的 Provider 测试替身
type fakeProvider struct {
	name      string
	handshake bool
	verifyErr error
	extracted *provider.InboundMessage

	mu        sync.Mutex
	sendCalls int
	sentTo    string
	sentText  string
	sendErr   error
}

func (f *fakeProvider) Name() string             { return f.name }
func (f *fakeProvider) RequiredFields() []string { return []string{"api_key"} }
func (f *fakeProvider) NeedsHandshake() bool     { return f.handshake }
func (f *fakeProvider) VerifyInbound(creds model.JSONMap, req *provider.InboundRequest) error {
	return f.verifyErr
}
func (f *fakeProvider) ExtractMessage(req *provider.InboundRequest) (*provider.InboundMessage, bool) {
	if f.extracted == nil {
		return nil, false
	}
	return f.extracted, true
}
func (f *fakeProvider) Send(ctx context.Context, creds model.JSONMap, recipientID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.sentTo = recipientID
	f.sentText = text
	return f.sendErr
}
func (f *fakeProvider) TestLiveness(ctx context.Context, creds model.JSONMap, opts *provider.TestOptions) (*provider.TestResult, error) {
	return &provider.TestResult{OK: true}, nil
}

func (f *fakeProvider) snapshot() (int, string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls, f.sentTo, f.sentText
}

func newTestGateway(t *testing.T, fake *fakeProvider) (*Gateway, *service.IntegrationService) {
	t.Helper()

	provider.UnregisterAll()
	t.Cleanup(provider.UnregisterAll)
	provider.Register(fake.name, fake)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database object: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Integration{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store := service.NewIntegrationService(db)
	gw := New(store)
	gw.sendDone = make(chan struct{}, 1)
	return gw, store
}

// waitSend 等待异步回执发送完成
func waitSend(t *testing.T, gw *Gateway) {
	t.Helper()
	select {
	case <-gw.sendDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply dispatch")
	}
}

func TestHandleVerify(t *testing.T) {
	fake := &fakeProvider{name: "fakechat", handshake: true}
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k", "verify_token": "abc"}, "u1")

	tests := []struct {
		name       string
		mode       string
		token      string
		challenge  string
		wantStatus int
		wantBody   string
	}{
		{"valid handshake", "subscribe", "abc", "xyz", http.StatusOK, "xyz"},
		{"wrong token", "subscribe", "wrong", "xyz", http.StatusForbidden, ""},
		{"missing mode", "", "abc", "xyz", http.StatusForbidden, ""},
		{"wrong mode", "unsubscribe", "abc", "xyz", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := gw.HandleVerify("fakechat", "w1", tt.mode, tt.token, tt.challenge)
			if status != tt.wantStatus || body != tt.wantBody {
				t.Errorf("HandleVerify() = (%d, %q), want (%d, %q)",
					status, body, tt.wantStatus, tt.wantBody)
			}
		})
	}
}

func TestHandleVerifyUnknownIntegration(t *testing.T) {
	fake := &fakeProvider{name: "fakechat", handshake: true}
	gw, _ := newTestGateway(t, fake)

	status, _ := gw.HandleVerify("fakechat", "w1", "subscribe", "abc", "xyz")
	if status != http.StatusForbidden {
		t.Errorf("HandleVerify() without integration = %d, want 403", status)
	}
}

func TestHandleVerifyProviderWithoutHandshake(t *testing.T) {
	fake := &fakeProvider{name: "fakechat", handshake: false}
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k", "verify_token": "abc"}, "u1")

	status, _ := gw.HandleVerify("fakechat", "w1", "subscribe", "abc", "xyz")
	if status != http.StatusForbidden {
		t.Errorf("HandleVerify() for no-handshake provider = %d, want 403", status)
	}
}

func TestHandleVerifyWithoutStoredToken(t *testing.T) {
	fake := &fakeProvider{name: "fakechat", handshake: true}
	gw, store := newTestGateway(t, fake)

	// 凭证里没有 verify_token，空串不能与空串匹配通过
	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k"}, "u1")

	status, _ := gw.HandleVerify("fakechat", "w1", "subscribe", "", "xyz")
	if status != http.StatusForbidden {
		t.Errorf("HandleVerify() with no stored token = %d, want 403", status)
	}
}

func TestHandleInboundRepliesOnce(t *testing.T) {
	fake := &fakeProvider{
		name:      "fakechat",
		extracted: &provider.InboundMessage{SenderID: "42", Text: "hi"},
	}
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k"}, "u1")

	status := gw.HandleInbound("fakechat", "w1", &provider.InboundRequest{Body: []byte(`{}`)})
	if status != http.StatusOK {
		t.Fatalf("HandleInbound() = %d, want 200", status)
	}

	waitSend(t, gw)

	calls, to, text := fake.snapshot()
	if calls != 1 {
		t.Errorf("Send called %d times, want 1", calls)
	}
	if to != "42" {
		t.Errorf("Send recipient = %q, want 42", to)
	}
	if text != `Received via fakechat: "hi"` {
		t.Errorf("Send text = %q, want canned reply", text)
	}
}

func TestHandleInboundReplyKeepsTextVerbatim(t *testing.T) {
	fake := &fakeProvider{
		name:      "fakechat",
		extracted: &provider.InboundMessage{SenderID: "42", Text: "say \"hi\"\nplease"},
	}
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k"}, "u1")

	status := gw.HandleInbound("fakechat", "w1", &provider.InboundRequest{Body: []byte(`{}`)})
	if status != http.StatusOK {
		t.Fatalf("HandleInbound() = %d, want 200", status)
	}

	waitSend(t, gw)

	// 引号、换行等都不能被转义
	_, _, text := fake.snapshot()
	want := "Received via fakechat: \"say \"hi\"\nplease\""
	if text != want {
		t.Errorf("Send text = %q, want %q", text, want)
	}
}

func TestHandleInboundUnknownProvider(t *testing.T) {
	fake := &fakeProvider{name: "fakechat"}
	gw, _ := newTestGateway(t, fake)

	status := gw.HandleInbound("nope", "w1", &provider.InboundRequest{})
	if status != http.StatusForbidden {
		t.Errorf("HandleInbound(nope) = %d, want 403", status)
	}
}

func TestHandleInboundUnknownIntegration(t *testing.T) {
	fake := &fakeProvider{
		name:      "fakechat",
		extracted: &provider.InboundMessage{SenderID: "42", Text: "hi"},
	}
	gw, _ := newTestGateway(t, fake)

	status := gw.HandleInbound("fakechat", "w1", &provider.InboundRequest{})
	if status != http.StatusForbidden {
		t.Fatalf("HandleInbound() without integration = %d, want 403", status)
	}

	calls, _, _ := fake.snapshot()
	if calls != 0 {
		t.Errorf("Send called %d times, want 0", calls)
	}
}

func TestHandleInboundVerificationFailure(t *testing.T) {
	fake := &fakeProvider{
		name:      "fakechat",
		verifyErr: provider.ErrSignatureMismatch,
		extracted: &provider.InboundMessage{SenderID: "42", Text: "hi"},
	}
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k"}, "u1")

	status := gw.HandleInbound("fakechat", "w1", &provider.InboundRequest{})
	if status != http.StatusForbidden {
		t.Fatalf("HandleInbound() with bad signature = %d, want 403", status)
	}

	calls, _, _ := fake.snapshot()
	if calls != 0 {
		t.Errorf("Send called %d times, want 0", calls)
	}
}

func TestHandleInboundNoExtractableMessage(t *testing.T) {
	fake := &fakeProvider{name: "fakechat"} // extracted 为 nil
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k"}, "u1")

	status := gw.HandleInbound("fakechat", "w1", &provider.InboundRequest{Body: []byte(`{}`)})
	if status != http.StatusOK {
		t.Fatalf("HandleInbound() with no message = %d, want 200", status)
	}

	calls, _, _ := fake.snapshot()
	if calls != 0 {
		t.Errorf("Send called %d times, want 0", calls)
	}
}

func TestHandleInboundSendFailureStillAcks(t *testing.T) {
	fake := &fakeProvider{
		name:      "fakechat",
		extracted: &provider.InboundMessage{SenderID: "42", Text: "hi"},
		sendErr:   &provider.ProviderError{Provider: "fakechat", Message: "rate limited"},
	}
	gw, store := newTestGateway(t, fake)

	_ = store.Upsert("w1", "fakechat", model.JSONMap{"api_key": "k"}, "u1")

	// 回执发送失败不影响入站确认
	status := gw.HandleInbound("fakechat", "w1", &provider.InboundRequest{Body: []byte(`{}`)})
	if status != http.StatusOK {
		t.Errorf("HandleInbound() = %d, want 200 even when reply fails", status)
	}

	waitSend(t, gw)
}
