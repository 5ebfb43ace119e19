package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/provider"
)

func TestExtractMessage(t *testing.T) {
	wa := New()

	tests := []struct {
		name       string
		body       string
		wantSender string
		wantText   string
		wantOK     bool
	}{
		{
			name:       "text message",
			body:       `{"entry":[{"changes":[{"value":{"messages":[{"from":"15551234567","text":{"body":"hola"}}]}}]}]}`,
			wantSender: "15551234567",
			wantText:   "hola",
			wantOK:     true,
		},
		{
			name:   "status update without messages",
			body:   `{"entry":[{"changes":[{"value":{"statuses":[{"status":"delivered"}]}}]}]}`,
			wantOK: false,
		},
		{
			name:   "non-text message",
			body:   `{"entry":[{"changes":[{"value":{"messages":[{"from":"15551234567","image":{"id":"1"}}]}}]}]}`,
			wantOK: false,
		},
		{
			name:   "empty entry",
			body:   `{"entry":[]}`,
			wantOK: false,
		},
		{
			name:   "invalid json",
			body:   `not json`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := wa.ExtractMessage(&provider.InboundRequest{Body: []byte(tt.body)})
			if ok != tt.wantOK {
				t.Fatalf("ExtractMessage() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if msg.SenderID != tt.wantSender || msg.Text != tt.wantText {
				t.Errorf("ExtractMessage() = (%q, %q), want (%q, %q)",
					msg.SenderID, msg.Text, tt.wantSender, tt.wantText)
			}
		})
	}
}

func TestSend(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	wa := New()
	wa.apiBase = srv.URL

	creds := model.JSONMap{"phone_number_id": "12345", "access_token": "EAAG..."}

	err := wa.Send(context.Background(), creds, "15551234567", `Received via whatsapp: "hola"`)
	if err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}

	if gotPath != "/12345/messages" {
		t.Errorf("Send() path = %q, want /12345/messages", gotPath)
	}
	if gotAuth != "Bearer EAAG..." {
		t.Errorf("Send() Authorization = %q", gotAuth)
	}
	if gotPayload["messaging_product"] != "whatsapp" || gotPayload["to"] != "15551234567" {
		t.Errorf("Send() payload = %v", gotPayload)
	}
	text, _ := gotPayload["text"].(map[string]any)
	if text["body"] != `Received via whatsapp: "hola"` {
		t.Errorf("Send() text body = %v", text["body"])
	}
}

func TestSendGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	wa := New()
	wa.apiBase = srv.URL

	creds := model.JSONMap{"phone_number_id": "12345", "access_token": "bad"}

	err := wa.Send(context.Background(), creds, "15551234567", "hi")
	pe, ok := err.(*provider.ProviderError)
	if !ok {
		t.Fatalf("Send() error = %v, want *ProviderError", err)
	}
	if pe.Message != "Invalid OAuth access token" {
		t.Errorf("ProviderError.Message = %q", pe.Message)
	}
}

func TestTestLiveness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/12345" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"12345","display_phone_number":"+1 555-123-4567"}`))
	}))
	defer srv.Close()

	wa := New()
	wa.apiBase = srv.URL

	creds := model.JSONMap{"phone_number_id": "12345", "access_token": "EAAG..."}

	result, err := wa.TestLiveness(context.Background(), creds, nil)
	if err != nil {
		t.Fatalf("TestLiveness() returned error: %v", err)
	}
	if !result.OK || result.Detail["phone_number_id"] != "12345" {
		t.Errorf("TestLiveness() = %+v", result)
	}
}

func TestProviderMetadata(t *testing.T) {
	wa := New()
	if wa.Name() != "whatsapp" {
		t.Errorf("Name() = %q", wa.Name())
	}
	if !wa.NeedsHandshake() {
		t.Errorf("NeedsHandshake() = false, want true")
	}
}
