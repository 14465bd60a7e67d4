package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(domain.ModerationConfig{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

// fakeGateway serves a chat-completions endpoint returning fixed content.
func fakeGateway(t *testing.T, content string, status int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}

		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
					"finish_reason": "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(domain.ModerationConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL + "/v1",
		Model:       "google/gemini-2.5-flash",
		TimeoutSecs: 5,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestModerate(t *testing.T) {
	reply := `{"hasInappropriateContent": false, "hasSpam": true, "contentQuality": "low", "concerns": ["repetitive text"]}`
	srv := fakeGateway(t, reply, http.StatusOK, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	verdict, err := client.Moderate(context.Background(), "Title: x\nDescription: y")
	if err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}

	if verdict.HasInappropriateContent {
		t.Error("expected hasInappropriateContent false")
	}
	if !verdict.HasSpam {
		t.Error("expected hasSpam true")
	}
	if verdict.ContentQuality != domain.QualityLow {
		t.Errorf("expected quality low, got %s", verdict.ContentQuality)
	}
	if len(verdict.Concerns) != 1 {
		t.Errorf("expected 1 concern, got %v", verdict.Concerns)
	}
}

func TestModerateWrappedJSON(t *testing.T) {
	// Models often wrap the JSON in prose or code fences.
	reply := "Here is my analysis:\n```json\n{\"hasInappropriateContent\": true, \"hasSpam\": false, \"contentQuality\": \"medium\", \"concerns\": []}\n```\nLet me know if you need more."
	srv := fakeGateway(t, reply, http.StatusOK, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	verdict, err := client.Moderate(context.Background(), "text")
	if err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}
	if !verdict.HasInappropriateContent {
		t.Error("expected hasInappropriateContent true")
	}
}

func TestModerateGatewayError(t *testing.T) {
	srv := fakeGateway(t, "", http.StatusTooManyRequests, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Moderate(context.Background(), "text")
	if !errors.Is(err, domain.ErrModerationUnavailable) {
		t.Errorf("expected ErrModerationUnavailable, got %v", err)
	}
}

func TestModerateUnparseableReply(t *testing.T) {
	srv := fakeGateway(t, "I cannot analyze this content.", http.StatusOK, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Moderate(context.Background(), "text")
	if !errors.Is(err, domain.ErrModerationUnavailable) {
		t.Errorf("expected ErrModerationUnavailable for non-JSON reply, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a": 1}`, `{"a": 1}`, true},
		{`prefix {"a": 1} suffix`, `{"a": 1}`, true},
		{`{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{`{"a": "brace } in string"}`, `{"a": "brace } in string"}`, true},
		{`{"a": "escaped \" quote }"}`, `{"a": "escaped \" quote }"}`, true},
		{`no json here`, ``, false},
		{`{"unterminated": 1`, ``, false},
	}

	for _, c := range cases {
		got, ok := extractJSON(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("extractJSON(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	verdict, err := parseVerdict(`The submission looks fine. {"hasInappropriateContent": false, "hasSpam": false, "contentQuality": "high", "concerns": []}`)
	if err != nil {
		t.Fatalf("parseVerdict failed: %v", err)
	}
	if verdict.ContentQuality != domain.QualityHigh {
		t.Errorf("expected high, got %s", verdict.ContentQuality)
	}

	if _, err := parseVerdict("nothing useful"); err == nil {
		t.Error("expected error for reply without JSON")
	}
}
