package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingLimiterPerClient(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := NewSlidingLimiter(3, time.Hour, 1000)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("client-a")
		assert.True(t, allowed, "request %d inside budget", i)
	}

	allowed, resetAt := l.Allow("client-a")
	assert.False(t, allowed)
	assert.Equal(t, now.Add(time.Hour), resetAt, "reset when the oldest request expires")

	// Other clients are unaffected.
	allowed, _ = l.Allow("client-b")
	assert.True(t, allowed)

	// The window slides: once the oldest request ages out, capacity returns.
	now = now.Add(time.Hour + time.Second)
	allowed, _ = l.Allow("client-a")
	assert.True(t, allowed)
}

func TestSlidingLimiterGlobalCap(t *testing.T) {
	l := NewSlidingLimiter(1000, time.Hour, 2)

	allowed := 0
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow(fmt.Sprintf("client-%d", i)); ok {
			allowed++
		}
	}
	assert.LessOrEqual(t, allowed, 3, "global QPS guard caps distinct clients too")
	assert.Positive(t, allowed)
}

func TestSlidingLimiterEviction(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := NewSlidingLimiter(5, time.Hour, 1000)
	l.now = func() time.Time { return now }

	l.Allow("client-a")
	l.Allow("client-b")

	now = now.Add(3 * time.Hour)
	l.Allow("client-c")

	removed := l.evictIdle()
	assert.Equal(t, 2, removed, "idle clients evicted, active one kept")
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "clean json",
			content: `{"questions": ["Why now?", "Why this one?"]}`,
			want:    []string{"Why now?", "Why this one?"},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"questions\": [\"Why now?\"]}\n```",
			want:    []string{"Why now?"},
		},
		{
			name:    "numbered lines",
			content: "Here are some questions:\n1. Why now?\n2. Will it matter next month?\n",
			want:    []string{"Why now?", "Will it matter next month?"},
		},
		{
			name:    "bulleted lines",
			content: "- Why now?\n- Why this one?",
			want:    []string{"Why now?", "Why this one?"},
		},
		{
			name:    "caps at three",
			content: `{"questions": ["a?", "b?", "c?", "d?"]}`,
			want:    []string{"a?", "b?", "c?"},
		},
		{
			name:    "prose without questions",
			content: "This purchase seems fine to me.",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuestions(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// fakeProvider returns a canned response or error.
type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestServer(t *testing.T, provider Provider) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		Addr:            ":0",
		LLM:             ProviderConfig{Provider: "openai", APIKey: "test-key"},
		RequestsPerHour: 5,
		GlobalQPS:       1000,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv.provider = provider
	return srv
}

func validBody() map[string]any {
	return map[string]any{
		"product": map[string]any{
			"name":     "Widget",
			"price":    120.0,
			"category": "general",
		},
		"context": map[string]any{
			"localDateTime":       "2026-03-14T02:30:00-05:00",
			"recentPurchaseCount": 4,
			"frictionLevel":       3,
		},
	}
}

func postGenerate(t *testing.T, srv *Server, clientID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func TestGenerateSuccess(t *testing.T) {
	provider := &fakeProvider{response: `{"questions": ["Why now?", "Why at 2am?"]}`}
	srv := newTestServer(t, provider)

	w := postGenerate(t, srv, "client-1", validBody())

	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Why now?", "Why at 2am?"}, resp.Questions)
	assert.Equal(t, "llm", resp.Meta.Source)
	assert.Empty(t, resp.Meta.Error)
	// 02:30 local (+2), 4 recent (+2), price 120 (+1): high.
	assert.Equal(t, "high", resp.RiskLevel)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Widget")
	assert.NotContains(t, provider.prompts[0], "client-1", "client id never reaches the model")
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{err: errors.New("upstream exploded")})

	w := postGenerate(t, srv, "client-1", validBody())

	require.Equal(t, http.StatusOK, w.Code, "fallback is a success, not an error")
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Meta.Source)
	assert.NotEmpty(t, resp.Meta.Error)
	assert.NotEmpty(t, resp.Questions)
	assert.Equal(t, "high", resp.RiskLevel, "risk is computed locally either way")
}

func TestGenerateFallsBackOnUnusableOutput(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{response: "I cannot help with that."})

	w := postGenerate(t, srv, "client-1", validBody())

	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Meta.Source)
}

func TestGenerateRequiresClientID(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{response: `{"questions": ["x?"]}`})

	w := postGenerate(t, srv, "", validBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateValidation(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{response: `{"questions": ["x?"]}`})

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "missing product name", mutate: func(b map[string]any) {
			b["product"].(map[string]any)["name"] = ""
		}},
		{name: "negative price", mutate: func(b map[string]any) {
			b["product"].(map[string]any)["price"] = -1
		}},
		{name: "friction out of range", mutate: func(b map[string]any) {
			b["context"].(map[string]any)["frictionLevel"] = 9
		}},
		{name: "bad datetime", mutate: func(b map[string]any) {
			b["context"].(map[string]any)["localDateTime"] = "yesterday"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validBody()
			tt.mutate(body)
			w := postGenerate(t, srv, "client-1", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGenerateRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{response: `{"questions": ["x?"]}`})

	for i := 0; i < 5; i++ {
		w := postGenerate(t, srv, "heavy-client", validBody())
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := postGenerate(t, srv, "heavy-client", validBody())
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp struct {
		Error   string `json:"error"`
		ResetAt int64  `json:"resetAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Positive(t, resp.ResetAt, "429 carries the window reset time")

	// A different client still gets through.
	w = postGenerate(t, srv, "light-client", validBody())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Client-ID")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
