package reflection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

func testContext() service.ReflectionContext {
	return service.ReflectionContext{
		LocalTime:           time.Date(2026, 3, 14, 14, 0, 0, 0, time.Local),
		GoalName:            "Vacation",
		RecentPurchaseCount: 1,
		FrictionLevel:       3,
	}
}

func testProduct() model.ProductInfo {
	return model.ProductInfo{
		Name:     "Mechanical Keyboard",
		Price:    149.99,
		Category: "electronics",
		URL:      "https://shop.example.com/kb",
		ImageURL: "https://shop.example.com/kb.jpg",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, ClientID: "client-1"}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}

func TestGetReflectionSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "client-1", r.Header.Get("X-Client-ID"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Privacy boundary: only name, price, category, and coarse context
		// cross the wire. No URLs, no goal amounts.
		product, ok := req["product"].(map[string]any)
		require.True(t, ok)
		assert.NotContains(t, product, "url")
		assert.NotContains(t, product, "imageUrl")
		rc, ok := req["context"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Vacation", rc["goalName"])
		assert.NotContains(t, rc, "goalAmount")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"questions": []string{"Why now?", "Why this one?"},
			"riskLevel": "medium",
			"meta":      map[string]any{"source": "llm", "timestamp": 1},
		})
	})

	r := client.GetReflection(context.Background(), testProduct(), testContext())

	assert.Equal(t, []string{"Why now?", "Why this one?"}, r.Questions)
	assert.Equal(t, model.RiskMedium, r.RiskLevel)
	assert.Equal(t, model.SourceLLM, r.Source)
}

func TestGetReflectionFallsBackOnServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r := client.GetReflection(context.Background(), testProduct(), testContext())

	assert.Equal(t, model.SourceFallback, r.Source)
	assert.Len(t, r.Questions, 2)
	assert.NotEmpty(t, r.Reason)
}

func TestGetReflectionFallsBackOnRateLimit(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	r := client.GetReflection(context.Background(), testProduct(), testContext())

	assert.Equal(t, model.SourceFallback, r.Source)
	assert.Equal(t, 1, calls, "rate limiting fails fast, no retry")
}

func TestGetReflectionFallsBackOnGarbage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	})

	r := client.GetReflection(context.Background(), testProduct(), testContext())
	assert.Equal(t, model.SourceFallback, r.Source)
}

func TestGetReflectionFallsBackOnTooManyQuestions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"questions": []string{"a?", "b?", "c?", "d?", "e?"},
			"riskLevel": "low",
		})
	})

	r := client.GetReflection(context.Background(), testProduct(), testContext())
	assert.Equal(t, model.SourceFallback, r.Source)
}

func TestGetReflectionRepairsBadRiskLevel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"questions": []string{"Why now?"},
			"riskLevel": "extreme",
		})
	})

	r := client.GetReflection(context.Background(), testProduct(), testContext())

	assert.Equal(t, model.SourceLLM, r.Source, "usable questions are kept")
	assert.Equal(t, model.RiskLow, r.RiskLevel, "risk is reclassified locally")
}

func TestGetReflectionFallsBackOnSlowServer(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stall until the client gives up.
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, ClientID: "client-1", Timeout: MinTimeout}, nil)
	require.NoError(t, err)

	start := time.Now()
	r := client.GetReflection(context.Background(), testProduct(), testContext())
	elapsed := time.Since(start)

	assert.Equal(t, model.SourceFallback, r.Source)
	assert.Len(t, r.Questions, 2)
	assert.NotEmpty(t, r.Reason)
	assert.Less(t, elapsed, MinTimeout+time.Second,
		"fallback must arrive as soon as the deadline fires, not after a second full wait")
}

func TestGetReflectionNeverReturnsEmpty(t *testing.T) {
	// Unreachable server: connection refused immediately.
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", ClientID: "x"}, nil)
	require.NoError(t, err)

	r := client.GetReflection(context.Background(), testProduct(), testContext())
	assert.NotEmpty(t, r.Questions)
	assert.Equal(t, model.SourceFallback, r.Source)
}
