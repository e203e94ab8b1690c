package reflection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

// Timeout bounds for the remote call. Deployments pick a value inside this
// range; anything outside is clamped.
const (
	MinTimeout     = 2 * time.Second
	MaxTimeout     = 30 * time.Second
	DefaultTimeout = 8 * time.Second
)

// Config holds configuration for the reflection client.
type Config struct {
	// BaseURL of the proxy, e.g. "https://proxy.example.com".
	BaseURL string
	// ClientID is the anonymous, stable identifier sent with every request.
	// Never PII, never a full page URL, never a goal amount.
	ClientID string
	Timeout  time.Duration
}

// Client talks to the reflection proxy and implements service.Reflector.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	clientID   string
	timeout    time.Duration
	retryOpts  service.RetryOptions
}

// NewClient creates a reflection client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: reflection proxy base URL is required", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < MinTimeout {
		timeout = MinTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		timeout:  timeout,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// One retry on transient failure; auth and rate-limit errors fail
		// fast inside WithRetry.
		retryOpts: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: 250 * time.Millisecond,
		},
	}, nil
}

// generateRequest is the anonymized wire payload. The product URL and image
// never leave the machine.
type generateRequest struct {
	Product struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Category string  `json:"category"`
	} `json:"product"`
	Context struct {
		LocalDateTime       string  `json:"localDateTime"`
		GoalName            *string `json:"goalName"`
		RecentPurchaseCount int     `json:"recentPurchaseCount"`
		FrictionLevel       int     `json:"frictionLevel"`
	} `json:"context"`
}

type generateResponse struct {
	GoalImpact *model.GoalImpact `json:"goalImpact"`
	RiskLevel  string            `json:"riskLevel"`
	Meta       struct {
		Source    string `json:"source"`
		Timestamp int64  `json:"timestamp"`
		Error     string `json:"error,omitempty"`
	} `json:"meta"`
	Questions []string `json:"questions"`
}

// GetReflection returns reflection content for a product. Any failure
// (timeout, network error, non-2xx, unparseable body, rate limiting)
// degrades to the local fallback pool; the caller never sees an error.
func (c *Client) GetReflection(ctx context.Context, product model.ProductInfo, rc service.ReflectionContext) model.Reflection {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp generateResponse
	err := common.WithRetry(ctx, func() error {
		var opErr error
		resp, opErr = c.generate(ctx, product, rc)
		return opErr
	}, c.retryOpts)

	if err != nil {
		c.logger.Warn("reflection proxy unavailable, using fallback",
			"error", err, "risk_inputs_price", product.Price)
		return Fallback(product, rc, err.Error())
	}

	if len(resp.Questions) == 0 || len(resp.Questions) > 3 {
		c.logger.Warn("reflection proxy returned unusable question list",
			"count", len(resp.Questions))
		return Fallback(product, rc, common.ErrMalformedResponse.Error())
	}

	risk := model.RiskLevel(resp.RiskLevel)
	switch risk {
	case model.RiskLow, model.RiskMedium, model.RiskHigh:
	default:
		// Trust the local classifier over a garbled remote level.
		risk = ClassifyRisk(product, rc)
	}

	return model.Reflection{
		Questions:  resp.Questions,
		GoalImpact: resp.GoalImpact,
		RiskLevel:  risk,
		Source:     model.SourceLLM,
	}
}

func (c *Client) generate(ctx context.Context, product model.ProductInfo, rc service.ReflectionContext) (generateResponse, error) {
	var req generateRequest
	req.Product.Name = product.Name
	req.Product.Price = product.Price
	req.Product.Category = product.Category
	req.Context.LocalDateTime = rc.LocalTime.Format(time.RFC3339)
	if rc.GoalName != "" {
		name := rc.GoalName
		req.Context.GoalName = &name
	}
	req.Context.RecentPurchaseCount = rc.RecentPurchaseCount
	req.Context.FrictionLevel = rc.FrictionLevel

	body, err := json.Marshal(req)
	if err != nil {
		return generateResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return generateResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-ID", c.clientID)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return generateResponse{}, fmt.Errorf("%w: %v", common.ErrRemoteTimeout, err)
		}
		return generateResponse{}, fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateResponse{}, fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return generateResponse{}, common.ErrRateLimit
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return generateResponse{}, common.ErrUnauthorized
	case httpResp.StatusCode != http.StatusOK:
		return generateResponse{}, fmt.Errorf("%w: proxy status %d", common.ErrRemoteUnavailable, httpResp.StatusCode)
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return generateResponse{}, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	return resp, nil
}
