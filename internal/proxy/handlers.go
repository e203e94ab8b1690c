package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/reflection"
	"github.com/pausewise/pausewise/internal/service"
)

// GenerateRequest is the anonymized payload from an extension. Anything
// identifying (page URLs, image URLs, goal amounts) is rejected by shape:
// there is simply nowhere to put it.
type GenerateRequest struct {
	Product struct {
		Name     string  `json:"name" binding:"required,max=200"`
		Price    float64 `json:"price" binding:"gte=0"`
		Category string  `json:"category" binding:"required,max=64"`
	} `json:"product" binding:"required"`
	Context struct {
		LocalDateTime       string  `json:"localDateTime" binding:"required,rfc3339"`
		GoalName            *string `json:"goalName" binding:"omitempty,max=100"`
		RecentPurchaseCount int     `json:"recentPurchaseCount" binding:"gte=0"`
		FrictionLevel       int     `json:"frictionLevel" binding:"gte=1,lte=5"`
	} `json:"context" binding:"required"`
}

// GenerateResponse is the uniform envelope. The shape is identical whether
// the questions came from the model or the static pool, so clients never
// branch on failure.
type GenerateResponse struct {
	GoalImpact *model.GoalImpact `json:"goalImpact"`
	RiskLevel  string            `json:"riskLevel"`
	Meta       ResponseMeta      `json:"meta"`
	Questions  []string          `json:"questions"`
}

// ResponseMeta describes where the questions came from.
type ResponseMeta struct {
	Source    string `json:"source"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	clientID := c.GetHeader("X-Client-ID")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Client-ID header is required"})
		return
	}

	if allowed, resetAt := s.limiter.Allow(clientID); !allowed {
		s.metrics.RateLimited.Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate limit exceeded",
			"resetAt": resetAt.UnixMilli(),
		})
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	localTime, err := time.Parse(time.RFC3339, req.Context.LocalDateTime)
	if err != nil {
		// The rfc3339 binding already vetted the format; this only fires on
		// out-of-range components.
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid localDateTime: " + err.Error()})
		return
	}

	product := model.ProductInfo{
		Name:     req.Product.Name,
		Price:    req.Product.Price,
		Category: req.Product.Category,
	}
	rc := service.ReflectionContext{
		LocalTime:           localTime,
		RecentPurchaseCount: req.Context.RecentPurchaseCount,
		FrictionLevel:       req.Context.FrictionLevel,
	}
	if req.Context.GoalName != nil {
		rc.GoalName = *req.Context.GoalName
	}

	// The proxy and the extension run the same deterministic classifier, so
	// a fallback on either side yields the same risk level.
	risk := reflection.ClassifyRisk(product, rc)

	questions, source, genErr := s.generateQuestions(c.Request.Context(), product, rc, risk)
	s.metrics.Requests.WithLabelValues(source).Inc()

	resp := GenerateResponse{
		Questions: questions,
		RiskLevel: string(risk),
		Meta: ResponseMeta{
			Source:    source,
			Timestamp: time.Now().UnixMilli(),
		},
	}
	if genErr != nil {
		resp.Meta.Error = genErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// generateQuestions asks the model and degrades to the static pool on any
// failure. The returned error is informational; the question list is always
// usable.
func (s *Server) generateQuestions(ctx context.Context, product model.ProductInfo, rc service.ReflectionContext, risk model.RiskLevel) ([]string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.provider.Generate(ctx, buildPrompt(product, rc, risk))
	s.metrics.LLMLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.LLMFailures.Inc()
		s.logger.Warn("llm generation failed, serving fallback", "error", err)
		return reflection.Fallback(product, rc, err.Error()).Questions, "fallback", err
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		s.metrics.LLMFailures.Inc()
		s.logger.Warn("unusable llm output, serving fallback", "error", err)
		return reflection.Fallback(product, rc, err.Error()).Questions, "fallback", err
	}
	return questions, "llm", nil
}

func buildPrompt(product model.ProductInfo, rc service.ReflectionContext, risk model.RiskLevel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", product.Name)
	if product.Price > 0 {
		fmt.Fprintf(&b, "Price: $%.2f\n", product.Price)
	}
	fmt.Fprintf(&b, "Category: %s\n", product.Category)
	fmt.Fprintf(&b, "Local time: %s (%s)\n", rc.LocalTime.Format("Mon 15:04"), reflection.PartOfDay(rc.LocalTime))
	if rc.GoalName != "" {
		fmt.Fprintf(&b, "Active savings goal: %s\n", rc.GoalName)
	}
	fmt.Fprintf(&b, "Similar purchases in the last week: %d\n", rc.RecentPurchaseCount)
	fmt.Fprintf(&b, "Impulse risk: %s\n", risk)
	return b.String()
}
