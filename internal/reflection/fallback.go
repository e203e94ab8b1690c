package reflection

import (
	"math/rand"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

// FallbackQuestions is the fixed pool used when the proxy is unreachable.
var FallbackQuestions = []string{
	"Will this still matter to you in a month?",
	"Is this solving a problem, or soothing a feeling?",
	"What were you planning to spend this money on instead?",
	"If it sold out right now, how long would the disappointment last?",
	"Would you buy this at full attention tomorrow morning?",
}

// FallbackCount returns how many questions to draw: 2 normally, 3 when the
// user asked for high friction.
func FallbackCount(frictionLevel int) int {
	if frictionLevel >= 4 {
		return 3
	}
	return 2
}

// Fallback builds a local reflection: random distinct questions from the
// pool, locally classified risk, no goal impact. Reason records why the
// remote path was skipped.
func Fallback(product model.ProductInfo, rc service.ReflectionContext, reason string) model.Reflection {
	n := FallbackCount(rc.FrictionLevel)
	picks := rand.Perm(len(FallbackQuestions))[:n]

	questions := make([]string, 0, n)
	for _, i := range picks {
		questions = append(questions, FallbackQuestions[i])
	}

	return model.Reflection{
		Questions: questions,
		RiskLevel: ClassifyRisk(product, rc),
		Source:    model.SourceFallback,
		Reason:    reason,
	}
}
