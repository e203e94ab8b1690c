package model

import "time"

// Outcome indicates how the user resolved a reflection prompt.
type Outcome string

// Outcome constants.
const (
	OutcomePending   Outcome = "pending"
	OutcomeBought    Outcome = "bought"
	OutcomeSaved     Outcome = "saved"
	OutcomeCooledOff Outcome = "cooled_off"
)

// Valid reports whether the outcome is one of the known values.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeBought, OutcomeSaved, OutcomeCooledOff:
		return true
	}
	return false
}

// RiskLevel is the locally classified purchase risk.
type RiskLevel string

// Risk level constants.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// QuestionSource records where reflection questions came from.
type QuestionSource string

// Question source constants.
const (
	SourceLLM      QuestionSource = "llm"
	SourceFallback QuestionSource = "fallback"
)

// DetectionEvent is created by the detection controller for a qualifying
// interaction and consumed exactly once by the session coordinator.
type DetectionEvent struct {
	Timestamp       time.Time   `json:"timestamp"`
	Product         ProductInfo `json:"product"`
	Site            string      `json:"site"`
	ConfidenceScore int         `json:"confidenceScore"`
}

// PendingPurchaseEvent is the persisted record of a blocked purchase. It is
// created when the coordinator decides to block and mutated exactly once when
// the user resolves the prompt.
type PendingPurchaseEvent struct {
	Timestamp             time.Time      `json:"timestamp"`
	ResolvedAt            *time.Time     `json:"resolvedAt,omitempty"`
	ID                    string         `json:"id"`
	Site                  string         `json:"site"`
	Outcome               Outcome        `json:"outcome"`
	RiskLevel             RiskLevel      `json:"riskLevel"`
	Source                QuestionSource `json:"source"`
	QuestionsAsked        []string       `json:"questionsAsked"`
	Product               ProductInfo    `json:"product"`
	ConfidenceScore       int            `json:"confidenceScore"`
	ReflectionTimeSeconds int            `json:"reflectionTimeSeconds"`
}

// Resolved reports whether the event has left the pending state.
func (e *PendingPurchaseEvent) Resolved() bool {
	return e.Outcome != OutcomePending
}
