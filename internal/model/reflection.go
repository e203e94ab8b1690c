package model

// GoalImpact expresses what a purchase would do to the user's active goal.
// The math is deliberately simple: the price as a share of what is left to
// save, and the equivalent delay at the user's recent saving pace.
type GoalImpact struct {
	GoalName         string  `json:"goalName"`
	Amount           float64 `json:"amount"`
	PercentOfTarget  float64 `json:"percentOfTarget"`
	EquivalentDays   float64 `json:"equivalentDays,omitempty"`
}

// Reflection is the content shown to the user while a purchase is held.
type Reflection struct {
	GoalImpact *GoalImpact    `json:"goalImpact"`
	RiskLevel  RiskLevel      `json:"riskLevel"`
	Source     QuestionSource `json:"source"`
	Reason     string         `json:"reason,omitempty"`
	Questions  []string       `json:"questions"`
}

// Decision is the session coordinator's answer to a detection event.
type Decision struct {
	EventID    string         `json:"eventId,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	RiskLevel  RiskLevel      `json:"riskLevel,omitempty"`
	GoalImpact *GoalImpact    `json:"goalImpact,omitempty"`
	Questions  []string       `json:"questions,omitempty"`
	Blocked    bool           `json:"blocked"`
}

// Decision reason codes for non-blocked outcomes.
const (
	ReasonDisabled      = "disabled"
	ReasonQuietHours    = "quiet_hours"
	ReasonSiteDisabled  = "site_not_enabled"
	ReasonLowConfidence = "low_confidence"
)

// OutcomeResult is returned after an outcome resolution.
type OutcomeResult struct {
	SavedAmount float64 `json:"savedAmount"`
	Success     bool    `json:"success"`
}
