package coordinator

import "github.com/pausewise/pausewise/internal/model"

// GoalImpact computes the local goal-impact figure for a price against the
// user's first goal. The math is plain proportions; nil when there is no
// goal or no usable price.
func GoalImpact(goals []model.FinancialGoal, price float64) *model.GoalImpact {
	if len(goals) == 0 || price <= 0 {
		return nil
	}
	goal := goals[0]
	if goal.TargetAmount <= 0 {
		return nil
	}

	impact := &model.GoalImpact{
		GoalName:        goal.Name,
		Amount:          price,
		PercentOfTarget: price / goal.TargetAmount * 100,
	}

	// Equivalent delay at the pace implied by what has been saved so far,
	// assuming a 30-day accumulation. Rough on purpose.
	if goal.SavedAmount > 0 {
		dailyPace := goal.SavedAmount / 30
		impact.EquivalentDays = price / dailyPace
	}
	return impact
}
