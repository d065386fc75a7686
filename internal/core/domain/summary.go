package domain

// Overview is the dashboard roll-up across all of a user's categories.
type Overview struct {
	TotalCategories int               `json:"total_categories"`
	TotalGoals      int               `json:"total_goals"`
	GoalsAchieved   int               `json:"goals_achieved"`
	OverallRate     float64           `json:"overall_completion_rate"`
	Categories      []CategorySummary `json:"categories"`
}

type CategorySummary struct {
	CategoryID    string `json:"category_id"`
	Name          string `json:"name"`
	StatCount     int    `json:"stat_count"`
	GoalCount     int    `json:"goal_count"`
	GoalsAchieved int    `json:"goals_achieved"`
	// AvgProgress averages quantitative goal progress, 0-100. Qualitative
	// goals count 100 when done, 0 otherwise.
	AvgProgress int `json:"avg_progress"`
}
