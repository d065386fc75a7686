package services_test

import (
	"context"
	"testing"

	"github.com/statline/statline-engine/internal/core/domain"
	"github.com/statline/statline-engine/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverviewService_GetOverview(t *testing.T) {
	repo := NewMockCategoryRepo()
	catSvc := services.NewCategoryService(repo, nil)
	svc := services.NewOverviewService(repo)
	ctx := context.Background()

	fitness, err := catSvc.Create(ctx, "u1", "Fitness")
	require.NoError(t, err)
	_, err = catSvc.SetStat(ctx, fitness.ID, "u1", "Weight", "70")
	require.NoError(t, err)
	_, err = catSvc.SetStat(ctx, fitness.ID, "u1", "Steps", "10000")
	require.NoError(t, err)
	_, err = catSvc.AddGoal(ctx, services.AddGoalInput{
		CategoryID: fitness.ID, OwnerID: "u1", Name: "Gain Weight", Stat: "Weight", Target: "75",
	})
	require.NoError(t, err)
	_, err = catSvc.AddGoal(ctx, services.AddGoalInput{
		CategoryID: fitness.ID, OwnerID: "u1", Name: "Walk", Stat: "Steps", Target: "10000",
	})
	require.NoError(t, err)

	admin, err := catSvc.Create(ctx, "u1", "Life Admin")
	require.NoError(t, err)
	_, err = catSvc.AddGoal(ctx, services.AddGoalInput{
		CategoryID: admin.ID, OwnerID: "u1", Name: "File Taxes", Qualitative: true,
	})
	require.NoError(t, err)
	_, err = catSvc.ToggleGoal(ctx, admin.ID, "u1", "File Taxes")
	require.NoError(t, err)

	overview, err := svc.GetOverview(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, overview.TotalCategories)
	assert.Equal(t, 3, overview.TotalGoals)
	assert.Equal(t, 2, overview.GoalsAchieved)
	assert.InDelta(t, 66.67, overview.OverallRate, 0.001)

	require.Len(t, overview.Categories, 2)

	byName := make(map[string]domain.CategorySummary)
	for _, s := range overview.Categories {
		byName[s.Name] = s
	}

	fit := byName["Fitness"]
	assert.Equal(t, 2, fit.StatCount)
	assert.Equal(t, 2, fit.GoalCount)
	assert.Equal(t, 1, fit.GoalsAchieved)
	// (93 + 100) / 2
	assert.Equal(t, 96, fit.AvgProgress)

	adm := byName["Life Admin"]
	assert.Equal(t, 0, adm.StatCount)
	assert.Equal(t, 1, adm.GoalsAchieved)
	assert.Equal(t, 100, adm.AvgProgress)
}

func TestOverviewService_Empty(t *testing.T) {
	repo := NewMockCategoryRepo()
	svc := services.NewOverviewService(repo)

	overview, err := svc.GetOverview(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Zero(t, overview.TotalCategories)
	assert.Zero(t, overview.TotalGoals)
	assert.Zero(t, overview.OverallRate)
	assert.Empty(t, overview.Categories)
}
