package services

import (
	"context"
	"math"

	"github.com/statline/statline-engine/internal/core/domain"
)

// OverviewService rolls the owner's categories up into the dashboard
// summary: goal counts, achievement counts and average progress.
type OverviewService struct {
	repo domain.CategoryRepository
}

func NewOverviewService(repo domain.CategoryRepository) *OverviewService {
	return &OverviewService{
		repo: repo,
	}
}

func (s *OverviewService) GetOverview(ctx context.Context, ownerID string) (*domain.Overview, error) {
	cats, err := s.repo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	overview := &domain.Overview{
		TotalCategories: len(cats),
		Categories:      make([]domain.CategorySummary, 0, len(cats)),
	}

	for _, cat := range cats {
		cat.Reconcile()

		summary := domain.CategorySummary{
			CategoryID: cat.ID,
			Name:       cat.Name,
			StatCount:  len(cat.Stats),
			GoalCount:  len(cat.Goals),
		}

		progressSum := 0
		for _, name := range cat.OrderedGoals() {
			g := cat.Goals[name]
			if g.Achieved {
				summary.GoalsAchieved++
			}

			if g.IsQualitative {
				if g.Achieved {
					progressSum += 100
				}
				continue
			}

			p, err := cat.GoalProgress(name)
			if err == nil {
				progressSum += p
			}
		}

		if summary.GoalCount > 0 {
			summary.AvgProgress = progressSum / summary.GoalCount
		}

		overview.TotalGoals += summary.GoalCount
		overview.GoalsAchieved += summary.GoalsAchieved
		overview.Categories = append(overview.Categories, summary)
	}

	if overview.TotalGoals > 0 {
		rate := float64(overview.GoalsAchieved) / float64(overview.TotalGoals) * 100
		overview.OverallRate = math.Round(rate*100) / 100
	}

	return overview, nil
}
