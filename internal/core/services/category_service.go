package services

import (
	"context"
	"strings"
	"time"

	"github.com/statline/statline-engine/internal/core/domain"
)

// ReconcileQueue hands a category off to the background reconciler after a
// write that may leave derived state stale.
type ReconcileQueue interface {
	Enqueue(categoryID string)
}

type CategoryService struct {
	repo  domain.CategoryRepository
	queue ReconcileQueue
}

func NewCategoryService(repo domain.CategoryRepository, queue ReconcileQueue) *CategoryService {
	return &CategoryService{
		repo:  repo,
		queue: queue,
	}
}

func (s *CategoryService) enqueue(categoryID string) {
	if s.queue != nil {
		s.queue.Enqueue(categoryID)
	}
}

// getOwned loads a category, enforces the ownership boundary and repairs the
// order lists before any caller sees the aggregate. A category owned by
// someone else is indistinguishable from a missing one.
func (s *CategoryService) getOwned(ctx context.Context, id, ownerID string) (*domain.Category, error) {
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cat.OwnerID != ownerID {
		return nil, domain.ErrCategoryNotFound
	}

	cat.Reconcile()
	return cat, nil
}

func (s *CategoryService) Create(ctx context.Context, ownerID, name string) (*domain.Category, error) {
	cat, err := domain.NewCategory(ownerID, name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, err
	}

	return cat, nil
}

func (s *CategoryService) Get(ctx context.Context, id, ownerID string) (*domain.Category, error) {
	return s.getOwned(ctx, id, ownerID)
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	cats, err := s.repo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, cat := range cats {
		cat.Reconcile()
	}
	return cats, nil
}

// Search filters the owner's categories by case-insensitive substring match
// on the name. An empty term returns everything; stored order is preserved.
func (s *CategoryService) Search(ctx context.Context, ownerID, term string) ([]*domain.Category, error) {
	cats, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if term == "" {
		return cats, nil
	}

	needle := strings.ToLower(term)
	filtered := make([]*domain.Category, 0, len(cats))
	for _, cat := range cats {
		if strings.Contains(strings.ToLower(cat.Name), needle) {
			filtered = append(filtered, cat)
		}
	}
	return filtered, nil
}

// GetDelta returns the owner's categories modified after since. Backs the
// snapshot sync endpoint that keeps clients converging on canonical state.
func (s *CategoryService) GetDelta(ctx context.Context, ownerID string, since time.Time) ([]*domain.Category, error) {
	cats, err := s.repo.GetChanges(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	for _, cat := range cats {
		cat.Reconcile()
	}
	return cats, nil
}

func (s *CategoryService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.getOwned(ctx, id, ownerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SetStat is the value-update commit path: it writes the stat's value and
// cascades it into every goal that references the stat.
func (s *CategoryService) SetStat(ctx context.Context, id, ownerID, name, value string) (*domain.Category, error) {
	cat, err := s.getOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := cat.SetStat(name, value); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	s.enqueue(cat.ID)
	return cat, nil
}

// RenameStat is the structural-rename commit path: the key moves in place,
// every referencing goal is re-pointed, and an optional staged value is
// applied afterwards so its cascade runs against the new name. A nil value
// means no value was staged; a pointer to the empty string clears the stat.
func (s *CategoryService) RenameStat(ctx context.Context, id, ownerID, oldName, newName string, value *string) (*domain.Category, error) {
	cat, err := s.getOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := cat.RenameStat(oldName, newName); err != nil {
		return nil, err
	}

	if value != nil && cat.Stats[strings.TrimSpace(newName)] != *value {
		if err := cat.SetStat(newName, *value); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	s.enqueue(cat.ID)
	return cat, nil
}

func (s *CategoryService) RemoveStat(ctx context.Context, id, ownerID, name string) (*domain.Category, error) {
	cat, err := s.getOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := cat.RemoveStat(name); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	s.enqueue(cat.ID)
	return cat, nil
}

type AddGoalInput struct {
	CategoryID  string
	OwnerID     string
	Name        string
	Qualitative bool
	Stat        string
	Target      string
}

func (s *CategoryService) AddGoal(ctx context.Context, input AddGoalInput) (*domain.Goal, error) {
	cat, err := s.getOwned(ctx, input.CategoryID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	var goal *domain.Goal
	if input.Qualitative {
		goal, err = cat.AddQualitativeGoal(input.Name)
	} else {
		goal, err = cat.AddQuantitativeGoal(input.Name, input.Stat, input.Target)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	return goal, nil
}

// UpdateGoalInput carries one goal commit. Nil fields are left as they
// are; a non-nil empty Target or Stat is an explicit clear and is rejected
// by validation rather than dropped. A NewName differing from Name makes
// the commit a rename as well.
type UpdateGoalInput struct {
	CategoryID string
	OwnerID    string
	Name       string
	NewName    string
	Target     *string
	Stat       *string
}

func (s *CategoryService) UpdateGoal(ctx context.Context, input UpdateGoalInput) (*domain.Goal, error) {
	cat, err := s.getOwned(ctx, input.CategoryID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	name := input.Name

	if input.Target != nil {
		if err := cat.RetargetGoal(name, *input.Target); err != nil {
			return nil, err
		}
	}

	if input.Stat != nil {
		if err := cat.RepointGoal(name, *input.Stat); err != nil {
			return nil, err
		}
	}

	if input.NewName != "" && input.NewName != name {
		if err := cat.RenameGoal(name, input.NewName); err != nil {
			return nil, err
		}
		name = strings.TrimSpace(input.NewName)
	}

	goal, ok := cat.Goals[name]
	if !ok {
		return nil, domain.ErrGoalNotFound
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	return goal, nil
}

func (s *CategoryService) ToggleGoal(ctx context.Context, id, ownerID, name string) (*domain.Goal, error) {
	cat, err := s.getOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	goal, err := cat.ToggleGoal(name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	return goal, nil
}

func (s *CategoryService) RemoveGoal(ctx context.Context, id, ownerID, name string) (*domain.Category, error) {
	cat, err := s.getOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := cat.RemoveGoal(name); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	return cat, nil
}
