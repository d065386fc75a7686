package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/statline/statline-engine/internal/core/domain"
)

// InMemoryCategoryRepository backs tests and local runs. It honors the same
// version guard as the postgres repository so conflict handling can be
// exercised without a database.
type InMemoryCategoryRepository struct {
	store map[string]*domain.Category

	mu sync.RWMutex
}

func NewInMemoryCategoryRepository() *InMemoryCategoryRepository {
	return &InMemoryCategoryRepository{
		store: make(map[string]*domain.Category),
	}
}

func (r *InMemoryCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := category.Clone()
	clone.Version = 1
	r.store[category.ID] = clone
	category.Version = 1
	return nil
}

func (r *InMemoryCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.store[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return category.Clone(), nil
}

func (r *InMemoryCategoryRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var categories []*domain.Category
	for _, c := range r.store {
		if c.OwnerID == ownerID {
			categories = append(categories, c.Clone())
		}
	}

	sort.Slice(categories, func(i, j int) bool {
		if categories[i].CreatedAt.Equal(categories[j].CreatedAt) {
			return categories[i].Name < categories[j].Name
		}
		return categories[i].CreatedAt.Before(categories[j].CreatedAt)
	})

	return categories, nil
}

func (r *InMemoryCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[category.ID]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	if existing.Version != category.Version {
		return domain.ErrCategoryConflict
	}

	clone := category.Clone()
	clone.Version++
	clone.UpdatedAt = time.Now().UTC()
	r.store[category.ID] = clone

	category.Version = clone.Version
	category.UpdatedAt = clone.UpdatedAt
	return nil
}

func (r *InMemoryCategoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return domain.ErrCategoryNotFound
	}

	delete(r.store, id)
	return nil
}

func (r *InMemoryCategoryRepository) GetChanges(ctx context.Context, ownerID string, since time.Time) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var changed []*domain.Category
	for _, c := range r.store {
		if c.OwnerID == ownerID && c.UpdatedAt.After(since) {
			changed = append(changed, c.Clone())
		}
	}

	sort.Slice(changed, func(i, j int) bool {
		return changed[i].UpdatedAt.Before(changed[j].UpdatedAt)
	})

	return changed, nil
}
