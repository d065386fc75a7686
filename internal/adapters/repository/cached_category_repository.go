package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/statline/statline-engine/internal/core/domain"
)

var _ domain.CategoryRepository = (*CachedCategoryRepository)(nil)

// CachedCategoryRepository caches the owner's full category list in redis.
// Single reads and sync deltas pass through; any write invalidates the
// owner's list so the next read repopulates it.
type CachedCategoryRepository struct {
	next  domain.CategoryRepository
	cache *redis.Client
}

func NewCachedCategoryRepository(next domain.CategoryRepository, cache *redis.Client) *CachedCategoryRepository {
	return &CachedCategoryRepository{
		next:  next,
		cache: cache,
	}
}

func (r *CachedCategoryRepository) cacheKey(ownerID string) string {
	return fmt.Sprintf("categories:%s", ownerID)
}

func (r *CachedCategoryRepository) invalidate(ctx context.Context, ownerID string) {
	if err := r.cache.Del(ctx, r.cacheKey(ownerID)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate for owner %s: %v", ownerID, err)
	}
}

func (r *CachedCategoryRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	key := r.cacheKey(ownerID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var categories []*domain.Category
		if err := json.Unmarshal([]byte(val), &categories); err == nil {
			return categories, nil
		}

		log.Printf("[CACHE] Corrupted data for owner %s, cleaning up key", ownerID)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	categories, err := r.next.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(categories); err == nil {
		if setErr := r.cache.Set(ctx, key, data, 30*time.Minute).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return categories, nil
}

func (r *CachedCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedCategoryRepository) GetChanges(ctx context.Context, ownerID string, since time.Time) ([]*domain.Category, error) {
	return r.next.GetChanges(ctx, ownerID, since)
}

func (r *CachedCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if err := r.next.Create(ctx, category); err != nil {
		return err
	}
	r.invalidate(ctx, category.OwnerID)
	return nil
}

func (r *CachedCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if err := r.next.Update(ctx, category); err != nil {
		return err
	}
	r.invalidate(ctx, category.OwnerID)
	return nil
}

func (r *CachedCategoryRepository) Delete(ctx context.Context, id string) error {
	category, err := r.next.GetByID(ctx, id)
	if err == nil && category != nil {
		defer r.invalidate(ctx, category.OwnerID)
	}

	return r.next.Delete(ctx, id)
}
