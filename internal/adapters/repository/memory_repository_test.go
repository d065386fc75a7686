package repository

import (
	"context"
	"testing"
	"time"

	"github.com/statline/statline-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCategoryRepository_CRUD(t *testing.T) {
	repo := NewInMemoryCategoryRepository()
	ctx := context.Background()

	cat, err := domain.NewCategory("u1", "Fitness")
	require.NoError(t, err)
	require.NoError(t, cat.SetStat("Weight", "70"))

	require.NoError(t, repo.Create(ctx, cat))
	assert.Equal(t, 1, cat.Version)

	t.Run("GetByID returns an independent copy", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, cat.ID)
		require.NoError(t, err)

		fetched.Stats["Weight"] = "999"

		again, err := repo.GetByID(ctx, cat.ID)
		require.NoError(t, err)
		assert.Equal(t, "70", again.Stats["Weight"])
	})

	t.Run("Update bumps the version", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, cat.ID)
		require.NoError(t, err)

		require.NoError(t, fetched.SetStat("Weight", "76"))
		require.NoError(t, repo.Update(ctx, fetched))
		assert.Equal(t, 2, fetched.Version)
	})

	t.Run("Update with a stale version conflicts", func(t *testing.T) {
		stale, err := repo.GetByID(ctx, cat.ID)
		require.NoError(t, err)
		stale.Version = 1

		err = repo.Update(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrCategoryConflict)
	})

	t.Run("Delete removes the category", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, cat.ID))

		_, err := repo.GetByID(ctx, cat.ID)
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

		err = repo.Delete(ctx, cat.ID)
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	})
}

func TestInMemoryCategoryRepository_ListAndChanges(t *testing.T) {
	repo := NewInMemoryCategoryRepository()
	ctx := context.Background()

	mkCategory := func(name string) *domain.Category {
		cat, err := domain.NewCategory("u1", name)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, cat))
		return cat
	}

	a := mkCategory("Alpha")
	b := mkCategory("Beta")

	other, err := domain.NewCategory("u2", "Theirs")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, other))

	t.Run("List is scoped to the owner", func(t *testing.T) {
		list, err := repo.ListByOwnerID(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
	})

	t.Run("GetChanges returns only categories updated after the cursor", func(t *testing.T) {
		cursor := time.Now().UTC()

		fetched, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, fetched.SetStat("Score", "1"))
		require.NoError(t, repo.Update(ctx, fetched))

		changes, err := repo.GetChanges(ctx, "u1", cursor)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, b.ID, changes[0].ID)
		assert.NotEqual(t, a.ID, changes[0].ID)
	})
}
