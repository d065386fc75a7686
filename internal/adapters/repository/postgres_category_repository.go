package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/statline/statline-engine/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresCategoryRepository persists the category aggregate as a single row:
// the stats and goals maps and their order lists live in JSONB columns, so a
// category is always read and written atomically.
type PostgresCategoryRepository struct {
	db *sqlx.DB
}

func NewPostgresCategoryRepository(db *sqlx.DB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresCategoryRepository) scanRow(row scannable) (*domain.Category, error) {
	var c domain.Category
	var statsJSON, statsOrderJSON, goalsJSON, goalsOrderJSON []byte

	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name,
		&statsJSON, &statsOrderJSON, &goalsJSON, &goalsOrderJSON,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &c.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
		}
	}
	if len(statsOrderJSON) > 0 {
		if err := json.Unmarshal(statsOrderJSON, &c.StatsOrder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats order: %w", err)
		}
	}
	if len(goalsJSON) > 0 {
		if err := json.Unmarshal(goalsJSON, &c.Goals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goals: %w", err)
		}
	}
	if len(goalsOrderJSON) > 0 {
		if err := json.Unmarshal(goalsOrderJSON, &c.GoalsOrder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goals order: %w", err)
		}
	}

	// Stored order lists may predate the newest map entries.
	c.Reconcile()

	return &c, nil
}

func marshalAggregate(c *domain.Category) (stats, statsOrder, goals, goalsOrder []byte, err error) {
	if stats, err = json.Marshal(c.Stats); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal stats: %w", err)
	}
	if statsOrder, err = json.Marshal(c.StatsOrder); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal stats order: %w", err)
	}
	if goals, err = json.Marshal(c.Goals); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal goals: %w", err)
	}
	if goalsOrder, err = json.Marshal(c.GoalsOrder); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal goals order: %w", err)
	}
	return stats, statsOrder, goals, goalsOrder, nil
}

func (r *PostgresCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	statsJSON, statsOrderJSON, goalsJSON, goalsOrderJSON, err := marshalAggregate(c)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO categories (
            id, owner_id, name,
            stats, stats_order, goals, goals_order,
            version, created_at, updated_at
        ) VALUES (
            $1, $2, $3,
            $4, $5, $6, $7,
            1, $8, $9
        )`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name,
		statsJSON, statsOrderJSON, goalsJSON, goalsOrderJSON,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	c.Version = 1
	return nil
}

func (r *PostgresCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT id, owner_id, name, stats, stats_order, goals, goals_order, version, created_at, updated_at
        FROM categories WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	c, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return c, nil
}

func (r *PostgresCategoryRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	query := `
        SELECT id, owner_id, name, stats, stats_order, goals, goals_order, version, created_at, updated_at
        FROM categories
        WHERE owner_id = $1
        ORDER BY created_at ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category

	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, nil
}

// Update writes the whole aggregate guarded by the version the caller read.
// A missed guard distinguishes a vanished row from a concurrent writer.
func (r *PostgresCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	statsJSON, statsOrderJSON, goalsJSON, goalsOrderJSON, err := marshalAggregate(c)
	if err != nil {
		return err
	}

	query := `
        UPDATE categories SET
            name=$1, stats=$2, stats_order=$3, goals=$4, goals_order=$5,
            updated_at=NOW(), version = version + 1
        WHERE id=$6 AND version=$7
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		c.Name, statsJSON, statsOrderJSON, goalsJSON, goalsOrderJSON,
		c.ID, c.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	err = row.Scan(&newVersion, &newUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			existsQuery := `SELECT count(*) FROM categories WHERE id = $1`
			var count int
			if checkErr := r.db.QueryRowContext(ctx, existsQuery, c.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}

			if count == 0 {
				return domain.ErrCategoryNotFound
			}
			return domain.ErrCategoryConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	c.Version = newVersion
	c.UpdatedAt = newUpdatedAt

	return nil
}

// Delete removes the row outright. Stats, goals and order lists go with it
// since the aggregate is one row.
func (r *PostgresCategoryRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM categories WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

func (r *PostgresCategoryRepository) GetChanges(ctx context.Context, ownerID string, since time.Time) ([]*domain.Category, error) {
	query := `
        SELECT id, owner_id, name, stats, stats_order, goals, goals_order, version, created_at, updated_at
        FROM categories
        WHERE owner_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category

	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sync row scan error: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, nil
}
