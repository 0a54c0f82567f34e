package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gunaso/grievance-service/internal/domain"
)

// MinistryRepository manages ministry persistence.
type MinistryRepository interface {
	Create(ctx context.Context, ministry *domain.Ministry) error
	GetByID(ctx context.Context, id string) (*domain.Ministry, error)
	List(ctx context.Context) ([]domain.Ministry, error)
}

type ministryRepository struct {
	pool *pgxpool.Pool
}

// NewMinistryRepository builds the repository.
func NewMinistryRepository(pool *pgxpool.Pool) MinistryRepository {
	return &ministryRepository{pool: pool}
}

func (r *ministryRepository) Create(ctx context.Context, ministry *domain.Ministry) error {
	const query = `
        INSERT INTO ministries (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, ministry.Name, ministry.Description).
		Scan(&ministry.ID, &ministry.CreatedAt)
}

func (r *ministryRepository) GetByID(ctx context.Context, id string) (*domain.Ministry, error) {
	const query = `SELECT id, name, description, created_at FROM ministries WHERE id=$1`
	var m domain.Ministry
	if err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ministryRepository) List(ctx context.Context) ([]domain.Ministry, error) {
	const query = `SELECT id, name, description, created_at FROM ministries ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ministry
	for rows.Next() {
		var m domain.Ministry
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
