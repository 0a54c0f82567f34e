package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gunaso/grievance-service/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	List(ctx context.Context, ministryID *string) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (ministry_id, name, description)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		dept.MinistryID,
		dept.Name,
		dept.Description,
	).Scan(&dept.ID, &dept.CreatedAt)
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	const query = `
        SELECT id, ministry_id, name, description, created_at
        FROM departments WHERE id=$1`
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&dept.ID,
		&dept.MinistryID,
		&dept.Name,
		&dept.Description,
		&dept.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}

// List returns departments ordered by name, optionally restricted to one ministry.
func (r *departmentRepository) List(ctx context.Context, ministryID *string) ([]domain.Department, error) {
	const query = `
        SELECT id, ministry_id, name, description, created_at
        FROM departments
        WHERE ($1::uuid IS NULL OR ministry_id = $1::uuid)
        ORDER BY name`
	rows, err := r.pool.Query(ctx, query, ministryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.MinistryID, &dept.Name, &dept.Description, &dept.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
