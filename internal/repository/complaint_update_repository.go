package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gunaso/grievance-service/internal/domain"
)

// ComplaintUpdateRepository stores the append-only complaint history.
type ComplaintUpdateRepository interface {
	Create(ctx context.Context, update *domain.ComplaintUpdate) error
	// ListByComplaint returns entries newest first.
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintUpdate, error)
	Latest(ctx context.Context, complaintID string) (*domain.ComplaintUpdate, error)
}

type complaintUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintUpdateRepository builds repository.
func NewComplaintUpdateRepository(pool *pgxpool.Pool) ComplaintUpdateRepository {
	return &complaintUpdateRepository{pool: pool}
}

const selectUpdates = `
        SELECT cu.id, cu.complaint_id, cu.user_id, u.username, cu.update_text, cu.old_status, cu.new_status, cu.created_at
        FROM complaint_updates cu
        JOIN users u ON u.id = cu.user_id
        WHERE cu.complaint_id=$1
        ORDER BY cu.created_at DESC, cu.id DESC`

func (r *complaintUpdateRepository) Create(ctx context.Context, update *domain.ComplaintUpdate) error {
	return insertUpdate(ctx, r.pool, update)
}

func (r *complaintUpdateRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintUpdate, error) {
	rows, err := r.pool.Query(ctx, selectUpdates, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintUpdate
	for rows.Next() {
		var u domain.ComplaintUpdate
		if err := rows.Scan(&u.ID, &u.ComplaintID, &u.UserID, &u.Username, &u.Text, &u.OldStatus, &u.NewStatus, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *complaintUpdateRepository) Latest(ctx context.Context, complaintID string) (*domain.ComplaintUpdate, error) {
	var u domain.ComplaintUpdate
	if err := r.pool.QueryRow(ctx, selectUpdates+` LIMIT 1`, complaintID).Scan(
		&u.ID, &u.ComplaintID, &u.UserID, &u.Username, &u.Text, &u.OldStatus, &u.NewStatus, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func insertUpdate(ctx context.Context, q querier, update *domain.ComplaintUpdate) error {
	const query = `
        INSERT INTO complaint_updates (complaint_id, user_id, update_text, old_status, new_status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		update.ComplaintID,
		update.UserID,
		update.Text,
		update.OldStatus,
		update.NewStatus,
	).Scan(&update.ID, &update.CreatedAt)
}
