package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gunaso/grievance-service/internal/domain"
)

// ComplaintFilter captures list parameters. Scope fields are OR-ed set intersections:
// a complaint matches when any of its targets is in MinistryIDs or DepartmentIDs.
type ComplaintFilter struct {
	CreatedBy     *string
	MinistryIDs   []string
	DepartmentIDs []string
	Statuses      []domain.ComplaintStatus
	SearchTerm    *string
	Limit         int
	Offset        int
}

// ComplaintTx exposes a row-locked complaint for the duration of a status write.
type ComplaintTx interface {
	// Complaint is the committed state read under the lock.
	Complaint() *domain.Complaint
	SetStatus(ctx context.Context, status domain.ComplaintStatus) error
	AppendUpdate(ctx context.Context, update *domain.ComplaintUpdate) error
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByTrackingID(ctx context.Context, trackingID string) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	CountByStatus(ctx context.Context, filter ComplaintFilter) (map[domain.ComplaintStatus]int, error)
	UpdateEnrichment(ctx context.Context, trackingID string, enrichment domain.Enrichment) error
	// WithLock runs fn inside a transaction holding the complaint's row lock. Returning an
	// error from fn rolls back every write made through the ComplaintTx.
	WithLock(ctx context.Context, trackingID string, fn func(ComplaintTx) error) error
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `
        c.id, c.tracking_id::text, c.title, c.description, c.status, c.created_by,
        c.supporting_document, c.government_id_document,
        c.ai_suggested_category, c.ai_suggested_priority, c.ai_summary, c.ai_corruption_risk,
        c.created_at, c.updated_at,
        COALESCE((SELECT array_agg(cm.ministry_id::text) FROM complaint_ministries cm WHERE cm.complaint_id = c.id), '{}'),
        COALESCE((SELECT array_agg(cd.department_id::text) FROM complaint_departments cd WHERE cd.complaint_id = c.id), '{}')`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            INSERT INTO complaints (tracking_id, title, description, status, created_by,
                                    supporting_document, government_id_document)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			complaint.TrackingID,
			complaint.Title,
			complaint.Description,
			complaint.Status,
			complaint.CreatedBy,
			complaint.SupportingDocument,
			complaint.GovernmentIDDocument,
		).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx,
			`INSERT INTO complaint_ministries (complaint_id, ministry_id) VALUES ($1,$2)`,
			complaint.ID, complaint.MinistryIDs); err != nil {
			return err
		}
		return insertLinks(ctx, tx,
			`INSERT INTO complaint_departments (complaint_id, department_id) VALUES ($1,$2)`,
			complaint.ID, complaint.DepartmentIDs)
	})
}

func (r *complaintRepository) GetByTrackingID(ctx context.Context, trackingID string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints c WHERE c.tracking_id=$1`
	return scanComplaint(r.pool.QueryRow(ctx, query, trackingID))
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	where, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints c WHERE %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func (r *complaintRepository) CountByStatus(ctx context.Context, filter ComplaintFilter) (map[domain.ComplaintStatus]int, error) {
	where, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT c.status, COUNT(*) FROM complaints c WHERE %s GROUP BY c.status`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ComplaintStatus]int)
	for rows.Next() {
		var (
			status domain.ComplaintStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *complaintRepository) UpdateEnrichment(ctx context.Context, trackingID string, enrichment domain.Enrichment) error {
	const query = `
        UPDATE complaints SET ai_suggested_category=$1, ai_suggested_priority=$2, updated_at=NOW()
        WHERE tracking_id=$3`
	cmd, err := r.pool.Exec(ctx, query, enrichment.Category, enrichment.Priority, trackingID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) WithLock(ctx context.Context, trackingID string, fn func(ComplaintTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + complaintColumns + ` FROM complaints c WHERE c.tracking_id=$1 FOR UPDATE OF c`
		complaint, err := scanComplaint(tx.QueryRow(ctx, query, trackingID))
		if err != nil {
			return err
		}
		return fn(&complaintTx{tx: tx, complaint: complaint})
	})
}

type complaintTx struct {
	tx        pgx.Tx
	complaint *domain.Complaint
}

func (t *complaintTx) Complaint() *domain.Complaint {
	return t.complaint
}

func (t *complaintTx) SetStatus(ctx context.Context, status domain.ComplaintStatus) error {
	const query = `UPDATE complaints SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING updated_at`
	return t.tx.QueryRow(ctx, query, status, t.complaint.ID).Scan(&t.complaint.UpdatedAt)
}

func (t *complaintTx) AppendUpdate(ctx context.Context, update *domain.ComplaintUpdate) error {
	update.ComplaintID = t.complaint.ID
	return insertUpdate(ctx, t.tx, update)
}

func filterClauses(filter ComplaintFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("c.created_by=$%d", len(args)))
	}

	var scope []string
	if len(filter.MinistryIDs) > 0 {
		args = append(args, filter.MinistryIDs)
		scope = append(scope, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM complaint_ministries cm WHERE cm.complaint_id = c.id AND cm.ministry_id = ANY($%d::uuid[]))", len(args)))
	}
	if len(filter.DepartmentIDs) > 0 {
		args = append(args, filter.DepartmentIDs)
		scope = append(scope, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM complaint_departments cd WHERE cd.complaint_id = c.id AND cd.department_id = ANY($%d::uuid[]))", len(args)))
	}
	if len(scope) > 0 {
		clauses = append(clauses, "("+strings.Join(scope, " OR ")+")")
	}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(c.title) LIKE %s OR LOWER(c.description) LIKE %s OR c.tracking_id::text LIKE %s)",
			placeholder, placeholder, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := row.Scan(
		&c.ID,
		&c.TrackingID,
		&c.Title,
		&c.Description,
		&c.Status,
		&c.CreatedBy,
		&c.SupportingDocument,
		&c.GovernmentIDDocument,
		&c.AISuggestedCategory,
		&c.AISuggestedPriority,
		&c.AISummary,
		&c.AICorruptionRisk,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.MinistryIDs,
		&c.DepartmentIDs,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
