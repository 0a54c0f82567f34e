package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so reads can run inside or outside a
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertLinks(ctx context.Context, q querier, query, ownerID string, ids []string) error {
	for _, id := range ids {
		if _, err := q.Exec(ctx, query, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}
