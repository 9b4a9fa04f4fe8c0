package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogStore appends RAG answer audit records.
type QueryLogStore struct {
	pool *pgxpool.Pool
}

// NewQueryLogStore creates a QueryLogStore.
func NewQueryLogStore(pool *pgxpool.Pool) *QueryLogStore {
	return &QueryLogStore{pool: pool}
}

// Insert appends one query log entry.
func (s *QueryLogStore) Insert(ctx context.Context, log *QueryLog) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO query_logs (user_id, question, llm_response, response_time_ms)
		 VALUES ($1, $2, $3, $4)
		 RETURNING log_id, log_uuid, created_at`,
		log.UserID, log.Question, log.Response, log.ResponseTimeMS,
	)
	if err := row.Scan(&log.ID, &log.UUID, &log.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}
