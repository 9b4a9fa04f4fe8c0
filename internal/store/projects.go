package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectStore persists projects.
type ProjectStore struct {
	pool *pgxpool.Pool
}

// NewProjectStore creates a ProjectStore.
func NewProjectStore(pool *pgxpool.Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

const projectColumns = `project_id, project_uuid, user_id, project_code, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.UUID, &p.UserID, &p.Code, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// Create inserts a new project. Returns ErrDuplicate when the user already
// has a project with this code.
func (s *ProjectStore) Create(ctx context.Context, userID, code int64) (*Project, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, project_code) VALUES ($1, $2) RETURNING `+projectColumns,
		userID, code,
	)
	return scanProject(row)
}

// GetOrCreate returns the user's project with the given code, creating it
// when absent. Safe under concurrent calls for the same (user, code).
func (s *ProjectStore) GetOrCreate(ctx context.Context, userID, code int64) (*Project, error) {
	p, err := s.GetByCodeForUser(ctx, userID, code)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, project_code) VALUES ($1, $2)
		 ON CONFLICT (user_id, project_code) DO NOTHING
		 RETURNING `+projectColumns,
		userID, code,
	)
	p, err = scanProject(row)
	if errors.Is(err, ErrNotFound) {
		// Lost the race; the row exists now.
		return s.GetByCodeForUser(ctx, userID, code)
	}
	return p, err
}

// GetByCodeForUser fetches a project by its user-visible code.
func (s *ProjectStore) GetByCodeForUser(ctx context.Context, userID, code int64) (*Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 AND project_code = $2`,
		userID, code,
	)
	return scanProject(row)
}

// GetByIDForUser fetches a project by internal id, scoped to the user.
func (s *ProjectStore) GetByIDForUser(ctx context.Context, userID, projectID int64) (*Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 AND project_id = $2`,
		userID, projectID,
	)
	return scanProject(row)
}

// ListForUser returns one page of the user's projects, newest first, plus
// the total project count.
func (s *ProjectStore) ListForUser(ctx context.Context, userID int64, page, pageSize int) ([]Project, int64, error) {
	page, pageSize = ClampPage(page, pageSize)

	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM projects WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, mapError(err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE user_id = $1 ORDER BY created_at DESC, project_id DESC
		 LIMIT $2 OFFSET $3`,
		userID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	return projects, total, nil
}

// Delete removes a project. Assets and chunks cascade at the database level.
func (s *ProjectStore) Delete(ctx context.Context, projectID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE project_id = $1`, projectID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
