package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AssetStore persists assets.
type AssetStore struct {
	pool *pgxpool.Pool
}

// NewAssetStore creates an AssetStore.
func NewAssetStore(pool *pgxpool.Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

const assetColumns = `asset_id, asset_uuid, asset_project_id, asset_type, asset_name, asset_size, created_at`

func scanAsset(row interface{ Scan(...interface{}) error }) (*Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.UUID, &a.ProjectID, &a.Type, &a.Name, &a.Size, &a.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

// Insert records a new asset. Returns ErrDuplicate when the name is already
// taken within the project.
func (s *AssetStore) Insert(ctx context.Context, projectID int64, assetType, name string, size int64) (*Asset, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO assets (asset_project_id, asset_type, asset_name, asset_size)
		 VALUES ($1, $2, $3, $4) RETURNING `+assetColumns,
		projectID, assetType, name, size,
	)
	return scanAsset(row)
}

// GetByName fetches an asset by its server-assigned name within a project.
func (s *AssetStore) GetByName(ctx context.Context, projectID int64, name string) (*Asset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_project_id = $1 AND asset_name = $2`,
		projectID, name,
	)
	return scanAsset(row)
}

// GetByID fetches an asset by id, scoped to the project.
func (s *AssetStore) GetByID(ctx context.Context, assetID, projectID int64) (*Asset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1 AND asset_project_id = $2`,
		assetID, projectID,
	)
	return scanAsset(row)
}

func (s *AssetStore) list(ctx context.Context, query string, args ...interface{}) ([]Asset, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return assets, nil
}

// ListByType returns the project's assets of one type, oldest first.
func (s *AssetStore) ListByType(ctx context.Context, projectID int64, assetType string) ([]Asset, error) {
	return s.list(ctx,
		`SELECT `+assetColumns+` FROM assets
		 WHERE asset_project_id = $1 AND asset_type = $2 ORDER BY asset_id`,
		projectID, assetType,
	)
}

// ListByProject returns all the project's assets, oldest first.
func (s *AssetStore) ListByProject(ctx context.Context, projectID int64) ([]Asset, error) {
	return s.list(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_project_id = $1 ORDER BY asset_id`,
		projectID,
	)
}

// CountByProject returns the number of assets in a project.
func (s *AssetStore) CountByProject(ctx context.Context, projectID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM assets WHERE asset_project_id = $1`, projectID,
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteByID removes one asset.
func (s *AssetStore) DeleteByID(ctx context.Context, assetID, projectID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM assets WHERE asset_id = $1 AND asset_project_id = $2`,
		assetID, projectID,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllByProject removes all the project's assets and returns the count.
func (s *AssetStore) DeleteAllByProject(ctx context.Context, projectID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM assets WHERE asset_project_id = $1`, projectID)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
