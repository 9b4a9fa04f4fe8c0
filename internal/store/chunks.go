package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkStore persists chunks.
type ChunkStore struct {
	pool *pgxpool.Pool
}

// NewChunkStore creates a ChunkStore.
func NewChunkStore(pool *pgxpool.Pool) *ChunkStore {
	return &ChunkStore{pool: pool}
}

const chunkColumns = `chunk_id, chunk_uuid, chunk_project_id, chunk_asset_id, chunk_text, chunk_metadata, chunk_order, created_at`

func scanChunk(row interface{ Scan(...interface{}) error }) (*Chunk, error) {
	var c Chunk
	err := row.Scan(&c.ID, &c.UUID, &c.ProjectID, &c.AssetID, &c.Text, &c.Metadata, &c.Order, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// InsertMany inserts chunks in batches inside one transaction and returns
// the inserted count. Chunk IDs are filled in on the given slice.
func (s *ChunkStore) InsertMany(ctx context.Context, chunks []Chunk, batchSize int) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `INSERT INTO chunks
		(chunk_project_id, chunk_asset_id, chunk_text, chunk_metadata, chunk_order)
		VALUES ($1, $2, $3, $4, $5) RETURNING chunk_id`

	inserted := 0
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			metadata := c.Metadata
			if metadata == nil {
				metadata = map[string]interface{}{}
			}
			batch.Queue(insertSQL, c.ProjectID, c.AssetID, c.Text, metadata, c.Order)
		}

		results := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if err := results.QueryRow().Scan(&chunks[i].ID); err != nil {
				_ = results.Close()
				return 0, mapError(err)
			}
			inserted++
		}
		if err := results.Close(); err != nil {
			return 0, mapError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, mapError(err)
	}
	return inserted, nil
}

// GetPage returns one page of the project's chunks ordered by id, so paged
// readers see a stable order across requests.
func (s *ChunkStore) GetPage(ctx context.Context, projectID int64, page, pageSize int) ([]Chunk, error) {
	page, pageSize = ClampPage(page, pageSize)

	rows, err := s.pool.Query(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE chunk_project_id = $1 ORDER BY chunk_id
		 LIMIT $2 OFFSET $3`,
		projectID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return chunks, nil
}

// IDsByAsset returns the ids of the asset's chunks in insertion order.
func (s *ChunkStore) IDsByAsset(ctx context.Context, projectID, assetID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id FROM chunks
		 WHERE chunk_project_id = $1 AND chunk_asset_id = $2 ORDER BY chunk_id`,
		projectID, assetID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

// TotalCount returns the number of chunks in a project.
func (s *ChunkStore) TotalCount(ctx context.Context, projectID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE chunk_project_id = $1`, projectID,
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteByProject removes all the project's chunks and returns the count.
func (s *ChunkStore) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE chunk_project_id = $1`, projectID)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
