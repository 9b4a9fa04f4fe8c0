package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// Distance operator classes and score expressions for pgvector.
const (
	pgDistanceCosine = "vector_cosine_ops"
	pgDistanceDot    = "vector_ip_ops"
)

// PgvectorConfig holds configuration for the pgvector store.
type PgvectorConfig struct {
	// DistanceOps is the operator class for indexes: vector_cosine_ops or
	// vector_ip_ops.
	DistanceOps string

	// IndexThreshold is the row count at which an HNSW index is created.
	IndexThreshold int
}

// PgDistanceOps maps the configured distance method name to a pgvector
// operator class.
func PgDistanceOps(method string) (string, error) {
	switch method {
	case "cosine":
		return pgDistanceCosine, nil
	case "dot":
		return pgDistanceDot, nil
	default:
		return "", fmt.Errorf("%w: unknown distance method %q", ErrInvalidConfig, method)
	}
}

// PgvectorStore is a Store implementation over PostgreSQL with the pgvector
// extension. Each collection is a table holding one vector per chunk, with a
// foreign key back to the chunks table.
type PgvectorStore struct {
	pool   *pgxpool.Pool
	config PgvectorConfig
	logger *zap.Logger
}

// NewPgvectorStore creates a PgvectorStore on an existing pool and ensures
// the vector extension is installed.
func NewPgvectorStore(ctx context.Context, pool *pgxpool.Pool, config PgvectorConfig, logger *zap.Logger) (*PgvectorStore, error) {
	if config.DistanceOps == "" {
		config.DistanceOps = pgDistanceCosine
	}
	if config.IndexThreshold <= 0 {
		config.IndexThreshold = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, fmt.Errorf("%w: installing vector extension: %v", ErrConnectionFailed, err)
	}

	return &PgvectorStore{pool: pool, config: config, logger: logger}, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PgvectorStore) Close() error { return nil }

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *PgvectorStore) indexName(collection string) string {
	return collection + "_vector_idx"
}

// CreateCollection creates the collection table.
func (s *PgvectorStore) CreateCollection(ctx context.Context, name string, vectorSize int, reset bool) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}

	if reset {
		if _, err := s.DeleteCollection(ctx, name); err != nil {
			return false, err
		}
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	s.logger.Info("creating pgvector collection", zap.String("collection", name), zap.Int("vector_size", vectorSize))

	createSQL := fmt.Sprintf(`CREATE TABLE %s (
		id bigserial PRIMARY KEY,
		text text,
		embedding vector(%d),
		metadata jsonb DEFAULT '{}',
		chunk_id bigint REFERENCES chunks(chunk_id) ON DELETE CASCADE
	)`, quoteIdent(name), vectorSize)

	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return false, fmt.Errorf("creating collection %s: %w", name, err)
	}
	return true, nil
}

// CollectionExists reports whether the collection table exists.
func (s *PgvectorStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return exists, nil
}

// CollectionInfo returns the row count and vector dimension.
func (s *PgvectorStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}

	info := &CollectionInfo{Name: name, SegmentsCount: 1, Status: "green"}

	countSQL := fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(name))
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&info.PointsCount); err != nil {
		return nil, fmt.Errorf("counting records in %s: %w", name, err)
	}
	info.VectorsCount = info.PointsCount

	// atttypmod holds the declared dimension for vector columns.
	dimSQL := `SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'`
	var dim int
	if err := s.pool.QueryRow(ctx, dimSQL, name).Scan(&dim); err == nil {
		info.VectorSize = dim
	}

	return info, nil
}

// DeleteCollection drops the collection table and its index.
func (s *PgvectorStore) DeleteCollection(ctx context.Context, name string) (bool, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", quoteIdent(name))
	if _, err := s.pool.Exec(ctx, dropSQL); err != nil {
		return false, fmt.Errorf("dropping collection %s: %w", name, err)
	}
	return true, nil
}

// InsertMany inserts records in batches and maintains the vector index.
// A record's ID is stored in chunk_id so deletions can reference chunks.
func (s *PgvectorStore) InsertMany(ctx context.Context, name string, records []Record) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (text, embedding, metadata, chunk_id) VALUES ($1, $2, $3, $4)",
		quoteIdent(name),
	)

	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			metadata := rec.Metadata
			if metadata == nil {
				metadata = map[string]interface{}{}
			}
			batch.Queue(insertSQL, rec.Text, pgvector.NewVector(rec.Vector), metadata, rec.ID)
		}

		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: inserting batch at %d into %s: %v", ErrInsertFailed, start, name, err)
		}
	}

	return s.ensureVectorIndex(ctx, name)
}

// ensureVectorIndex creates an HNSW index once the collection is large
// enough for sequential scans to hurt.
func (s *PgvectorStore) ensureVectorIndex(ctx context.Context, name string) error {
	indexName := s.indexName(name)

	var indexed bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE tablename = $1 AND indexname = $2)",
		name, indexName,
	).Scan(&indexed)
	if err != nil {
		return fmt.Errorf("checking index on %s: %w", name, err)
	}
	if indexed {
		return nil
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(name))
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&count); err != nil {
		return fmt.Errorf("counting records in %s: %w", name, err)
	}
	if count < int64(s.config.IndexThreshold) {
		return nil
	}

	s.logger.Info("creating vector index", zap.String("collection", name), zap.Int64("records", count))

	createSQL := fmt.Sprintf("CREATE INDEX %s ON %s USING hnsw (embedding %s)",
		quoteIdent(indexName), quoteIdent(name), s.config.DistanceOps)
	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("creating index on %s: %w", name, err)
	}
	return nil
}

// SearchByVector returns up to limit nearest records, best first. Scores are
// cosine similarity for cosine collections and inner product for dot
// collections; higher is better in both cases.
func (s *PgvectorStore) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]RetrievedDocument, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrSearchFailed, limit)
	}

	scoreExpr := "1 - (embedding <=> $1)"
	orderExpr := "embedding <=> $1"
	if s.config.DistanceOps == pgDistanceDot {
		scoreExpr = "(embedding <#> $1) * -1"
		orderExpr = "embedding <#> $1"
	}

	searchSQL := fmt.Sprintf(
		"SELECT text, %s AS score FROM %s ORDER BY %s LIMIT $2",
		scoreExpr, quoteIdent(name), orderExpr,
	)

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: searching collection %s: %v", ErrSearchFailed, name, err)
	}
	defer rows.Close()

	var docs []RetrievedDocument
	for rows.Next() {
		var doc RetrievedDocument
		var score float64
		if err := rows.Scan(&doc.Text, &score); err != nil {
			return nil, fmt.Errorf("%w: scanning result: %v", ErrSearchFailed, err)
		}
		doc.Score = float32(score)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading results: %v", ErrSearchFailed, err)
	}
	return docs, nil
}

// DeleteByIDs removes records whose chunk_id is in ids.
func (s *PgvectorStore) DeleteByIDs(ctx context.Context, name string, ids []int64) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE chunk_id = ANY($1)", quoteIdent(name))
	if _, err := s.pool.Exec(ctx, deleteSQL, ids); err != nil {
		return fmt.Errorf("deleting %d records from %s: %w", len(ids), name, err)
	}
	return nil
}

// DeleteByFilter removes records matching the metadata filter.
func (s *PgvectorStore) DeleteByFilter(ctx context.Context, name string, f Filter) (int64, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrCollectionNotFound
	}

	where := ""
	args := []interface{}{}
	if f.AssetID != 0 {
		args = append(args, f.AssetID)
		where = fmt.Sprintf("(metadata->>'asset_id')::bigint = $%d", len(args))
	}
	if f.ProjectID != 0 {
		args = append(args, f.ProjectID)
		cond := fmt.Sprintf("(metadata->>'project_id')::bigint = $%d", len(args))
		if where != "" {
			where += " AND " + cond
		} else {
			where = cond
		}
	}
	if f.ChunkID != 0 {
		args = append(args, f.ChunkID)
		cond := fmt.Sprintf("(metadata->>'chunk_id')::bigint = $%d", len(args))
		if where != "" {
			where += " AND " + cond
		} else {
			where = cond
		}
	}
	if where == "" {
		return 0, nil
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(name), where)
	tag, err := s.pool.Exec(ctx, deleteSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting filtered records from %s: %w", name, err)
	}
	return tag.RowsAffected(), nil
}

// Ensure PgvectorStore implements Store.
var _ Store = (*PgvectorStore)(nil)
