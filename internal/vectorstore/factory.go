package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/config"
)

// New creates the Store selected by VECTOR_DB_BACKEND. The pgvector backend
// shares the relational pool; qdrant dials its own gRPC connection from
// VECTOR_DB_PATH (host:port, gRPC port 6334 by default).
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (Store, error) {
	switch cfg.VectorDBBackend {
	case config.BackendQdrant:
		host, port, err := splitHostPort(cfg.VectorDBPath)
		if err != nil {
			return nil, err
		}
		distance := qdrant.Distance_Cosine
		if cfg.VectorDBDistanceMethod == config.DistanceDot {
			distance = qdrant.Distance_Dot
		}
		return NewQdrantStore(QdrantConfig{
			Host:     host,
			Port:     port,
			Distance: distance,
		})
	case config.BackendPgvector:
		ops, err := PgDistanceOps(cfg.VectorDBDistanceMethod)
		if err != nil {
			return nil, err
		}
		return NewPgvectorStore(ctx, pool, PgvectorConfig{
			DistanceOps:    ops,
			IndexThreshold: cfg.VectorDBPgvecIndexThreshold,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", ErrInvalidConfig, cfg.VectorDBBackend)
	}
}

func splitHostPort(path string) (string, int, error) {
	if path == "" {
		return "localhost", 6334, nil
	}
	if !strings.Contains(path, ":") {
		return path, 6334, nil
	}
	host, portStr, err := net.SplitHostPort(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid vector db address %q", ErrInvalidConfig, path)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: invalid vector db port %q", ErrInvalidConfig, portStr)
	}
	return host, port, nil
}
