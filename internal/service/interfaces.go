// Package service implements the application's use cases: account
// management, project lifecycle, document ingestion, and retrieval. Services
// depend on narrow interfaces so tests can substitute fakes.
package service

import (
	"context"

	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

// UserStore is the slice of store.UserStore the services use.
type UserStore interface {
	Insert(ctx context.Context, email, hashedPassword string) (*store.User, error)
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	GetByID(ctx context.Context, id int64) (*store.User, error)
}

// ProjectStore is the slice of store.ProjectStore the services use.
type ProjectStore interface {
	Create(ctx context.Context, userID, code int64) (*store.Project, error)
	GetOrCreate(ctx context.Context, userID, code int64) (*store.Project, error)
	GetByCodeForUser(ctx context.Context, userID, code int64) (*store.Project, error)
	ListForUser(ctx context.Context, userID int64, page, pageSize int) ([]store.Project, int64, error)
	Delete(ctx context.Context, projectID int64) error
}

// AssetStore is the slice of store.AssetStore the services use.
type AssetStore interface {
	Insert(ctx context.Context, projectID int64, assetType, name string, size int64) (*store.Asset, error)
	GetByName(ctx context.Context, projectID int64, name string) (*store.Asset, error)
	GetByID(ctx context.Context, assetID, projectID int64) (*store.Asset, error)
	ListByType(ctx context.Context, projectID int64, assetType string) ([]store.Asset, error)
	ListByProject(ctx context.Context, projectID int64) ([]store.Asset, error)
	CountByProject(ctx context.Context, projectID int64) (int64, error)
	DeleteByID(ctx context.Context, assetID, projectID int64) error
}

// ChunkStore is the slice of store.ChunkStore the services use.
type ChunkStore interface {
	InsertMany(ctx context.Context, chunks []store.Chunk, batchSize int) (int, error)
	GetPage(ctx context.Context, projectID int64, page, pageSize int) ([]store.Chunk, error)
	IDsByAsset(ctx context.Context, projectID, assetID int64) ([]int64, error)
	TotalCount(ctx context.Context, projectID int64) (int64, error)
	DeleteByProject(ctx context.Context, projectID int64) (int64, error)
}

// QueryLogStore is the slice of store.QueryLogStore the services use.
type QueryLogStore interface {
	Insert(ctx context.Context, log *store.QueryLog) error
}

// VectorStore is the vector index client.
type VectorStore = vectorstore.Store
