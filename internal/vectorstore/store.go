// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCollectionName indicates a collection name failing validation.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrCollectionNotFound indicates the collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrConnectionFailed indicates the backend is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInsertFailed indicates a failed insert.
	ErrInsertFailed = errors.New("insert failed")

	// ErrSearchFailed indicates a failed similarity search.
	ErrSearchFailed = errors.New("search failed")
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against security rules.
// Collection names reach backend identifiers (table names, gRPC collection
// names), so anything outside ^[a-z0-9_]{1,64}$ is rejected.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Record is a single vector record to insert.
type Record struct {
	// ID is the stable record identifier, the owning chunk's primary key.
	ID int64

	Text   string
	Vector []float32

	// Metadata is stored alongside the vector and is filterable.
	Metadata map[string]interface{}
}

// RetrievedDocument is a similarity search hit.
type RetrievedDocument struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name          string `json:"collection_name"`
	VectorSize    int    `json:"vector_size"`
	VectorsCount  int64  `json:"vectors_count"`
	PointsCount   int64  `json:"points_count"`
	SegmentsCount int64  `json:"segments_count"`
	Status        string `json:"status"`
}

// Filter selects records by metadata for deletion. Zero fields are unset.
type Filter struct {
	AssetID   int64
	ProjectID int64
	ChunkID   int64
}

// Store is the interface vector database backends implement.
//
// Collection lifecycle is idempotent: CreateCollection reports whether a new
// collection was created, DeleteCollection whether one existed.
type Store interface {
	// CreateCollection creates a collection for vectors of the given size.
	// With reset, any existing collection is dropped first.
	CreateCollection(ctx context.Context, name string, vectorSize int, reset bool) (created bool, err error)

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CollectionInfo returns collection metadata, or ErrCollectionNotFound.
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// DeleteCollection drops the collection and all its records.
	DeleteCollection(ctx context.Context, name string) (existed bool, err error)

	// InsertMany inserts records in batches.
	InsertMany(ctx context.Context, name string, records []Record) error

	// SearchByVector returns up to limit nearest records, best first.
	SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]RetrievedDocument, error)

	// DeleteByIDs removes records by their record IDs.
	DeleteByIDs(ctx context.Context, name string, ids []int64) error

	// DeleteByFilter removes records matching the metadata filter and
	// returns how many were removed, where the backend can tell.
	DeleteByFilter(ctx context.Context, name string, f Filter) (int64, error)

	// Close releases backend resources.
	Close() error
}
