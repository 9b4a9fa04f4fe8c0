package store

import (
	"time"

	"github.com/google/uuid"
)

// AssetTypeFile is the asset type for uploaded files.
const AssetTypeFile = "file"

// User is an identity principal.
type User struct {
	ID             int64
	UUID           uuid.UUID
	Email          string
	HashedPassword string
	IsActive       bool
	IsSuperuser    bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// Project is a retrieval scope owned by one user. Code is the user-visible
// identifier; ID never appears in URLs.
type Project struct {
	ID        int64
	UUID      uuid.UUID
	UserID    int64
	Code      int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Asset is a stored source file belonging to a project.
type Asset struct {
	ID        int64
	UUID      uuid.UUID
	ProjectID int64
	Type      string
	Name      string
	Size      int64
	CreatedAt time.Time
}

// Chunk is a unit of retrievable text. ID doubles as the vector record id.
type Chunk struct {
	ID        int64
	UUID      uuid.UUID
	ProjectID int64
	AssetID   int64
	Text      string
	Metadata  map[string]interface{}
	Order     int
	CreatedAt time.Time
}

// QueryLog is an append-only audit record of a RAG answer.
type QueryLog struct {
	ID             int64
	UUID           uuid.UUID
	UserID         int64
	Question       string
	Response       string
	ResponseTimeMS float64
	CreatedAt      time.Time
}
