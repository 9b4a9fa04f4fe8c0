package vectorstore

import "fmt"

// CollectionName returns the per-project collection name. The embedding size
// is part of the name so that changing the embedding model yields a fresh
// collection instead of mixing incompatible vectors.
func CollectionName(vectorSize int, projectID int64) string {
	return fmt.Sprintf("collection_%d_%d", vectorSize, projectID)
}
