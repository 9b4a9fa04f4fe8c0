package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionName(t *testing.T) {
	name := CollectionName(3072, 17)
	assert.Equal(t, "collection_3072_17", name)
	require.NoError(t, ValidateCollectionName(name))
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, ValidateCollectionName("collection_1536_1"))
	assert.NoError(t, ValidateCollectionName("a"))
	assert.NoError(t, ValidateCollectionName(strings.Repeat("a", 64)))

	assert.ErrorIs(t, ValidateCollectionName(""), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("Has-Upper"), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("bad name"), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("drop;table"), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName(strings.Repeat("a", 65)), ErrInvalidCollectionName)
}

func TestPgDistanceOps(t *testing.T) {
	ops, err := PgDistanceOps("cosine")
	require.NoError(t, err)
	assert.Equal(t, "vector_cosine_ops", ops)

	ops, err = PgDistanceOps("dot")
	require.NoError(t, err)
	assert.Equal(t, "vector_ip_ops", ops)

	_, err = PgDistanceOps("euclid")
	assert.Error(t, err)
}
