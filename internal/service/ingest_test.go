package service

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/chunker"
	"github.com/quarrylabs/ragserve/internal/config"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

type ingestFixture struct {
	svc      *IngestService
	cfg      *config.Config
	projects *fakeProjectStore
	assets   *fakeAssetStore
	chunks   *fakeChunkStore
	vector   *fakeVectorStore
	embedder *fakeProvider
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		cfg: &config.Config{
			FileAllowedTypes:     []string{"pdf", "txt"},
			FileMaxSize:          1024 * 1024,
			FileDefaultChunkSize: 512,
			FileStoragePath:      t.TempDir(),
			EmbeddingModelSize:   3,
		},
		projects: newFakeProjectStore(),
		assets:   newFakeAssetStore(),
		chunks:   newFakeChunkStore(),
		vector:   newFakeVectorStore(),
		embedder: &fakeProvider{},
	}
	splitter := chunker.New(ProviderEmbedder{Provider: f.embedder}, zap.NewNop())
	f.svc = NewIngestService(f.cfg, f.projects, f.assets, f.chunks, f.vector, splitter, zap.NewNop())
	return f
}

func (f *ingestFixture) upload(t *testing.T, userID, code int64, filename, content string) *store.Asset {
	t.Helper()
	asset, err := f.svc.Upload(context.Background(), userID, code, &UploadedFile{
		Filename: filename,
		Size:     int64(len(content)),
		Reader:   strings.NewReader(content),
	})
	require.NoError(t, err)
	return asset
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "my_docfinal.pdf", CleanFileName("my doc&final.pdf"))
	assert.Equal(t, "report_v2.txt", CleanFileName("  report v2.txt "))
	assert.Equal(t, "plain.txt", CleanFileName("plain.txt"))
	assert.Equal(t, "", CleanFileName("$%^"))
}

func TestUploadStoresFile(t *testing.T) {
	f := newIngestFixture(t)
	asset := f.upload(t, 1, 100, "my doc&final.txt", "document body content")

	assert.Regexp(t, `^[a-z0-9]{12}_my_docfinal\.txt$`, asset.Name)
	assert.Equal(t, int64(len("document body content")), asset.Size)
	assert.Equal(t, store.AssetTypeFile, asset.Type)

	project, err := f.projects.GetByCodeForUser(context.Background(), 1, 100)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(f.svc.projectDir(project.ID), asset.Name))
	require.NoError(t, err)
	assert.Equal(t, "document body content", string(data))
}

func TestUploadAutoCreatesProject(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.projects.GetByCodeForUser(ctx, 1, 100)
	require.ErrorIs(t, err, store.ErrNotFound)

	f.upload(t, 1, 100, "doc.txt", "content")

	_, err = f.projects.GetByCodeForUser(ctx, 1, 100)
	assert.NoError(t, err)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.svc.Upload(context.Background(), 1, 100, &UploadedFile{
		Filename: "malware.exe",
		Size:     10,
		Reader:   strings.NewReader("0123456789"),
	})
	assert.True(t, apierror.IsCode(err, apierror.FileTypeNotSupported))
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.svc.Upload(context.Background(), 1, 100, &UploadedFile{
		Filename: "big.txt",
		Size:     f.cfg.FileMaxSize + 1,
		Reader:   strings.NewReader("irrelevant"),
	})
	assert.True(t, apierror.IsCode(err, apierror.FileSizeExceeded))
}

func TestProcessChunksUploadedFiles(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	f.upload(t, 1, 100, "doc.txt", "first line of text\nsecond line of text\nthird line of text")

	result, err := f.svc.Process(ctx, 1, 100, ProcessRequest{Method: chunker.MethodSimple, ChunkSize: 25})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedFiles)
	assert.Equal(t, 1, result.TotalFiles)
	assert.Empty(t, result.FailedFiles)
	assert.Greater(t, result.InsertedChunks, 0)

	project, err := f.projects.GetByCodeForUser(ctx, 1, 100)
	require.NoError(t, err)
	stored, err := f.chunks.GetPage(ctx, project.ID, 1, 100)
	require.NoError(t, err)
	require.Len(t, stored, result.InsertedChunks)
	for i, c := range stored {
		assert.Equal(t, i+1, c.Order)
		assert.Equal(t, "simple", c.Metadata["chunking_method"])
		assert.NotEmpty(t, c.Text)
	}
}

func TestProcessDefaultsToSemanticWithFallback(t *testing.T) {
	f := newIngestFixture(t)
	f.embedder.unavailable = true

	f.upload(t, 1, 100, "doc.txt", "One sentence here. Another sentence there.")

	// Provider outage degrades semantic chunking to simple instead of
	// failing the request.
	result, err := f.svc.Process(context.Background(), 1, 100, ProcessRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedFiles)
	assert.Greater(t, result.InsertedChunks, 0)
}

func TestProcessByFileID(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	first := f.upload(t, 1, 100, "one.txt", "content of the first file")
	f.upload(t, 1, 100, "two.txt", "content of the second file")

	byName, err := f.svc.Process(ctx, 1, 100, ProcessRequest{FileID: first.Name, Method: chunker.MethodSimple})
	require.NoError(t, err)
	assert.Equal(t, 1, byName.TotalFiles)

	byID, err := f.svc.Process(ctx, 1, 100, ProcessRequest{FileID: "1", Method: chunker.MethodSimple})
	require.NoError(t, err)
	assert.Equal(t, 1, byID.TotalFiles)
}

func TestProcessUnknownFileID(t *testing.T) {
	f := newIngestFixture(t)
	f.upload(t, 1, 100, "doc.txt", "content")

	_, err := f.svc.Process(context.Background(), 1, 100, ProcessRequest{FileID: "no_such_file"})
	assert.True(t, apierror.IsCode(err, apierror.FileNotFound))
}

func TestProcessNoFiles(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.projects.Create(ctx, 1, 100)
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, 1, 100, ProcessRequest{})
	assert.True(t, apierror.IsCode(err, apierror.ProcessingNoFiles))
}

func TestProcessProjectNotFound(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.svc.Process(context.Background(), 1, 999, ProcessRequest{})
	assert.True(t, apierror.IsCode(err, apierror.ProjectNotFound))
}

func TestProcessResetClearsChunksAndCollection(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	f.upload(t, 1, 100, "doc.txt", "line one content\nline two content")
	project, err := f.projects.GetByCodeForUser(ctx, 1, 100)
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, 1, 100, ProcessRequest{Method: chunker.MethodSimple})
	require.NoError(t, err)
	before, err := f.chunks.TotalCount(ctx, project.ID)
	require.NoError(t, err)
	require.Greater(t, before, int64(0))

	name := vectorstore.CollectionName(f.cfg.EmbeddingModelSize, project.ID)
	_, err = f.vector.CreateCollection(ctx, name, f.cfg.EmbeddingModelSize, false)
	require.NoError(t, err)

	result, err := f.svc.Process(ctx, 1, 100, ProcessRequest{Method: chunker.MethodSimple, DoReset: 1})
	require.NoError(t, err)

	after, err := f.chunks.TotalCount(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(result.InsertedChunks), after)

	exists, err := f.vector.CollectionExists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProcessCollectsPerFileFailures(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	f.upload(t, 1, 100, "good.txt", "usable content lines\nmore usable content")
	empty := f.upload(t, 1, 100, "empty.txt", "   ")

	result, err := f.svc.Process(ctx, 1, 100, ProcessRequest{Method: chunker.MethodSimple})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 1, result.ProcessedFiles)
	require.Len(t, result.FailedFiles, 1)
	assert.Equal(t, strconv.FormatInt(empty.ID, 10), result.FailedFiles[0].FileID)
	assert.Equal(t, empty.Name, result.FailedFiles[0].FileName)
	assert.NotEmpty(t, result.FailedFiles[0].Error)
}

func TestDeleteAsset(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	asset := f.upload(t, 1, 100, "doc.txt", "line one content\nline two content")
	project, err := f.projects.GetByCodeForUser(ctx, 1, 100)
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, 1, 100, ProcessRequest{Method: chunker.MethodSimple})
	require.NoError(t, err)

	// Simulate a pushed index for the asset's chunks.
	name := vectorstore.CollectionName(f.cfg.EmbeddingModelSize, project.ID)
	_, err = f.vector.CreateCollection(ctx, name, f.cfg.EmbeddingModelSize, false)
	require.NoError(t, err)
	chunkIDs, err := f.chunks.IDsByAsset(ctx, project.ID, asset.ID)
	require.NoError(t, err)
	records := make([]vectorstore.Record, len(chunkIDs))
	for i, id := range chunkIDs {
		records[i] = vectorstore.Record{
			ID:       id,
			Text:     "chunk",
			Vector:   []float32{1, 0, 0},
			Metadata: map[string]interface{}{"asset_id": asset.ID},
		}
	}
	require.NoError(t, f.vector.InsertMany(ctx, name, records))

	deleted, err := f.svc.DeleteAsset(ctx, 1, 100, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, deleted.AssetID)
	assert.Equal(t, len(chunkIDs), deleted.DeletedChunks)
	assert.Equal(t, int64(len(chunkIDs)), deleted.DeletedVectors)

	_, err = f.assets.GetByID(ctx, asset.ID, project.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.vector.collections[name])
	_, statErr := os.Stat(filepath.Join(f.svc.projectDir(project.ID), asset.Name))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteAssetNotFound(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()
	_, err := f.projects.Create(ctx, 1, 100)
	require.NoError(t, err)

	_, err = f.svc.DeleteAsset(ctx, 1, 100, 42)
	assert.True(t, apierror.IsCode(err, apierror.FileNotFound))
}

func TestFileContent(t *testing.T) {
	f := newIngestFixture(t)
	asset := f.upload(t, 1, 100, "doc.txt", "stored text content")

	content, err := f.svc.FileContent(context.Background(), 1, 100, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.Name, content.FileName)
	assert.Equal(t, "stored text content", content.Content)
	assert.Equal(t, len("stored text content"), content.ContentLength)
	assert.Equal(t, asset.Size, content.FileSize)
}

func TestFileContentScopedToProject(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	asset := f.upload(t, 1, 100, "doc.txt", "private content")
	f.upload(t, 2, 100, "doc.txt", "other tenant content")

	_, err := f.svc.FileContent(ctx, 2, 100, asset.ID)
	assert.True(t, apierror.IsCode(err, apierror.FileNotFound))
}
