package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

const testEmbeddingSize = 3072

type projectFixture struct {
	svc      *ProjectService
	projects *fakeProjectStore
	assets   *fakeAssetStore
	chunks   *fakeChunkStore
	vector   *fakeVectorStore
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{
		projects: newFakeProjectStore(),
		assets:   newFakeAssetStore(),
		chunks:   newFakeChunkStore(),
		vector:   newFakeVectorStore(),
	}
	f.svc = NewProjectService(f.projects, f.assets, f.chunks, f.vector, testEmbeddingSize, zap.NewNop())
	return f
}

func TestCreateProject(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	project, err := f.svc.Create(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), project.Code)
	assert.Equal(t, int64(1), project.UserID)
}

func TestCreateProjectDuplicate(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, 1, 100)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, 1, 100)
	require.True(t, apierror.IsCode(err, apierror.ProjectAlreadyExists))

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	existing, ok := apiErr.Details["project"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, first.ID, existing["project_id"])
	assert.Equal(t, first.Code, existing["project_code"])
}

func TestCreateProjectLosesInsertRace(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	// A concurrent request wins the insert between the pre-check and our
	// insert attempt; the existing project is still surfaced in the error.
	f.projects.raceOnCreate = true

	_, createErr := f.svc.Create(ctx, 1, 200)
	require.True(t, apierror.IsCode(createErr, apierror.ProjectAlreadyExists))

	winner, err := f.projects.GetByCodeForUser(ctx, 1, 200)
	require.NoError(t, err)

	var apiErr *apierror.Error
	require.ErrorAs(t, createErr, &apiErr)
	existing := apiErr.Details["project"].(map[string]interface{})
	assert.Equal(t, winner.ID, existing["project_id"])
}

func TestProjectsAreTenantScoped(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, 100)
	require.NoError(t, err)

	// Another user with the same code never sees user 1's project.
	_, err = f.svc.Get(ctx, 2, 100)
	assert.True(t, apierror.IsCode(err, apierror.ProjectNotFound))

	other, err := f.svc.Create(ctx, 2, 100)
	require.NoError(t, err)
	mine, err := f.svc.Get(ctx, 1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, other.ID, mine.ID)
}

func TestListProjects(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	for code := int64(1); code <= 25; code++ {
		_, err := f.svc.Create(ctx, 1, code)
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Projects, 10)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, int64(25), page.TotalCount)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrevious)

	last, err := f.svc.List(ctx, 1, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Projects, 5)
	assert.False(t, last.HasNext)
}

func TestListProjectsClampsPaging(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, 1)
	require.NoError(t, err)

	// Oversized page_size falls back to the default, page zero clamps to one.
	page, err := f.svc.List(ctx, 1, 0, 101)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, store.DefaultPageSize, page.PageSize)
	assert.False(t, page.HasPrevious)
}

func TestListProjectsStatus(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	indexed, err := f.svc.Create(ctx, 1, 1)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 1, 2)
	require.NoError(t, err)

	_, err = f.vector.CreateCollection(ctx, f.svc.collectionName(indexed.ID), testEmbeddingSize, false)
	require.NoError(t, err)

	page, err := f.svc.List(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Projects, 2)

	byCode := map[int64]ProjectSummary{}
	for _, p := range page.Projects {
		byCode[p.ProjectCode] = p
	}
	assert.Equal(t, StatusActive, byCode[1].Status)
	assert.Equal(t, StatusPendingIndexing, byCode[2].Status)
}

func TestProjectDetails(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	project, err := f.svc.Create(ctx, 1, 5)
	require.NoError(t, err)

	_, err = f.assets.Insert(ctx, project.ID, store.AssetTypeFile, "abc_doc.txt", 42)
	require.NoError(t, err)

	name := f.svc.collectionName(project.ID)
	_, err = f.vector.CreateCollection(ctx, name, testEmbeddingSize, false)
	require.NoError(t, err)
	records := []vectorstore.Record{
		{ID: 1, Text: "one", Vector: []float32{1, 0, 0}},
		{ID: 2, Text: "two", Vector: []float32{0, 1, 0}},
		{ID: 3, Text: "three", Vector: []float32{0, 0, 1}},
	}
	require.NoError(t, f.vector.InsertMany(ctx, name, records))

	details, err := f.svc.Details(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), details.AssetCount)
	assert.True(t, details.IsIndexed)
	assert.Equal(t, int64(3), details.PointsCount)
	require.Len(t, details.Assets, 1)
	assert.Equal(t, "abc_doc.txt", details.Assets[0].AssetName)
}

func TestDeleteProject(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	project, err := f.svc.Create(ctx, 1, 7)
	require.NoError(t, err)
	_, err = f.assets.Insert(ctx, project.ID, store.AssetTypeFile, "abc_doc.txt", 42)
	require.NoError(t, err)

	name := f.svc.collectionName(project.ID)
	_, err = f.vector.CreateCollection(ctx, name, testEmbeddingSize, false)
	require.NoError(t, err)

	deleted, err := f.svc.Delete(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, project.ID, deleted.ProjectID)
	assert.Equal(t, int64(1), deleted.AssetCount)

	exists, err := f.vector.CollectionExists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.Get(ctx, 1, 7)
	assert.True(t, apierror.IsCode(err, apierror.ProjectNotFound))
}

func TestDeleteProjectNotFound(t *testing.T) {
	f := newProjectFixture()
	_, err := f.svc.Delete(context.Background(), 1, 999)
	assert.True(t, apierror.IsCode(err, apierror.ProjectNotFound))
}
