package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

// Project indexing statuses surfaced in list and detail views.
const (
	StatusActive          = "active"
	StatusPendingIndexing = "pending_indexing"
)

// ProjectService manages project lifecycle and views.
type ProjectService struct {
	projects      ProjectStore
	assets        AssetStore
	chunks        ChunkStore
	vector        VectorStore
	embeddingSize int
	logger        *zap.Logger
}

// NewProjectService creates a ProjectService.
func NewProjectService(projects ProjectStore, assets AssetStore, chunks ChunkStore, vector VectorStore, embeddingSize int, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects:      projects,
		assets:        assets,
		chunks:        chunks,
		vector:        vector,
		embeddingSize: embeddingSize,
		logger:        logger,
	}
}

// ProjectSummary is the list view of a project.
type ProjectSummary struct {
	ProjectID   int64      `json:"project_id"`
	ProjectUUID string     `json:"project_uuid"`
	ProjectCode int64      `json:"project_code"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	AssetCount  int64      `json:"asset_count"`
	ChunkCount  int64      `json:"chunk_count"`
	Status      string     `json:"status"`
}

// ProjectPage is one page of a user's projects.
type ProjectPage struct {
	Projects    []ProjectSummary `json:"projects"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
	TotalCount  int64            `json:"total_count"`
	TotalPages  int64            `json:"total_pages"`
	HasNext     bool             `json:"has_next"`
	HasPrevious bool             `json:"has_previous"`
}

// AssetView is the detail view of an asset.
type AssetView struct {
	AssetID   int64     `json:"asset_id"`
	AssetName string    `json:"asset_name"`
	AssetType string    `json:"asset_type"`
	AssetSize int64     `json:"asset_size"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectDetails is the detail view of a project.
type ProjectDetails struct {
	ProjectSummary
	VectorCount int64       `json:"vector_count"`
	PointsCount int64       `json:"points_count"`
	IsIndexed   bool        `json:"is_indexed"`
	Assets      []AssetView `json:"assets"`
}

// DeletedProject reports what a project deletion removed.
type DeletedProject struct {
	ProjectID   int64  `json:"project_id"`
	ProjectCode int64  `json:"project_code"`
	ProjectUUID string `json:"project_uuid"`
	AssetCount  int64  `json:"asset_count"`
	ChunkCount  int64  `json:"chunk_count"`
}

// resolveProject loads a project by code for a user, collapsing not-found
// and cross-tenant access into PROJECT_NOT_FOUND.
func resolveProject(ctx context.Context, projects ProjectStore, userID, code int64) (*store.Project, error) {
	project, err := projects.GetByCodeForUser(ctx, userID, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.New(apierror.ProjectNotFound).WithDetails(map[string]interface{}{
				"project_code": code,
			})
		}
		return nil, apierror.Wrap(apierror.InternalError, err)
	}
	return project, nil
}

func (s *ProjectService) collectionName(projectID int64) string {
	return vectorstore.CollectionName(s.embeddingSize, projectID)
}

// Create makes a new project. A taken code yields PROJECT_ALREADY_EXISTS
// with the existing project embedded in the error details, including under
// the race where a concurrent request wins the insert.
func (s *ProjectService) Create(ctx context.Context, userID, code int64) (*store.Project, error) {
	existing, err := s.projects.GetByCodeForUser(ctx, userID, code)
	if err == nil {
		return nil, alreadyExists(existing)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	project, err := s.projects.Create(ctx, userID, code)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, rerr := s.projects.GetByCodeForUser(ctx, userID, code)
			if rerr != nil {
				return nil, apierror.Wrap(apierror.InternalError, rerr)
			}
			return nil, alreadyExists(existing)
		}
		return nil, apierror.Wrap(apierror.ProjectCreationFailed, err)
	}

	s.logger.Info("project created", zap.Int64("project_id", project.ID), zap.Int64("project_code", code))
	return project, nil
}

func alreadyExists(p *store.Project) error {
	return apierror.New(apierror.ProjectAlreadyExists).WithDetails(map[string]interface{}{
		"project": map[string]interface{}{
			"project_id":   p.ID,
			"project_code": p.Code,
			"project_uuid": p.UUID.String(),
		},
	})
}

// Get returns the project for the user's code.
func (s *ProjectService) Get(ctx context.Context, userID, code int64) (*store.Project, error) {
	return resolveProject(ctx, s.projects, userID, code)
}

// List returns one page of the user's projects, enriched with counts and
// indexing status. Count or status lookups failing for one project degrade
// that entry to zeros rather than failing the page.
func (s *ProjectService) List(ctx context.Context, userID int64, page, pageSize int) (*ProjectPage, error) {
	page, pageSize = store.ClampPage(page, pageSize)

	projects, total, err := s.projects.ListForUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for i := range projects {
		summaries = append(summaries, s.summarize(ctx, &projects[i]))
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}

	return &ProjectPage{
		Projects:    summaries,
		Page:        page,
		PageSize:    pageSize,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasNext:     int64(page) < totalPages,
		HasPrevious: page > 1,
	}, nil
}

func (s *ProjectService) summarize(ctx context.Context, p *store.Project) ProjectSummary {
	summary := ProjectSummary{
		ProjectID:   p.ID,
		ProjectUUID: p.UUID.String(),
		ProjectCode: p.Code,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Status:      StatusPendingIndexing,
	}

	if count, err := s.assets.CountByProject(ctx, p.ID); err == nil {
		summary.AssetCount = count
	} else {
		s.logger.Warn("asset count failed", zap.Int64("project_id", p.ID), zap.Error(err))
	}
	if count, err := s.chunks.TotalCount(ctx, p.ID); err == nil {
		summary.ChunkCount = count
	} else {
		s.logger.Warn("chunk count failed", zap.Int64("project_id", p.ID), zap.Error(err))
	}
	if exists, err := s.vector.CollectionExists(ctx, s.collectionName(p.ID)); err == nil && exists {
		summary.Status = StatusActive
	}
	return summary
}

// Details returns the project detail view with assets and index state.
func (s *ProjectService) Details(ctx context.Context, userID, code int64) (*ProjectDetails, error) {
	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	details := &ProjectDetails{
		ProjectSummary: s.summarize(ctx, project),
		Assets:         []AssetView{},
	}

	assets, err := s.assets.ListByProject(ctx, project.ID)
	if err != nil {
		s.logger.Warn("asset listing failed", zap.Int64("project_id", project.ID), zap.Error(err))
	}
	for _, a := range assets {
		details.Assets = append(details.Assets, AssetView{
			AssetID:   a.ID,
			AssetName: a.Name,
			AssetType: a.Type,
			AssetSize: a.Size,
			CreatedAt: a.CreatedAt,
		})
	}

	if info, err := s.vector.CollectionInfo(ctx, s.collectionName(project.ID)); err == nil {
		details.VectorCount = info.VectorsCount
		details.PointsCount = info.PointsCount
		details.IsIndexed = true
	}
	return details, nil
}

// Delete drops the project's vector collection (best-effort) and cascades
// the database delete. Returns counts of what was removed.
func (s *ProjectService) Delete(ctx context.Context, userID, code int64) (*DeletedProject, error) {
	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	deleted := &DeletedProject{
		ProjectID:   project.ID,
		ProjectCode: project.Code,
		ProjectUUID: project.UUID.String(),
	}
	if count, err := s.assets.CountByProject(ctx, project.ID); err == nil {
		deleted.AssetCount = count
	}
	if count, err := s.chunks.TotalCount(ctx, project.ID); err == nil {
		deleted.ChunkCount = count
	}

	name := s.collectionName(project.ID)
	if _, err := s.vector.DeleteCollection(ctx, name); err != nil {
		s.logger.Warn("vector collection delete failed", zap.String("collection", name), zap.Error(err))
	}

	if err := s.projects.Delete(ctx, project.ID); err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	s.logger.Info("project deleted",
		zap.Int64("project_id", project.ID),
		zap.Int64("asset_count", deleted.AssetCount),
		zap.Int64("chunk_count", deleted.ChunkCount),
	)
	return deleted, nil
}
