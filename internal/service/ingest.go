package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/chunker"
	"github.com/quarrylabs/ragserve/internal/config"
	"github.com/quarrylabs/ragserve/internal/parser"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

const (
	randomKeyLength = 12
	randomKeyChars  = "abcdefghijklmnopqrstuvwxyz0123456789"

	defaultChunkSize     = 100
	defaultOverlapSize   = 20
	chunkInsertBatchSize = 100
)

var filenameCleanser = regexp.MustCompile(`[^A-Za-z0-9_.]`)

// IngestService handles file upload, parsing and chunking.
type IngestService struct {
	cfg      *config.Config
	projects ProjectStore
	assets   AssetStore
	chunks   ChunkStore
	vector   VectorStore
	splitter *chunker.Splitter
	logger   *zap.Logger
}

// NewIngestService creates an IngestService.
func NewIngestService(cfg *config.Config, projects ProjectStore, assets AssetStore, chunks ChunkStore, vector VectorStore, splitter *chunker.Splitter, logger *zap.Logger) *IngestService {
	return &IngestService{
		cfg:      cfg,
		projects: projects,
		assets:   assets,
		chunks:   chunks,
		vector:   vector,
		splitter: splitter,
		logger:   logger,
	}
}

// UploadedFile describes an incoming file.
type UploadedFile struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// CleanFileName strips characters other than letters, digits, underscore and
// dot, after turning spaces into underscores.
func CleanFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return filenameCleanser.ReplaceAllString(name, "")
}

func randomKey(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(randomKeyChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = randomKeyChars[idx.Int64()]
	}
	return string(b), nil
}

// projectDir is where a project's uploaded files live on disk.
func (s *IngestService) projectDir(projectID int64) string {
	return filepath.Join(s.cfg.FileStoragePath, "projects", strconv.FormatInt(projectID, 10))
}

// uniqueFilePath prefixes the cleansed name with a fresh random key, rerolling
// until the path does not collide with an existing file.
func (s *IngestService) uniqueFilePath(projectID int64, origName string) (path, name string, err error) {
	dir := s.projectDir(projectID)
	cleaned := CleanFileName(origName)
	for {
		key, err := randomKey(randomKeyLength)
		if err != nil {
			return "", "", err
		}
		name = key + "_" + cleaned
		path = filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, name, nil
		}
	}
}

func (s *IngestService) validateUpload(file *UploadedFile) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	if file.Filename == "" || !s.cfg.AllowedType(ext) {
		return apierror.New(apierror.FileTypeNotSupported).WithDetails(map[string]interface{}{
			"file_name":     file.Filename,
			"allowed_types": s.cfg.FileAllowedTypes,
		})
	}
	if file.Size > s.cfg.FileMaxSize {
		return apierror.New(apierror.FileSizeExceeded).WithDetails(map[string]interface{}{
			"file_name":     file.Filename,
			"file_size":     file.Size,
			"max_file_size": s.cfg.FileMaxSize,
		})
	}
	return nil
}

// Upload validates and stores one file for the user's project, creating the
// project on first use. Returns the recorded asset; its id is the handle
// later processing calls refer to.
func (s *IngestService) Upload(ctx context.Context, userID, code int64, file *UploadedFile) (*store.Asset, error) {
	if err := s.validateUpload(file); err != nil {
		return nil, err
	}

	project, err := s.projects.GetOrCreate(ctx, userID, code)
	if err != nil {
		return nil, apierror.Wrap(apierror.ProjectCreationFailed, err)
	}

	if err := os.MkdirAll(s.projectDir(project.ID), 0o755); err != nil {
		return nil, apierror.Wrap(apierror.FileUploadFailed, err)
	}
	path, name, err := s.uniqueFilePath(project.ID, file.Filename)
	if err != nil {
		return nil, apierror.Wrap(apierror.FileUploadFailed, err)
	}

	written, err := s.writeFile(path, file.Reader)
	if err != nil {
		return nil, apierror.Wrap(apierror.FileUploadFailed, err)
	}

	asset, err := s.assets.Insert(ctx, project.ID, store.AssetTypeFile, name, written)
	if err != nil {
		os.Remove(path)
		return nil, apierror.Wrap(apierror.FileUploadFailed, err)
	}

	s.logger.Info("file uploaded",
		zap.Int64("project_id", project.ID),
		zap.Int64("asset_id", asset.ID),
		zap.String("asset_name", name),
		zap.Int64("asset_size", written),
	)
	return asset, nil
}

// writeFile streams the upload to disk in fixed-size increments, removing the
// partial file on any error.
func (s *IngestService) writeFile(path string, r io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, s.cfg.FileDefaultChunkSize)
	written, err := io.CopyBuffer(out, r, buf)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return written, nil
}

// ProcessRequest selects what to process and how to chunk it.
type ProcessRequest struct {
	FileID      string `json:"file_id"`
	ChunkSize   int    `json:"chunk_size"`
	OverlapSize int    `json:"overlap_size"`
	DoReset     int    `json:"do_reset"`
	Method      string `json:"chunking_method"`
}

// FailedFile reports one file that could not be processed.
type FailedFile struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// ProcessResult summarizes a processing run.
type ProcessResult struct {
	InsertedChunks int          `json:"inserted_chunks"`
	ProcessedFiles int          `json:"processed_files"`
	TotalFiles     int          `json:"total_files"`
	FailedFiles    []FailedFile `json:"failed_files"`
}

func (r *ProcessRequest) applyDefaults() {
	if r.ChunkSize <= 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.OverlapSize < 0 {
		r.OverlapSize = defaultOverlapSize
	}
	if r.Method == "" {
		r.Method = chunker.MethodSemantic
	}
}

// resolveAssets picks the assets a processing request targets. A file_id is
// matched against asset names first and numeric asset ids second; an empty
// file_id selects every file asset in the project.
func (s *IngestService) resolveAssets(ctx context.Context, projectID int64, fileID string) ([]store.Asset, error) {
	if fileID == "" {
		assets, err := s.assets.ListByType(ctx, projectID, store.AssetTypeFile)
		if err != nil {
			return nil, apierror.Wrap(apierror.InternalError, err)
		}
		return assets, nil
	}

	asset, err := s.assets.GetByName(ctx, projectID, fileID)
	if err == nil {
		return []store.Asset{*asset}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	if id, perr := strconv.ParseInt(fileID, 10, 64); perr == nil {
		asset, err = s.assets.GetByID(ctx, id, projectID)
		if err == nil {
			return []store.Asset{*asset}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apierror.Wrap(apierror.InternalError, err)
		}
	}
	return nil, apierror.New(apierror.FileNotFound).WithDetails(map[string]interface{}{
		"file_id": fileID,
	})
}

// Process parses and chunks the project's files. Individual file failures are
// collected rather than aborting the run.
func (s *IngestService) Process(ctx context.Context, userID, code int64, req ProcessRequest) (*ProcessResult, error) {
	req.applyDefaults()

	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	assets, err := s.resolveAssets(ctx, project.ID, req.FileID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, apierror.New(apierror.ProcessingNoFiles)
	}

	if req.DoReset == 1 {
		name := vectorstore.CollectionName(s.cfg.EmbeddingModelSize, project.ID)
		if _, err := s.vector.DeleteCollection(ctx, name); err != nil {
			s.logger.Warn("vector collection reset failed", zap.String("collection", name), zap.Error(err))
		}
		removed, err := s.chunks.DeleteByProject(ctx, project.ID)
		if err != nil {
			return nil, apierror.Wrap(apierror.ProcessingFailed, err)
		}
		s.logger.Info("chunks reset", zap.Int64("project_id", project.ID), zap.Int64("removed", removed))
	}

	result := &ProcessResult{TotalFiles: len(assets), FailedFiles: []FailedFile{}}
	for i := range assets {
		asset := &assets[i]
		inserted, err := s.processAsset(ctx, project.ID, asset, req)
		if err != nil {
			s.logger.Warn("file processing failed",
				zap.Int64("project_id", project.ID),
				zap.String("asset_name", asset.Name),
				zap.Error(err),
			)
			result.FailedFiles = append(result.FailedFiles, FailedFile{
				FileID:   strconv.FormatInt(asset.ID, 10),
				FileName: asset.Name,
				Error:    err.Error(),
			})
			continue
		}
		result.InsertedChunks += inserted
		result.ProcessedFiles++
	}
	return result, nil
}

func (s *IngestService) processAsset(ctx context.Context, projectID int64, asset *store.Asset, req ProcessRequest) (int, error) {
	docs, err := parser.Parse(filepath.Join(s.projectDir(projectID), asset.Name))
	if err != nil {
		return 0, err
	}

	texts := make([]string, 0, len(docs))
	metadatas := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
		metadatas = append(metadatas, d.Metadata)
	}

	pieces := s.splitter.Split(ctx, req.Method, texts, metadatas, chunker.Options{
		ChunkSize:   req.ChunkSize,
		OverlapSize: req.OverlapSize,
	})
	if len(pieces) == 0 {
		return 0, fmt.Errorf("no text content in %s", asset.Name)
	}

	rows := make([]store.Chunk, 0, len(pieces))
	for i, p := range pieces {
		rows = append(rows, store.Chunk{
			ProjectID: projectID,
			AssetID:   asset.ID,
			Text:      p.Text,
			Metadata:  p.Metadata,
			Order:     i + 1,
		})
	}
	return s.chunks.InsertMany(ctx, rows, chunkInsertBatchSize)
}

// DeletedAsset reports what an asset deletion removed.
type DeletedAsset struct {
	AssetID        int64  `json:"asset_id"`
	AssetName      string `json:"asset_name"`
	DeletedChunks  int    `json:"deleted_chunks"`
	DeletedVectors int64  `json:"deleted_vectors"`
}

// DeleteAsset removes one stored file: its vectors, its chunks (cascaded at
// the database level), its database row, and the file on disk. Vector
// removal prefers a metadata filter on the asset id and falls back to
// explicit chunk id enumeration when the backend cannot filter.
func (s *IngestService) DeleteAsset(ctx context.Context, userID, code, assetID int64) (*DeletedAsset, error) {
	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.GetByID(ctx, assetID, project.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.New(apierror.FileNotFound).WithDetails(map[string]interface{}{
				"asset_id": assetID,
			})
		}
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	chunkIDs, err := s.chunks.IDsByAsset(ctx, project.ID, asset.ID)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	name := vectorstore.CollectionName(s.cfg.EmbeddingModelSize, project.ID)
	deletedVectors := int64(0)
	if exists, err := s.vector.CollectionExists(ctx, name); err == nil && exists {
		deletedVectors, err = s.vector.DeleteByFilter(ctx, name, vectorstore.Filter{AssetID: asset.ID})
		if err != nil {
			s.logger.Warn("vector delete by filter failed, falling back to ids",
				zap.String("collection", name), zap.Error(err))
			if len(chunkIDs) > 0 {
				if err := s.vector.DeleteByIDs(ctx, name, chunkIDs); err != nil {
					s.logger.Warn("vector delete by ids failed", zap.String("collection", name), zap.Error(err))
				} else {
					deletedVectors = int64(len(chunkIDs))
				}
			}
		}
	}

	if err := s.assets.DeleteByID(ctx, asset.ID, project.ID); err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}
	if err := os.Remove(filepath.Join(s.projectDir(project.ID), asset.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("stored file removal failed", zap.String("asset_name", asset.Name), zap.Error(err))
	}

	s.logger.Info("asset deleted",
		zap.Int64("project_id", project.ID),
		zap.Int64("asset_id", asset.ID),
		zap.Int("deleted_chunks", len(chunkIDs)),
		zap.Int64("deleted_vectors", deletedVectors),
	)
	return &DeletedAsset{
		AssetID:        asset.ID,
		AssetName:      asset.Name,
		DeletedChunks:  len(chunkIDs),
		DeletedVectors: deletedVectors,
	}, nil
}

// FileContentResult is the parsed view of one stored file.
type FileContentResult struct {
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
}

// FileContent parses a stored file on demand and returns its extracted text.
func (s *IngestService) FileContent(ctx context.Context, userID, code, assetID int64) (*FileContentResult, error) {
	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.GetByID(ctx, assetID, project.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.New(apierror.FileNotFound).WithDetails(map[string]interface{}{
				"asset_id": assetID,
			})
		}
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	docs, err := parser.Parse(filepath.Join(s.projectDir(project.ID), asset.Name))
	if err != nil {
		return nil, apierror.Wrap(apierror.FileProcessingFailed, err)
	}

	pages := make([]string, 0, len(docs))
	for _, d := range docs {
		pages = append(pages, d.Text)
	}
	content := strings.Join(pages, "\n")

	return &FileContentResult{
		FileName:      asset.Name,
		FileSize:      asset.Size,
		Content:       content,
		ContentLength: len(content),
	}, nil
}
