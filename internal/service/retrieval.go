package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/llm"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/templates"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

const (
	indexPageSize      = 50
	defaultSearchLimit = 5
)

// RetrievalService pushes chunks into the vector index and answers questions
// over them.
type RetrievalService struct {
	projects      ProjectStore
	chunks        ChunkStore
	queryLogs     QueryLogStore
	vector        VectorStore
	embedder      llm.Provider
	generator     llm.Provider
	templates     *templates.Registry
	embeddingSize int
	logger        *zap.Logger
}

// NewRetrievalService creates a RetrievalService.
func NewRetrievalService(projects ProjectStore, chunks ChunkStore, queryLogs QueryLogStore, vector VectorStore, embedder, generator llm.Provider, tmpl *templates.Registry, embeddingSize int, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		projects:      projects,
		chunks:        chunks,
		queryLogs:     queryLogs,
		vector:        vector,
		embedder:      embedder,
		generator:     generator,
		templates:     tmpl,
		embeddingSize: embeddingSize,
		logger:        logger,
	}
}

// ProviderEmbedder adapts an llm.Provider to the chunker's embedding
// dependency.
type ProviderEmbedder struct {
	Provider llm.Provider
}

// EmbedTexts embeds texts as documents.
func (e ProviderEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return e.Provider.Embed(ctx, texts, llm.EmbedDocument)
}

func (s *RetrievalService) collectionName(projectID int64) string {
	return vectorstore.CollectionName(s.embeddingSize, projectID)
}

func (s *RetrievalService) requireEmbedder() error {
	if !s.embedder.Available() {
		return apierror.New(apierror.NLPServiceUnavailable)
	}
	return nil
}

// IndexPush embeds the project's chunks and upserts them into its vector
// collection, a page at a time. With reset the collection is recreated first.
func (s *RetrievalService) IndexPush(ctx context.Context, userID, code int64, reset bool) (int, error) {
	if err := s.requireEmbedder(); err != nil {
		return 0, err
	}

	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return 0, err
	}

	name := s.collectionName(project.ID)
	if _, err := s.vector.CreateCollection(ctx, name, s.embeddingSize, reset); err != nil {
		return 0, apierror.Wrap(apierror.VectorDBConnectionFailed, err)
	}

	inserted := 0
	for page := 1; ; page++ {
		chunks, err := s.chunks.GetPage(ctx, project.ID, page, indexPageSize)
		if err != nil {
			return inserted, apierror.Wrap(apierror.InternalError, err)
		}
		if len(chunks) == 0 {
			break
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := s.embedder.Embed(ctx, texts, llm.EmbedDocument)
		if err != nil {
			if errors.Is(err, llm.ErrUnavailable) {
				return inserted, apierror.Wrap(apierror.NLPServiceUnavailable, err)
			}
			return inserted, apierror.Wrap(apierror.VectorDBInsertFailed, err)
		}

		records := make([]vectorstore.Record, len(chunks))
		for i, c := range chunks {
			metadata := make(map[string]interface{}, len(c.Metadata)+3)
			for k, v := range c.Metadata {
				metadata[k] = v
			}
			metadata["asset_id"] = c.AssetID
			metadata["project_id"] = c.ProjectID
			metadata["chunk_id"] = c.ID
			records[i] = vectorstore.Record{
				ID:       c.ID,
				Text:     c.Text,
				Vector:   vectors[i],
				Metadata: metadata,
			}
		}
		if err := s.vector.InsertMany(ctx, name, records); err != nil {
			return inserted, apierror.Wrap(apierror.VectorDBInsertFailed, err)
		}
		inserted += len(records)
	}

	s.logger.Info("index push complete",
		zap.Int64("project_id", project.ID),
		zap.String("collection", name),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}

// IndexInfo returns metadata about the project's vector collection.
func (s *RetrievalService) IndexInfo(ctx context.Context, userID, code int64) (*vectorstore.CollectionInfo, error) {
	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	info, err := s.vector.CollectionInfo(ctx, s.collectionName(project.ID))
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, apierror.New(apierror.VectorDBCollectionNotFound).WithDetails(map[string]interface{}{
				"collection_name": s.collectionName(project.ID),
			})
		}
		return nil, apierror.Wrap(apierror.VectorDBConnectionFailed, err)
	}
	return info, nil
}

// Search embeds the query and returns the closest chunks. An empty result is
// an error so callers can distinguish it from a successful retrieval.
func (s *RetrievalService) Search(ctx context.Context, userID, code int64, text string, limit int) ([]vectorstore.RetrievedDocument, error) {
	if err := s.requireEmbedder(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	project, err := resolveProject(ctx, s.projects, userID, code)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{text}, llm.EmbedQuery)
	if err != nil || len(vectors) == 0 {
		if errors.Is(err, llm.ErrUnavailable) {
			return nil, apierror.Wrap(apierror.NLPServiceUnavailable, err)
		}
		return nil, apierror.Wrap(apierror.VectorDBSearchFailed, err)
	}

	docs, err := s.vector.SearchByVector(ctx, s.collectionName(project.ID), vectors[0], limit)
	if err != nil {
		return nil, apierror.Wrap(apierror.VectorDBSearchFailed, err)
	}
	if len(docs) == 0 {
		return nil, apierror.New(apierror.VectorDBSearchFailed)
	}
	return docs, nil
}

// AnswerResult is the outcome of a RAG answer.
type AnswerResult struct {
	Answer         string        `json:"answer"`
	FullPrompt     string        `json:"full_prompt"`
	ChatHistory    []llm.Message `json:"chat_history"`
	ResponseTimeMS float64       `json:"response_time_ms"`
}

// Answer retrieves the chunks closest to the question, assembles the prompt
// from the configured templates, and generates an answer. Successful answers
// are logged for auditing; failures are not.
func (s *RetrievalService) Answer(ctx context.Context, userID, code int64, question string, limit int) (*AnswerResult, error) {
	if !s.generator.Available() {
		return nil, apierror.New(apierror.NLPServiceUnavailable)
	}
	started := time.Now()

	docs, err := s.Search(ctx, userID, code, question, limit)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := s.templates.Get("rag", "system_prompt", nil)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	blocks := make([]string, 0, len(docs))
	for i, doc := range docs {
		block, err := s.templates.Get("rag", "document_prompt", map[string]string{
			"doc_num":    strconv.Itoa(i + 1),
			"chunk_text": s.generator.NormalizeText(doc.Text),
		})
		if err != nil {
			return nil, apierror.Wrap(apierror.InternalError, err)
		}
		blocks = append(blocks, block)
	}

	footer, err := s.templates.Get("rag", "footer_prompt", map[string]string{
		"query": question,
	})
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	history := []llm.Message{{Role: s.generator.SystemRole(), Content: systemPrompt}}
	fullPrompt := strings.Join(blocks, "\n") + "\n\n" + footer

	answer, err := s.generator.Generate(ctx, fullPrompt, history)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			return nil, apierror.Wrap(apierror.NLPServiceUnavailable, err)
		}
		return nil, apierror.Wrap(apierror.NLPGenerationFailed, err)
	}
	if answer == "" {
		return nil, apierror.New(apierror.NLPGenerationFailed)
	}

	elapsed := float64(time.Since(started).Microseconds()) / 1000.0

	if err := s.queryLogs.Insert(ctx, &store.QueryLog{
		UserID:         userID,
		Question:       question,
		Response:       answer,
		ResponseTimeMS: elapsed,
	}); err != nil {
		s.logger.Warn("query log insert failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	return &AnswerResult{
		Answer:         answer,
		FullPrompt:     fullPrompt,
		ChatHistory:    history,
		ResponseTimeMS: elapsed,
	}, nil
}
