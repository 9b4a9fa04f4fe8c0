package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/auth"
)

type pushRequest struct {
	DoReset int `json:"do_reset"`
}

type searchRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

func (s *Server) handleIndexPush(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	var req pushRequest
	if err := c.Bind(&req); err != nil {
		return apierror.Wrap(apierror.ValidationError, err)
	}

	inserted, err := s.retrieval.IndexPush(c.Request().Context(), user.ID, code, req.DoReset == 1)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalVectorDBInsertSuccess, map[string]interface{}{
		"inserted_items_count": inserted,
	})
}

func (s *Server) handleIndexInfo(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	info, err := s.retrieval.IndexInfo(c.Request().Context(), user.ID, code)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalCollectionRetrieved, map[string]interface{}{
		"collection_info": info,
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return apierror.Wrap(apierror.ValidationError, err)
	}
	if req.Text == "" {
		return apierror.New(apierror.ValidationError).WithDetails(map[string]interface{}{
			"field": "text",
		})
	}

	docs, err := s.retrieval.Search(c.Request().Context(), user.ID, code, req.Text, req.Limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalSearchSuccess, map[string]interface{}{
		"results": docs,
		"count":   len(docs),
	})
}

func (s *Server) handleAnswer(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return apierror.Wrap(apierror.ValidationError, err)
	}
	if req.Text == "" {
		return apierror.New(apierror.ValidationError).WithDetails(map[string]interface{}{
			"field": "text",
		})
	}

	result, err := s.retrieval.Answer(c.Request().Context(), user.ID, code, req.Text, req.Limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalRAGAnswerSuccess, map[string]interface{}{
		"answer":           result.Answer,
		"full_prompt":      result.FullPrompt,
		"chat_history":     result.ChatHistory,
		"response_time_ms": result.ResponseTimeMS,
	})
}
