package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/auth"
	"github.com/quarrylabs/ragserve/internal/service"
)

// paramInt64 parses a path parameter as a positive integer.
func paramInt64(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, apierror.New(apierror.ValidationError).WithDetails(map[string]interface{}{
			"param": name,
			"value": c.Param(name),
		})
	}
	return v, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return v
}

func (s *Server) handleListProjects(c echo.Context) error {
	user := auth.CurrentUser(c)
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 10)

	result, err := s.projects.List(c.Request().Context(), user.ID, page, pageSize)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalProjectsRetrieved, map[string]interface{}{
		"projects":     result.Projects,
		"page":         result.Page,
		"page_size":    result.PageSize,
		"total_pages":  result.TotalPages,
		"total_count":  result.TotalCount,
		"has_next":     result.HasNext,
		"has_previous": result.HasPrevious,
		"user_info": map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		},
	})
}

func (s *Server) handleCreateProject(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	project, err := s.projects.Create(c.Request().Context(), user.ID, code)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, signalProjectCreated, map[string]interface{}{
		"project": map[string]interface{}{
			"project_id":   project.ID,
			"project_code": project.Code,
			"project_uuid": project.UUID.String(),
		},
	})
}

func (s *Server) handleProjectDetails(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	details, err := s.projects.Details(c.Request().Context(), user.ID, code)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalProjectDetailsRetrieved, map[string]interface{}{
		"project": details,
	})
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	deleted, err := s.projects.Delete(c.Request().Context(), user.ID, code)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalProjectDeleted, map[string]interface{}{
		"deleted_project": deleted,
	})
}

func (s *Server) handleUpload(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	header, err := c.FormFile("file")
	if err != nil {
		return apierror.Wrap(apierror.ValidationError, err).WithDetails(map[string]interface{}{
			"reason": "multipart field 'file' is required",
		})
	}
	src, err := header.Open()
	if err != nil {
		return apierror.Wrap(apierror.FileUploadFailed, err)
	}
	defer src.Close()

	asset, err := s.ingest.Upload(c.Request().Context(), user.ID, code, &service.UploadedFile{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   src,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalFileUploadSuccess, map[string]interface{}{
		"file_id": strconv.FormatInt(asset.ID, 10),
	})
}

func (s *Server) handleProcess(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}

	var req service.ProcessRequest
	if err := c.Bind(&req); err != nil {
		return apierror.Wrap(apierror.ValidationError, err)
	}

	result, err := s.ingest.Process(c.Request().Context(), user.ID, code, req)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"inserted_chunks": result.InsertedChunks,
		"processed_files": result.ProcessedFiles,
		"total_files":     result.TotalFiles,
		"failed_files":    result.FailedFiles,
	}
	if len(result.FailedFiles) > 0 {
		data["warning"] = "some files could not be processed"
	}
	return respond(c, http.StatusOK, signalProcessingSuccess, data)
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}
	assetID, err := paramInt64(c, "asset_id")
	if err != nil {
		return err
	}

	deleted, err := s.ingest.DeleteAsset(c.Request().Context(), user.ID, code, assetID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalFileDeleted, map[string]interface{}{
		"deleted_file": deleted,
	})
}

func (s *Server) handleFileContent(c echo.Context) error {
	user := auth.CurrentUser(c)
	code, err := paramInt64(c, "project_code")
	if err != nil {
		return err
	}
	assetID, err := paramInt64(c, "asset_id")
	if err != nil {
		return err
	}

	content, err := s.ingest.FileContent(c.Request().Context(), user.ID, code, assetID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, signalFileContentRetrieved, map[string]interface{}{
		"file_name":      content.FileName,
		"file_size":      content.FileSize,
		"content":        content.Content,
		"content_length": content.ContentLength,
	})
}
