// Package server exposes the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/auth"
	"github.com/quarrylabs/ragserve/internal/config"
	"github.com/quarrylabs/ragserve/internal/service"
)

// Server wires the HTTP endpoints to the services.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	accounts  *service.AccountService
	projects  *service.ProjectService
	ingest    *service.IngestService
	retrieval *service.RetrievalService
	tokens    *auth.TokenManager
	users     auth.UserLoader
	logger    *zap.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.Config, accounts *service.AccountService, projects *service.ProjectService, ingest *service.IngestService, retrieval *service.RetrievalService, tokens *auth.TokenManager, users auth.UserLoader, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{
		echo:      e,
		cfg:       cfg,
		accounts:  accounts,
		projects:  projects,
		ingest:    ingest,
		retrieval: retrieval,
		tokens:    tokens,
		users:     users,
		logger:    logger,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/auth/register", s.handleRegister)
	s.echo.POST("/auth/login", s.handleLogin)

	authed := auth.Middleware(s.tokens, s.users)
	s.echo.GET("/auth/me", s.handleMe, authed)

	data := s.echo.Group("/api/v1/data", authed)
	data.GET("/projects", s.handleListProjects)
	data.POST("/projects/create/:project_code", s.handleCreateProject)
	data.GET("/projects/:project_code", s.handleProjectDetails)
	data.DELETE("/projects/:project_code", s.handleDeleteProject)
	data.POST("/upload/:project_code", s.handleUpload)
	data.POST("/process/:project_code", s.handleProcess)
	data.GET("/file/content/:project_code/:asset_id", s.handleFileContent)
	data.DELETE("/file/:project_code/:asset_id", s.handleDeleteFile)

	nlp := s.echo.Group("/api/v1/nlp", authed)
	nlp.POST("/index/push/:project_code", s.handleIndexPush)
	nlp.GET("/index/info/:project_code", s.handleIndexInfo)
	nlp.POST("/index/search/:project_code", s.handleSearch)
	nlp.POST("/index/answer/:project_code", s.handleAnswer)
}

// errorHandler renders every error through the envelope shape.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *apierror.Error
		if !errors.As(err, &apiErr) {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				code := apierror.ValidationError
				if httpErr.Code >= http.StatusInternalServerError {
					code = apierror.InternalError
				}
				apiErr = apierror.Wrap(code, err).WithStatus(httpErr.Code)
			} else {
				apiErr = apierror.Wrap(apierror.InternalError, err)
			}
		}

		if apiErr.HTTPStatus() >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}
		if jerr := c.JSON(apiErr.HTTPStatus(), apierror.NewErrorEnvelope(apiErr)); jerr != nil {
			logger.Error("error response write failed", zap.Error(jerr))
		}
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	AppName string `json:"app_name"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", AppName: s.cfg.AppName})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
