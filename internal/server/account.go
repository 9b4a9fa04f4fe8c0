package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/auth"
	"github.com/quarrylabs/ragserve/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func userView(u *store.User) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    u.ID,
		"user_uuid":  u.UUID.String(),
		"email":      u.Email,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt,
	}
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apierror.Wrap(apierror.ValidationError, err)
	}

	user, err := s.accounts.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "USER_REGISTERED", map[string]interface{}{
		"user": userView(user),
	})
}

// handleLogin accepts form credentials and returns a bearer token.
func (s *Server) handleLogin(c echo.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")
	if email == "" || password == "" {
		return apierror.New(apierror.ValidationError).WithDetails(map[string]interface{}{
			"reason": "username and password are required",
		})
	}

	result, err := s.accounts.Login(c.Request().Context(), email, password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "LOGIN_SUCCESS", map[string]interface{}{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
		"expires_at":   result.ExpiresAt,
		"user":         userView(result.User),
	})
}

func (s *Server) handleMe(c echo.Context) error {
	user := auth.CurrentUser(c)
	return respond(c, http.StatusOK, "USER_RETRIEVED", map[string]interface{}{
		"user": userView(user),
	})
}
