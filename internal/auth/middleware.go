package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/store"
)

// contextUserKey is the echo context key holding the authenticated user.
const contextUserKey = "auth_user"

// UserLoader fetches users during authentication.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*store.User, error)
}

// Middleware authenticates requests with a Bearer token and stores the user
// in the request context. Inactive users are rejected.
func Middleware(tokens *TokenManager, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return apierror.New(apierror.AuthInvalidToken)
			}

			userID, err := tokens.Parse(token)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					return apierror.Wrap(apierror.AuthTokenExpired, err)
				}
				return apierror.Wrap(apierror.AuthInvalidToken, err)
			}

			user, err := users.GetByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return apierror.New(apierror.AuthInvalidToken)
				}
				return apierror.Wrap(apierror.InternalError, err)
			}
			if !user.IsActive {
				return apierror.New(apierror.AuthInactiveUser)
			}

			c.Set(contextUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user set by Middleware, or nil.
func CurrentUser(c echo.Context) *store.User {
	user, _ := c.Get(contextUserKey).(*store.User)
	return user
}
