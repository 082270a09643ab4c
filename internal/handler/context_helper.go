package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/middleware"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

type actorResolver interface {
	ResolveActor(ctx context.Context, userID string) (authz.Actor, error)
}

// currentClaims extracts the JWT claims set by the auth middleware.
func currentClaims(c *gin.Context) (*models.JWTClaims, error) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, appErrors.ErrUnauthorized
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// currentActor resolves the requesting user into an Actor, including the
// fresh role and location assignment from the database.
func currentActor(c *gin.Context, resolver actorResolver) (authz.Actor, error) {
	claims, err := currentClaims(c)
	if err != nil {
		return authz.Actor{}, err
	}
	return resolver.ResolveActor(c.Request.Context(), claims.UserID)
}
