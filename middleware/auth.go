package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = utils.UserIDKey
	// ContextPrincipalKey stores the resolved *models.Identity.
	ContextPrincipalKey = "principal"
	// ContextTokenKey stores the raw bearer token, needed for logout.
	ContextTokenKey = "token"
)

// PrincipalResolver turns a bearer token into an identity.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (*models.Identity, error)
}

// AuthRequired ensures the request carries a valid, unrevoked token of an existing user.
func AuthRequired(resolver PrincipalResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}
		if token == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		principal, err := resolver.ResolvePrincipal(ctx.Request.Context(), token)
		if err != nil {
			if services.KindOf(err) != services.KindUnauthenticated {
				utils.Error(ctx, http.StatusInternalServerError, 50001, "internal server error")
				ctx.Abort()
				return
			}
			ctx.Header("WWW-Authenticate", "Bearer")
			if errors.Is(err, services.ErrTokenRevoked) {
				utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			} else {
				utils.Error(ctx, http.StatusUnauthorized, 40105, "could not validate credentials")
			}
			ctx.Abort()
			return
		}

		setPrincipal(ctx, principal, token)
		ctx.Next()
	}
}

// AuthOptional resolves the principal when a usable token is present and
// otherwise continues anonymously. A bad token never fails the request.
func AuthOptional(resolver PrincipalResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token, ok := bearerToken(ctx.GetHeader("Authorization")); ok && token != "" {
			if principal, err := resolver.ResolvePrincipal(ctx.Request.Context(), token); err == nil {
				setPrincipal(ctx, principal, token)
			}
		}
		ctx.Next()
	}
}

// Principal returns the identity resolved for this request, nil when anonymous.
func Principal(ctx *gin.Context) *models.Identity {
	if v, ok := ctx.Get(ContextPrincipalKey); ok {
		if p, ok := v.(*models.Identity); ok {
			return p
		}
	}
	return nil
}

// Token returns the bearer token of an authenticated request.
func Token(ctx *gin.Context) string {
	return ctx.GetString(ContextTokenKey)
}

func setPrincipal(ctx *gin.Context, principal *models.Identity, token string) {
	ctx.Set(ContextPrincipalKey, principal)
	ctx.Set(ContextUserIDKey, principal.ID)
	ctx.Set(ContextTokenKey, token)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
