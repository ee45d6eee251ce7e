package handlers

import (
	"context"
	"net/http"
	"strings"

	"mystore/internal/policy"
	"mystore/internal/services"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// PrincipalResolver turns a bearer token into the calling identity.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*services.Identity, error)
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided"})
			return
		}
		if !resolve(c, resolver, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves a token when one is sent and lets anonymous requests through.
// A token that is sent but invalid is still rejected.
func OptionalAuth(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" && !resolve(c, resolver, token) {
			return
		}
		c.Next()
	}
}

func resolve(c *gin.Context, resolver PrincipalResolver, token string) bool {
	identity, err := resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return false
	}
	c.Set(identityKey, identity)
	return true
}

// bearerToken accepts "Bearer <token>" and "Token <token>".
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(token)
	}
	return ""
}

func currentIdentity(c *gin.Context) *services.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*services.Identity)
	return identity
}

// currentPrincipal returns the caller of a RequireAuth route.
func currentPrincipal(c *gin.Context) policy.Principal {
	if identity := currentIdentity(c); identity != nil {
		return identity.Principal
	}
	return policy.Principal{}
}

// optionalPrincipal returns nil for anonymous callers.
func optionalPrincipal(c *gin.Context) *policy.Principal {
	if identity := currentIdentity(c); identity != nil {
		p := identity.Principal
		return &p
	}
	return nil
}
