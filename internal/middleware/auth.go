package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/authz"
	"github.com/harentsoaR/vetclinic-api/internal/models"
)

// Context keys of the resolved identities. Each kind has its own key so a
// client can never be read back as staff.
const (
	ContextStaff  = "staff"
	ContextClient = "client"
)

// Resolver turns a session token into an identity of one kind.
type Resolver[T models.Identity] interface {
	Resolve(ctx context.Context, token string) (T, error)
}

// Authenticate requires a bearer session token of the resolver's kind and
// stores the resolved identity under key.
func Authenticate[T models.Identity](r Resolver[T], key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		identity, err := r.Resolve(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(key, identity)
		c.Next()
	}
}

func StaffAuth(r Resolver[*models.StaffIdentity]) gin.HandlerFunc {
	return Authenticate[*models.StaffIdentity](r, ContextStaff)
}

func ClientAuth(r Resolver[*models.ClientIdentity]) gin.HandlerFunc {
	return Authenticate[*models.ClientIdentity](r, ContextClient)
}

// RequireRoles lets through active staff whose role is in roles. It must run
// after StaffAuth.
func RequireRoles(roles authz.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, _ := StaffFrom(c)
		if err := authz.HasRole(staff, roles); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func StaffFrom(c *gin.Context) (*models.StaffIdentity, bool) {
	return identityFrom[*models.StaffIdentity](c, ContextStaff)
}

func ClientFrom(c *gin.Context) (*models.ClientIdentity, bool) {
	return identityFrom[*models.ClientIdentity](c, ContextClient)
}

func identityFrom[T models.Identity](c *gin.Context, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	identity, ok := v.(T)
	return identity, ok
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.Unauthorized("authorization header required")
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apperr.Unauthorized("malformed authorization header")
	}
	return token, nil
}
