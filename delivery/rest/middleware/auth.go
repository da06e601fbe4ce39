package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"todoflow/auth"
	"todoflow/delivery/rest/response"
)

// OwnerKey is the gin context key holding the authenticated owner id
const OwnerKey = "owner"

// Auth validates the bearer token and puts its owner into the request
// context. Browsers cannot set headers on a websocket handshake, so a
// "token" query parameter is accepted as well.
func Auth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if errors.Is(err, auth.ErrMissingToken) {
			if q := c.Query("token"); q != "" {
				raw, err = q, nil
			}
		}
		if err != nil {
			response.ErrorWithMessage(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			response.ErrorWithMessage(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		owner := claims.Owner()
		c.Set(OwnerKey, owner)
		c.Request = c.Request.WithContext(auth.WithOwner(c.Request.Context(), owner))
		c.Next()
	}
}

// Owner returns the owner set by Auth
func Owner(c *gin.Context) (string, bool) {
	return auth.OwnerFromContext(c.Request.Context())
}
