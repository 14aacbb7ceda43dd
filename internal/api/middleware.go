package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/auth"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	userKey         = "station.user"
	requestIDKey    = "station.request_id"
	requestIDHeader = "X-Request-ID"
)

// requestID tags each request with the caller's X-Request-ID, or a fresh
// UUID, and echoes it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// authenticate resolves a bearer token to a user and stores it on the
// context. Requests without an Authorization header pass through
// anonymous; a present but invalid token is rejected.
func authenticate(gdb *gorm.DB, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, apperr.Unauthenticated("authorization header must be \"Bearer <token>\""))
			return
		}
		claims, err := issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}
		// Staff status is read from the store so revocation applies at once.
		user, err := auth.GetUser(gdb, claims.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			abortWithError(c, apperr.Unauthenticated("token does not identify a user"))
			return
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// currentUser returns the authenticated user, or nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			abortWithError(c, apperr.Unauthenticated("Authentication credentials were not provided."))
			return
		}
		c.Next()
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// staffOrReadOnly lets any authenticated user read and only staff write.
func staffOrReadOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if u := currentUser(c); u == nil || !u.IsStaff {
			abortWithError(c, apperr.Forbidden("You do not have permission to perform this action."))
			return
		}
		c.Next()
	}
}

func staffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := currentUser(c); u == nil || !u.IsStaff {
			abortWithError(c, apperr.Forbidden("You do not have permission to perform this action."))
			return
		}
		c.Next()
	}
}
