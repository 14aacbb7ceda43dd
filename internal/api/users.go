package api

import (
	"net/http"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/auth"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Access    string    `json:"access"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleRegister creates a non-staff user. Staff accounts are created
// from the command line.
func handleRegister(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := auth.CreateUser(s.db, s.hasher, auth.UserOpts{Email: req.Email, Password: req.Password})
		if err != nil {
			abortWithError(c, err)
			return
		}
		s.render(c, http.StatusCreated, "user", opWrite, user)
	}
}

func handleToken(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenRequest
		if !bindJSON(c, &req) {
			return
		}
		user, err := auth.Authenticate(s.db, s.hasher, req.Email, req.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}
		token, exp, err := s.issuer.Issue(*user)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, tokenResponse{Access: token, TokenType: "Bearer", ExpiresAt: exp})
	}
}

func handleMe(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.render(c, http.StatusOK, "user", opRetrieve, currentUser(c))
	}
}
