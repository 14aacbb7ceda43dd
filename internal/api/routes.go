package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, s *server, idem IdempotencyStore) {
	router.GET("/health", handleHealth(s))
	router.GET("/metrics", handleMetrics())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Detail: "Not found."})
	})

	api := router.Group("/api", authenticate(s.db, s.issuer))

	user := api.Group("/user")
	user.POST("/register", handleRegister(s))
	user.POST("/token", handleToken(s))
	user.GET("/me", requireAuth(), handleMe(s))

	station := api.Group("/station", requireAuth())

	catalog := station.Group("", staffOrReadOnly())
	catalog.GET("/crew", handleCrewList(s))
	catalog.POST("/crew", handleCrewCreate(s))
	catalog.GET("/station", handleStationList(s))
	catalog.POST("/station", handleStationCreate(s))
	catalog.GET("/route", handleRouteList(s))
	catalog.POST("/route", handleRouteCreate(s))
	catalog.GET("/route/:id", handleRouteDetail(s))
	catalog.GET("/train_type", handleTrainTypeList(s))
	catalog.POST("/train_type", handleTrainTypeCreate(s))

	catalog.GET("/train", handleTrainList(s))
	catalog.POST("/train", handleTrainCreate(s))
	catalog.GET("/train/:id", handleTrainDetail(s))
	catalog.PUT("/train/:id", handleTrainUpdate(s))
	catalog.PATCH("/train/:id", handleTrainPatch(s))
	catalog.DELETE("/train/:id", handleTrainDelete(s))
	station.POST("/train/:id/upload-image", staffOnly(), handleTrainImage(s))

	catalog.GET("/journey", handleJourneyList(s))
	catalog.POST("/journey", handleJourneyCreate(s))
	catalog.GET("/journey/:id", handleJourneyDetail(s))
	catalog.PUT("/journey/:id", handleJourneyUpdate(s))
	catalog.PATCH("/journey/:id", handleJourneyPatch(s))
	catalog.DELETE("/journey/:id", handleJourneyDelete(s))

	station.GET("/order", handleOrderList(s))
	station.POST("/order", idempotent(idem), handleOrderCreate(s))
}

func handleHealth(s *server) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// render projects v for resource and op and writes it with status.
func (s *server) render(c *gin.Context, status int, resource, op string, v interface{}) {
	out, err := s.proj.project(resource, op, v)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(status, out)
}

// bindJSON decodes the request body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, bindError(err))
		return false
	}
	return true
}

var errNotFound = &apperr.Error{Kind: apperr.ErrNotFound, Detail: "Not found."}

// pathID parses the :id path parameter. A malformed id matches nothing.
func pathID(c *gin.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, errNotFound
	}
	return uint(n), nil
}

// queryID parses an optional integer id query parameter.
func queryID(c *gin.Context, key string) (*uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation(key, fmt.Sprintf("%s must be an integer id, got %q", key, raw))
	}
	id := uint(n)
	return &id, nil
}
