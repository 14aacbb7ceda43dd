// Package api serves the station REST API over gin.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/auth"
	"github.com/AntonKrinichnyi/trainstation/internal/media"
	"github.com/AntonKrinichnyi/trainstation/internal/notify"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the API handlers use. Notifier and
// Idempotency are optional.
type Deps struct {
	DB          *gorm.DB
	Issuer      *auth.Issuer
	Hasher      *auth.Hasher
	Store       *media.LocalStore
	Notifier    notify.Notifier
	Idempotency IdempotencyStore
	CORSOrigins []string
	PageSize    int
	MaxPageSize int
	// RequestLog receives one access log line per request; nil disables it.
	RequestLog io.Writer
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps
	Port int
	Out  io.Writer
}

type server struct {
	db       *gorm.DB
	issuer   *auth.Issuer
	hasher   *auth.Hasher
	store    *media.LocalStore
	notifier notify.Notifier
	pager    pager
	proj     *projector
}

func (d Deps) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("api: db is required")
	case d.Issuer == nil:
		return fmt.Errorf("api: token issuer is required")
	case d.Hasher == nil:
		return fmt.Errorf("api: password hasher is required")
	case d.Store == nil:
		return fmt.Errorf("api: media store is required")
	}
	return nil
}

// NewRouter builds the gin engine serving the API.
func NewRouter(d Deps) (*gin.Engine, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.PageSize <= 0 {
		d.PageSize = 15
	}
	if d.MaxPageSize < d.PageSize {
		d.MaxPageSize = d.PageSize
	}
	useJSONFieldNames()

	s := &server{
		db:       d.DB,
		issuer:   d.Issuer,
		hasher:   d.Hasher,
		store:    d.Store,
		notifier: d.Notifier,
		pager:    pager{size: d.PageSize, maxSize: d.MaxPageSize},
		proj:     &projector{db: d.DB, imageURL: d.Store.URL},
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID())
	if d.RequestLog != nil {
		router.Use(gin.LoggerWithWriter(d.RequestLog, "/health", "/metrics"))
	}
	router.Use(observe())
	router.Use(cors.New(corsConfig(d.CORSOrigins)))

	if strings.HasPrefix(d.Store.BaseURL, "/") {
		router.Static(strings.TrimSuffix(d.Store.BaseURL, "/"), d.Store.Dir)
	}
	registerRoutes(router, s, d.Idempotency)
	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", idempotencyHeader)
	cfg.ExposeHeaders = []string{replayHeader, requestIDHeader}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8000
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts.Deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Station API listening on http://localhost:%d/api\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
