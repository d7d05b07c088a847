// Package httpapi exposes the account flows over HTTP and gates the
// protected routes behind the bearer-token authorizer.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/accountd/internal/logging"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/users"
	"github.com/dmitrijs2005/accountd/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address   string
	users     *services.UserService
	directory users.Repository
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, us *services.UserService, directory users.Repository, secretKey string) *Server {
	return &Server{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		directory: directory,
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the gin engine with the public and token-gated routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ping", s.Ping)
	r.POST("/register", s.Register)
	r.POST("/login", s.Login)

	authorized := r.Group("/", s.Authorize())
	authorized.GET("/user", s.GetUser)
	authorized.PUT("/user", s.UpdateUser)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
