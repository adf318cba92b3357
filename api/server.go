// Package api serves the namespace operations over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

// NewRouter builds the gin engine. Path parameters may carry "/" when
// percent-encoded, e.g. /cat/docs%2Freadme.txt.
func NewRouter(op memfs.Operator, metrics *Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.Use(gin.RecoveryWithWriter(util.NewLogWriter("API.Recovery", util.ErrorLevel)))
	r.Use(requestID())
	r.Use(accessLog())
	r.Use(metrics.Middleware())

	h := NewHandler(op)
	r.POST("/mkdir/:name", h.Mkdir)
	r.POST("/cd", h.Cd)
	r.GET("/pwd", h.Pwd)
	r.GET("/ls", h.Ls)
	r.POST("/grep/:file/:pattern", h.Grep)
	r.GET("/cat/:file", h.Cat)
	r.POST("/touch/:file", h.Touch)
	r.POST("/echo/:file", h.Echo)
	r.POST("/mv/:source/:destination", h.Mv)
	r.POST("/cp/:source/:destination", h.Cp)
	r.POST("/rm/:path", h.Rm)
	r.GET("/find", h.Find)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// Server is the HTTP front-end
type Server struct {
	srv *http.Server
}

// NewServer creates a server for op listening on addr
func NewServer(addr string, op memfs.Operator) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(op, NewMetrics()),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          util.NewLogLogger("API.HTTP", util.WarnLevel),
		},
	}
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	logger := util.GetLogger("API.Serve")
	logger.Info().Str("addr", ln.Addr().String()).Msg("Serving HTTP API")

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
