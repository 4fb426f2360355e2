package restful

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"devdb/pkg/common/logger"
)

// Server wraps gin.Engine with graceful shutdown support
type Server struct {
	Engine      *gin.Engine
	httpServer  *http.Server
	listener    net.Listener
	addr        string
	shutdownDur time.Duration
}

// Option pattern for server configuration
type Option func(*Server)

func WithAddress(addr string) Option             { return func(s *Server) { s.addr = addr } }
func WithShutdownTimeout(d time.Duration) Option { return func(s *Server) { s.shutdownDur = d } }

// NewServer creates a new RESTful server instance
func NewServer(opts ...Option) *Server {
	g := gin.New()
	g.Use(RecoveryWithLogger())
	g.Use(RequestLogger())
	// direct gin internal output to zerolog
	gin.DefaultWriter = zerologWriter{}
	gin.DefaultErrorWriter = zerologWriter{}

	s := &Server{
		Engine:      g,
		addr:        ":8080",
		shutdownDur: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// zerologWriter adapts gin's writer to zerolog
type zerologWriter struct{}

func (zerologWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		logger.WithComponent("http").Info().Msg(msg)
	}
	return len(p), nil
}

// RecoveryWithLogger routes recovered panics to zerolog
func RecoveryWithLogger() gin.HandlerFunc {
	return gin.RecoveryWithWriter(zerologWriter{})
}

// Start binds the listener and serves in the background. Bind errors are
// returned to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithComponent("http").Error().Err(err).Msg("server error")
		}
	}()
	logger.WithComponent("http").Info().Str("addr", ln.Addr().String()).Msg("REST server started")
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.shutdownDur)
	defer cancel()
	return s.httpServer.Shutdown(ctxTimeout)
}

// RequestLogger logs basic request info
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithComponent("http").Info().
			Int("status", c.Writer.Status()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
