// Package api serves the front end's JSON API on a loopback address.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0viii0viii/shelves/internal/logger"
	"github.com/0viii0viii/shelves/internal/migrator"
	"github.com/0viii0viii/shelves/internal/shell"
	"github.com/0viii0viii/shelves/internal/store"
)

// LinkSink receives deep links forwarded by a second invocation.
type LinkSink interface {
	Deliver(urls []string)
}

// Server routes requests to the store and the shell. Tray and Links may be
// nil, in which case their endpoints answer 503.
type Server struct {
	Store      *store.Store
	Runner     *migrator.Runner
	Migrations []migrator.Migration
	Tray       *shell.Tray
	Links      LinkSink
	Version    string
	Log        *logger.Logger
}

// Router builds the gin engine. Requests from non-loopback peers are refused.
func (s *Server) Router() *gin.Engine {
	if s.Log == nil {
		s.Log = logger.Discard()
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.loopbackOnly, s.accessLog)

	api := r.Group("/api")
	{
		api.GET("/status", s.status)
		api.POST("/deeplinks", s.deepLinks)
		api.POST("/tray/:id", s.trayItem)

		todos := api.Group("/todos")
		todos.GET("", s.listTodos)
		todos.POST("", s.createTodo)
		todos.DELETE("/completed", s.deleteCompletedTodos)
		todos.PATCH("/:id", s.updateTodo)
		todos.DELETE("/:id", s.deleteTodo)
		todos.POST("/:id/toggle", s.toggleTodo)

		notes := api.Group("/notes")
		notes.GET("", s.listNotes)
		notes.POST("", s.createNote)
		notes.PUT("/order", s.reorderNotes)
		notes.PATCH("/:id", s.updateNote)
		notes.DELETE("/:id", s.deleteNote)
		notes.PUT("/:id/lock", s.lockNote)
		notes.POST("/:id/unlock", s.unlockNote)
		notes.GET("/:id/memos", s.listMemos)
		notes.POST("/:id/memos", s.createMemo)
		notes.PUT("/:id/memos/order", s.reorderMemos)

		memos := api.Group("/memos")
		memos.PATCH("/:id", s.updateMemo)
		memos.DELETE("/:id", s.deleteMemo)
	}
	return r
}

// NewHTTPServer wraps the router for addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Shutdown stops srv, waiting at most timeout for open requests.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) loopbackOnly(c *gin.Context) {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "loopback clients only"})
		return
	}
	c.Next()
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.Log.Debug("request", map[string]any{
		"method":      c.Request.Method,
		"path":        c.FullPath(),
		"status":      c.Writer.Status(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

var errUnavailable = errors.New("not available in this process")

// fail writes err as {"error": code, "message": text}.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, shell.ErrUnknownMenuItem):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, store.ErrNoChanges):
		status, code = http.StatusBadRequest, "no_changes"
	case errors.Is(err, store.ErrWrongPassword):
		status, code = http.StatusUnauthorized, "wrong_password"
	case errors.Is(err, errUnavailable):
		status, code = http.StatusServiceUnavailable, "unavailable"
	}
	if status == http.StatusInternalServerError {
		s.Log.Error("request failed", map[string]any{"path": c.FullPath(), "error": err.Error()})
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": err.Error()})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
}

// id parses the :id path parameter, answering 400 when it is not a positive integer.
func (s *Server) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid id " + strconv.Quote(c.Param("id"))})
		return 0, false
	}
	return id, true
}
