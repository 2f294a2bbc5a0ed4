// Package httpapi exposes the coordination server over HTTP: auth,
// task lifecycle, sync, reports, and the websocket upgrade that feeds
// the realtime registry.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops/internal/identity"
	"fieldops/internal/realtime"
	"fieldops/internal/report"
	"fieldops/internal/store"
	"fieldops/internal/task"
)

const actorKey = "fieldops.actor"

// Server wires the HTTP surface over the domain services.
type Server struct {
	identity *identity.Service
	tasks    *task.Service
	store    *store.Store
	reports  *report.Generator
	registry *realtime.Registry
}

// New assembles the HTTP server.
func New(ident *identity.Service, tasks *task.Service, st *store.Store, reports *report.Generator, registry *realtime.Registry) *Server {
	return &Server{
		identity: ident,
		tasks:    tasks,
		store:    st,
		reports:  reports,
		registry: registry,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.GET("/users", s.requireAuth, s.requireDispatcher, s.handleListUsers)
	auth.DELETE("/users/:id", s.requireAuth, s.requireDispatcher, s.handleDeleteUser)

	tasks := api.Group("/tasks", s.requireAuth)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("", s.handleListTasks)
	tasks.GET("/sync", s.handleSync)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PATCH("/:id", s.handlePatchTask)
	tasks.GET("/:id/logs", s.handleTaskLogs)

	api.GET("/generate-report", s.requireAuth, s.requireDispatcher, s.handleGenerateReport)
	api.GET("/reports", s.requireAuth, s.handleListReports)
	api.GET("/reports/:filename", s.requireAuth, s.handleDownloadReport)

	r.GET("/ws", s.handleWebsocket)

	return r
}

// requireAuth resolves the bearer token to an actor and stores it in
// the request context. Missing or bad tokens abort with 401.
func (s *Server) requireAuth(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		abortErr(c, http.StatusUnauthorized, "missing authorization token")
		return
	}
	actor, err := s.identity.Authenticate(token)
	if err != nil {
		abortErr(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	c.Set(actorKey, actor)
	c.Next()
}

// requireDispatcher gates administrative endpoints.
func (s *Server) requireDispatcher(c *gin.Context) {
	if actorFrom(c).Role != task.RoleDispatcher {
		abortErr(c, http.StatusForbidden, "dispatcher role required")
		return
	}
	c.Next()
}

func actorFrom(c *gin.Context) task.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(task.Actor)
	return actor
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
