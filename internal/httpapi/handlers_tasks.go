package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldops/internal/task"
)

func (s *Server) handleCreateTask(c *gin.Context) {
	var draft task.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondErr(c, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.tasks.Create(draft, actorFrom(c))
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "task created", gin.H{"task": t})
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		failDomain(c, err)
		return
	}
	version, err := s.store.CurrentVersion()
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "tasks retrieved", gin.H{"tasks": tasks, "version": version})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	t, err := s.store.GetTask(id)
	if err != nil {
		failDomain(c, err)
		return
	}
	if t == nil {
		respondErr(c, http.StatusNotFound, "task not found")
		return
	}
	logs, err := s.store.TaskLogs(id)
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "task retrieved", gin.H{"task": t, "logs": logs})
}

func (s *Server) handlePatchTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var patch task.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondErr(c, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.tasks.Transition(id, patch, actorFrom(c))
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "task updated", gin.H{"task": t})
}

func (s *Server) handleTaskLogs(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	t, err := s.store.GetTask(id)
	if err != nil {
		failDomain(c, err)
		return
	}
	if t == nil {
		respondErr(c, http.StatusNotFound, "task not found")
		return
	}
	logs, err := s.store.TaskLogs(id)
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "task logs retrieved", gin.H{"logs": logs})
}

// handleSync implements delta-free reconciliation: clients report the
// last version they saw; an unparseable or absent version counts as 0
// and forces a full resend.
func (s *Server) handleSync(c *gin.Context) {
	clientVersion, err := strconv.ParseInt(c.Query("version"), 10, 64)
	if err != nil {
		clientVersion = 0
	}

	version, err := s.store.CurrentVersion()
	if err != nil {
		failDomain(c, err)
		return
	}
	if clientVersion == version {
		c.Status(http.StatusNotModified)
		return
	}

	tasks, err := s.store.ListTasks()
	if err != nil {
		failDomain(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version, "needs_sync": true, "tasks": tasks})
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondErr(c, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}
