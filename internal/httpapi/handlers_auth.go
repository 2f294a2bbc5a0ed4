package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldops/internal/task"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := s.identity.Register(req.Username, req.Password, task.Role(req.Role))
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "user registered", gin.H{"user": u, "token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := s.identity.Login(req.Username, req.Password)
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "login successful", gin.H{"user": u, "token": token})
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.identity.ListUsers(task.Role(c.Query("role")))
	if err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "users retrieved", gin.H{"users": users})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondErr(c, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.identity.Delete(id, actorFrom(c).ID); err != nil {
		failDomain(c, err)
		return
	}
	respondOK(c, http.StatusOK, "user deleted", nil)
}
