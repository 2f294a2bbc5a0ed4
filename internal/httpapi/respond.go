package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops/internal/identity"
	"fieldops/internal/task"
)

// respondOK writes the success envelope: {"message": ..., "data": ...}.
func respondOK(c *gin.Context, code int, message string, data any) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

// respondErr writes the error envelope: {"message": ..., "error": true}.
func respondErr(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"message": message, "error": true})
}

func abortErr(c *gin.Context, code int, message string) {
	respondErr(c, code, message)
	c.Abort()
}

// failDomain maps a domain error to its wire status. Terminal-task
// violations are checked before the general state kind because the
// former wraps the latter.
func failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrTerminal):
		respondErr(c, http.StatusForbidden, "cannot modify completed tasks")
	case errors.Is(err, task.ErrNotFound):
		respondErr(c, http.StatusNotFound, err.Error())
	case errors.Is(err, task.ErrAuthorization):
		respondErr(c, http.StatusForbidden, err.Error())
	case errors.Is(err, task.ErrValidation), errors.Is(err, task.ErrState):
		respondErr(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrBadRequest):
		respondErr(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrUsernameTaken):
		respondErr(c, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrInvalidToken):
		respondErr(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrUserNotFound):
		respondErr(c, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrSelfDelete):
		respondErr(c, http.StatusForbidden, err.Error())
	default:
		respondErr(c, http.StatusInternalServerError, "internal server error")
	}
}
