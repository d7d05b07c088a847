package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/accountd/internal/common"
)

// success writes the {message, data} envelope.
func success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"message": message, "data": data})
}

// failure writes the {message} envelope.
func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// writeError maps a flow error onto the wire. Unexpected errors are logged
// and surfaced as an opaque internal error.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *common.ValidationError

	switch {
	case errors.As(err, &verr):
		failure(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, common.ErrorDuplicateEmail) || errors.Is(err, common.ErrorEmailInUse):
		failure(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorInvalidCredentials):
		failure(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		// the authorized subject vanished from storage: a consistency
		// hiccup, not caller misuse
		failure(c, http.StatusInternalServerError, "user not found")
	default:
		s.logger.Error(c.Request.Context(), err.Error())
		failure(c, http.StatusInternalServerError, common.ErrorInternal.Error())
	}
}
