package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-orderdesk/internal/lifecycle"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
	"github.com/imrishuroy/go-orderdesk/internal/validation"
)

func statusFor(kind orders.ErrorKind) int {
	switch kind {
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// writeResult sends res with okStatus on success, or the status matching its error kind.
func writeResult(c *gin.Context, okStatus int, res lifecycle.Result) {
	if res.OK {
		c.JSON(okStatus, res)
		return
	}
	writeError(c, statusFor(res.ErrorKind), res.ErrorKind, res.Message)
}

func writeError(c *gin.Context, status int, kind orders.ErrorKind, msg string) {
	c.JSON(status, validation.ErrorBody{ErrorKind: kind, Message: msg})
}

// abandon answers a request whose client has already gone away. Nothing was changed.
func abandon(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"ok": false, "message": "request cancelled"})
}
