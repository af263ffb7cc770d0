package httperr

import (
	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Reason string `json:"reason,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	AbortWithReason(c, status, err, "", msg, detail)
}

// AbortWithReason attaches a machine-readable reason (SoldOut, PaymentDeclined, ...) for the UI.
func AbortWithReason(c *gin.Context, status int, err error, reason, msg string, detail any) {
	if err == nil {
		panic("AbortWithReason: err cannot be nil")
	}

	resp := Response{Status: status, Reason: reason}
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}
