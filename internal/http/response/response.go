package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/integration-engine/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAggregateError maps a write-boundary error onto its HTTP status. Internal errors
// never leak their message.
func RespondAggregateError(c *gin.Context, err error) {
	api := apierr.FromAggregate(err)
	if api == nil {
		RespondError(c, http.StatusInternalServerError, "internal", nil)
		return
	}
	if api.Status >= http.StatusInternalServerError && api.Status != http.StatusServiceUnavailable {
		_ = c.Error(err)
		c.JSON(api.Status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: api.Code}})
		return
	}
	RespondError(c, api.Status, api.Code, api.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
