package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charpstar/pipeline-backend/internal/platform/apierr"
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondError renders err through apierr so unrecognised failures never leak
// their cause.
func RespondError(c *gin.Context, err error) {
	ae := apierr.FromError(err)
	if ae == nil {
		ae = apierr.FromError(errUnknown)
	}
	c.JSON(ae.Status, ErrorBody{Error: ae.Error(), Code: ae.Code})
}

// RespondErrorWith renders err with extra fields merged into the body.
func RespondErrorWith(c *gin.Context, err error, extra gin.H) {
	ae := apierr.FromError(err)
	if ae == nil {
		ae = apierr.FromError(errUnknown)
	}
	body := gin.H{"error": ae.Error(), "code": ae.Code}
	for k, v := range extra {
		if _, taken := body[k]; !taken {
			body[k] = v
		}
	}
	c.JSON(ae.Status, body)
}

func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

type unknownError struct{}

func (unknownError) Error() string { return "unknown error" }

var errUnknown error = unknownError{}
