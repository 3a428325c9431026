package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProblemContentType is the media type of error responses.
const ProblemContentType = "application/problem+json"

// ProblemDetails is an RFC 7807 error body.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", pd.Status, pd.Title, pd.Detail)
}

// writeProblem aborts the request with a problem+json body.
func writeProblem(c *gin.Context, status int, detail string) {
	pd := &ProblemDetails{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	}
	body, err := json.Marshal(pd)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, ProblemContentType, body)
	c.Abort()
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, http.StatusBadRequest, detail)
}

func notFound(c *gin.Context, detail string) {
	writeProblem(c, http.StatusNotFound, detail)
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	writeProblem(c, http.StatusInternalServerError, err.Error())
}
