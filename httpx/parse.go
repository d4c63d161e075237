package httpx

import (
	"github.com/gin-gonic/gin"
)

// Parse binds path (uri tag), query (form tag) and JSON body (json tag).
// Path and query binding errors are ignored since most requests use only one
// of them; a malformed body is an error.
func Parse(c *gin.Context, req interface{}) error {
	_ = c.ShouldBindUri(req)
	_ = c.ShouldBindQuery(req)

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			return err
		}
	}
	return nil
}
