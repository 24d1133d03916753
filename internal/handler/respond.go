package handler

import (
	"net/http"
	"strconv"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"

	"github.com/gin-gonic/gin"
)

// respondError writes the standardized error envelope. API errors keep
// their catalog code and status; anything else becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	if apiErr, ok := apierr.As(err); ok {
		c.JSON(apierr.Status(err), gin.H{"error": apiErr})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "detail": "Internal server error."}})
}

// pathID parses the named int64 path parameter, failing with a
// validation error.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, apierr.Newf(apierr.CodeValidation, "invalid %s", name))
		return 0, false
	}
	return id, true
}

// pageParams reads page/page_size query values; out-of-range values
// fall back to defaults rather than failing.
func pageParams(c *gin.Context) models.PageParams {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return models.PageParams{Page: page, PageSize: size}.Normalize()
}

// queryID reads an optional int64 query parameter, zero when absent.
func queryID(c *gin.Context, name string) int64 {
	id, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return id
}
