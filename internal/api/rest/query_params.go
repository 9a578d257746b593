package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/varus-ledger/internal/domain"
)

const MAX_PAGE_SIZE = 100

// ListTokensQueryParams holds query parameters for GET /tokens
type ListTokensQueryParams struct {
	// From is the lowest token id included in the page
	From  uint64 `form:"from,default=0"`
	Limit int    `form:"limit,default=20"`
}

// ParseListTokensQuery parses and caps query parameters for GET /tokens
func ParseListTokensQuery(c *gin.Context) (*ListTokensQueryParams, error) {
	var params ListTokensQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// parseTokenID parses the :id path parameter
func parseTokenID(c *gin.Context) (domain.TokenID, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return domain.TokenID(id), true
}
