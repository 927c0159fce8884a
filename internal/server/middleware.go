package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/hisaab/internal/accountcontext"
	obscontext "github.com/smallbiznis/hisaab/internal/observability/context"
)

// HeaderAccount names the owner account of a request. It stands in for an
// authenticated session.
const HeaderAccount = "X-Account-ID"

func AccountContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderAccount))
		accountID, err := snowflake.ParseString(raw)
		if raw == "" || err != nil || accountID <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := accountcontext.WithAccountID(c.Request.Context(), accountID)
		ctx = obscontext.WithAccountID(ctx, accountID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
