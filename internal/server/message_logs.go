package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
)

func (s *Server) ListMessageLogs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		RelatedType string `form:"related_type"`
		RelatedID   string `form:"related_id"`
		Channel     string `form:"channel"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messageLog.List(c.Request.Context(), messagelogdomain.ListMessageLogRequest{
		Pagination:  query.Pagination,
		RelatedType: strings.TrimSpace(query.RelatedType),
		RelatedID:   strings.TrimSpace(query.RelatedID),
		Channel:     strings.TrimSpace(query.Channel),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
