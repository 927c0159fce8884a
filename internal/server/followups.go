package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	followupdomain "github.com/smallbiznis/hisaab/internal/followup/domain"
)

type recordFollowUpRequest struct {
	Channel string `json:"channel" binding:"omitempty,oneof=whatsapp email"`
	Flow    string `json:"flow" binding:"omitempty,oneof=reminder follow_up"`
}

func (s *Server) ListFollowUpCandidates(c *gin.Context) {
	resp, err := s.followupSvc.Candidates(c.Request.Context(), strings.TrimSpace(c.Query("flow")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ComposeInvoiceReminder previews the standard reminder without logging it.
func (s *Server) ComposeInvoiceReminder(c *gin.Context) {
	resp, err := s.followupSvc.Reminder(c.Request.Context(), followupdomain.ComposeRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
		Channel:   strings.TrimSpace(c.Query("channel")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ComposeFollowUp(c *gin.Context) {
	resp, err := s.followupSvc.Compose(c.Request.Context(), followupdomain.ComposeRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
		Channel:   strings.TrimSpace(c.Query("channel")),
		Flow:      strings.TrimSpace(c.Query("flow")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RecordFollowUp is called once the operator has sent the message.
func (s *Server) RecordFollowUp(c *gin.Context) {
	var req recordFollowUpRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, bindingError(err))
			return
		}
	}

	resp, err := s.followupSvc.Record(c.Request.Context(), followupdomain.ComposeRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
		Channel:   req.Channel,
		Flow:      req.Flow,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
