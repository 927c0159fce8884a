package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
)

const maxDueReminders = 200

type scheduleReminderRequest struct {
	Channel   string `json:"channel" binding:"omitempty,oneof=whatsapp email"`
	TimeOfDay string `json:"time_of_day" binding:"omitempty,hhmm"`
}

// rescheduleReminderRequest takes an RFC 3339 instant, or a calendar date
// with an HH:MM time in the app timezone.
type rescheduleReminderRequest struct {
	ScheduledAt string `json:"scheduled_at"`
	Date        string `json:"date"`
	Time        string `json:"time" binding:"omitempty,hhmm"`
}

func (s *Server) ScheduleReminder(c *gin.Context) {
	var req scheduleReminderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, bindingError(err))
			return
		}
	}

	resp, err := s.reminderSvc.Schedule(c.Request.Context(), reminderdomain.ScheduleReminderRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
		Channel:   req.Channel,
		TimeOfDay: req.TimeOfDay,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoiceReminders(c *gin.Context) {
	resp, err := s.reminderSvc.ListByInvoice(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDueReminders(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	if limit == 0 || limit > maxDueReminders {
		limit = maxDueReminders
	}

	resp, err := s.reminderSvc.ListDue(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RescheduleReminder(c *gin.Context) {
	var req rescheduleReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	scheduledAt, err := parseOptionalTime(req.ScheduledAt)
	if err != nil {
		AbortWithError(c, newValidationError("scheduled_at", "invalid_scheduled_at", "scheduled_at must be an RFC 3339 time"))
		return
	}

	resp, err := s.reminderSvc.Reschedule(c.Request.Context(), reminderdomain.RescheduleReminderRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		ScheduledAt: scheduledAt,
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SendReminderNow composes the message and marks the reminder sent; the
// client opens the returned link to actually deliver it.
func (s *Server) SendReminderNow(c *gin.Context) {
	resp, err := s.reminderSvc.SendNow(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SkipReminder(c *gin.Context) {
	resp, err := s.reminderSvc.Skip(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
