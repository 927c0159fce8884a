package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	savingsdomain "github.com/smallbiznis/hisaab/internal/savings/domain"
)

type createSavingsGoalRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	TargetAmount int64  `json:"target_amount" binding:"gt=0"`
	TargetDate   string `json:"target_date"`
}

// Negative amounts are withdrawals.
type addSavingsEntryRequest struct {
	Amount    int64  `json:"amount" binding:"required"`
	Note      string `json:"note" binding:"omitempty,max=500"`
	EntryDate string `json:"entry_date"`
}

func (s *Server) CreateSavingsGoal(c *gin.Context) {
	var req createSavingsGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.savingsSvc.CreateGoal(c.Request.Context(), savingsdomain.CreateGoalRequest{
		Name:         strings.TrimSpace(req.Name),
		TargetAmount: req.TargetAmount,
		TargetDate:   strings.TrimSpace(req.TargetDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSavingsGoals(c *gin.Context) {
	resp, err := s.savingsSvc.ListGoals(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSavingsGoal(c *gin.Context) {
	resp, err := s.savingsSvc.GetGoal(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSavingsEntries(c *gin.Context) {
	resp, err := s.savingsSvc.ListEntries(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddSavingsEntry(c *gin.Context) {
	var req addSavingsEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	entry, progress, err := s.savingsSvc.AddEntry(c.Request.Context(), savingsdomain.AddEntryRequest{
		GoalID:    strings.TrimSpace(c.Param("id")),
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		EntryDate: strings.TrimSpace(req.EntryDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"entry": entry,
		"goal":  progress,
	}})
}
