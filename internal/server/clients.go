package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
)

type createClientRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	WhatsApp      string `json:"whatsapp" binding:"omitempty,indian_mobile"`
	Email         string `json:"email" binding:"omitempty,email"`
	GSTIN         string `json:"gstin" binding:"omitempty,gstin"`
	UPIVPA        string `json:"upi_vpa" binding:"omitempty,upi_vpa"`
	Address       string `json:"address"`
	SuggestedHour string `json:"suggested_hour" binding:"omitempty,hhmm"`
}

type updateClientRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=200"`
	WhatsApp      *string `json:"whatsapp"`
	Email         *string `json:"email"`
	GSTIN         *string `json:"gstin"`
	UPIVPA        *string `json:"upi_vpa"`
	Address       *string `json:"address"`
	SuggestedHour *string `json:"suggested_hour"`
}

func (s *Server) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.clientSvc.Create(c.Request.Context(), clientdomain.CreateClientRequest{
		Name:          strings.TrimSpace(req.Name),
		WhatsApp:      strings.TrimSpace(req.WhatsApp),
		Email:         strings.TrimSpace(req.Email),
		GSTIN:         strings.TrimSpace(req.GSTIN),
		UPIVPA:        strings.TrimSpace(req.UPIVPA),
		Address:       strings.TrimSpace(req.Address),
		SuggestedHour: strings.TrimSpace(req.SuggestedHour),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdateClient leaves pointer fields to the service, which validates cleared
// and changed values alike.
func (s *Server) UpdateClient(c *gin.Context) {
	var req updateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.clientSvc.Update(c.Request.Context(), clientdomain.UpdateClientRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		Name:          req.Name,
		WhatsApp:      req.WhatsApp,
		Email:         req.Email,
		GSTIN:         req.GSTIN,
		UPIVPA:        req.UPIVPA,
		Address:       req.Address,
		SuggestedHour: req.SuggestedHour,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListClients(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.List(c.Request.Context(), clientdomain.ListClientRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetClientByID(c *gin.Context) {
	resp, err := s.clientSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteClient(c *gin.Context) {
	if err := s.clientSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
