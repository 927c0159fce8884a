package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
)

type saveSettingsRequest struct {
	CreatorDisplayName *string  `json:"creator_display_name" binding:"omitempty,max=120"`
	CompanyName        *string  `json:"company_name" binding:"omitempty,max=200"`
	GSTIN              *string  `json:"gstin" binding:"omitempty,gstin"`
	CompanyAddress     *string  `json:"company_address"`
	FooterMessage      *string  `json:"footer_message"`
	InvoicePrefix      *string  `json:"invoice_prefix" binding:"omitempty,max=10"`
	DefaultGSTPercent  *float64 `json:"default_gst_percent" binding:"omitempty,gte=0,lte=100"`
	UPIVPA             *string  `json:"upi_vpa" binding:"omitempty,upi_vpa"`
	LogoURL            *string  `json:"logo_url" binding:"omitempty,max=2048"`
}

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaveSettings(c *gin.Context) {
	var req saveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.settingsSvc.Save(c.Request.Context(), settingsdomain.UpdateSettingsRequest{
		CreatorDisplayName: req.CreatorDisplayName,
		CompanyName:        req.CompanyName,
		GSTIN:              req.GSTIN,
		CompanyAddress:     req.CompanyAddress,
		FooterMessage:      req.FooterMessage,
		InvoicePrefix:      req.InvoicePrefix,
		DefaultGSTPercent:  req.DefaultGSTPercent,
		UPIVPA:             req.UPIVPA,
		LogoURL:            req.LogoURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
