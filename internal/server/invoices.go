package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	"github.com/smallbiznis/hisaab/pkg/db/pagination"
)

type invoiceItemRequest struct {
	Title string  `json:"title" binding:"required,max=500"`
	Qty   float64 `json:"qty" binding:"gt=0"`
	Rate  int64   `json:"rate" binding:"gte=0"`
}

// Amounts are paise.
type createInvoiceRequest struct {
	ClientID    string               `json:"client_id" binding:"required"`
	ProjectID   string               `json:"project_id"`
	Prefix      string               `json:"prefix"`
	IssueDate   string               `json:"issue_date"`
	DueDate     string               `json:"due_date"`
	Status      string               `json:"status" binding:"omitempty,oneof=draft sent"`
	Items       []invoiceItemRequest `json:"items" binding:"dive"`
	GSTPercent  *float64             `json:"gst_percent" binding:"omitempty,gte=0,lte=100"`
	Subtotal    *int64               `json:"subtotal"`
	GSTAmount   *int64               `json:"gst_amount"`
	TotalAmount *int64               `json:"total_amount"`
}

type markPaidRequest struct {
	PaidDate     string `json:"paid_date"`
	UTRReference string `json:"utr_reference" binding:"omitempty,max=64"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	items := make([]invoicedomain.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, invoicedomain.ItemInput{
			Title: strings.TrimSpace(item.Title),
			Qty:   item.Qty,
			Rate:  item.Rate,
		})
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		ClientID:    strings.TrimSpace(req.ClientID),
		ProjectID:   strings.TrimSpace(req.ProjectID),
		Prefix:      strings.TrimSpace(req.Prefix),
		IssueDate:   strings.TrimSpace(req.IssueDate),
		DueDate:     strings.TrimSpace(req.DueDate),
		Status:      invoicedomain.Status(strings.TrimSpace(req.Status)),
		Items:       items,
		GSTPercent:  req.GSTPercent,
		Subtotal:    req.Subtotal,
		GSTAmount:   req.GSTAmount,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    strings.TrimSpace(query.Status),
		ClientID:  strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SendInvoice moves a draft to sent and schedules the standard reminders.
// Warnings list offsets that could not be scheduled.
func (s *Server) SendInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	var req markPaidRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, bindingError(err))
			return
		}
	}

	resp, err := s.invoiceSvc.MarkPaid(c.Request.Context(), invoicedomain.MarkPaidRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		PaidDate:     strings.TrimSpace(req.PaidDate),
		UTRReference: strings.TrimSpace(req.UTRReference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceUPIQR(c *gin.Context) {
	size, err := parseOptionalInt(c.Query("size"))
	if err != nil || size > 1024 {
		AbortWithError(c, newValidationError("size", "invalid_size", "size must be between 1 and 1024"))
		return
	}

	png, err := s.followupSvc.PaymentQR(c.Request.Context(), strings.TrimSpace(c.Param("id")), size)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
