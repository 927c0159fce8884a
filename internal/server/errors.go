package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/composer"
	"github.com/smallbiznis/hisaab/internal/deeplink"
	followupdomain "github.com/smallbiznis/hisaab/internal/followup/domain"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	projectdomain "github.com/smallbiznis/hisaab/internal/project/domain"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	savingsdomain "github.com/smallbiznis/hisaab/internal/savings/domain"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/smallbiznis/hisaab/internal/validation"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

// bindingError reports binding tag failures per field; malformed bodies are a
// plain invalid request.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return validation.Describe(verrs)
	}
	return invalidRequestError()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErrs *validation.Errors
	if errors.As(err, &fieldErrs) && fieldErrs != nil {
		items := make([]ValidationError, 0, len(fieldErrs.Fields))
		for _, f := range fieldErrs.Fields {
			items = append(items, ValidationError{Field: f.Field, Code: f.Code, Message: f.Message})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  items,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, invoicedomain.ErrInvalidAccount),
		errors.Is(err, reminderdomain.ErrInvalidAccount),
		errors.Is(err, clientdomain.ErrInvalidAccount),
		errors.Is(err, projectdomain.ErrInvalidAccount),
		errors.Is(err, settingsdomain.ErrInvalidAccount),
		errors.Is(err, followupdomain.ErrInvalidAccount),
		errors.Is(err, savingsdomain.ErrInvalidAccount),
		errors.Is(err, messagelogdomain.ErrInvalidAccount):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, clientdomain.ErrClientInUse),
		errors.Is(err, projectdomain.ErrProjectInUse):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: operatorMessage(err),
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, invoicedomain.ErrInvalidTransition),
		errors.Is(err, reminderdomain.ErrReminderNotPending),
		errors.Is(err, reminderdomain.ErrInvoicePaid),
		errors.Is(err, reminderdomain.ErrInvoiceNotSent),
		errors.Is(err, followupdomain.ErrNotOverdue),
		errors.Is(err, followupdomain.ErrNotSent),
		errors.Is(err, followupdomain.ErrNothingToPay),
		errors.Is(err, savingsdomain.ErrInsufficientSaving):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, composer.ErrMissingWhatsApp),
		errors.Is(err, composer.ErrMissingEmail),
		errors.Is(err, followupdomain.ErrNoPayeeVPA):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "missing_contact",
			Message: operatorMessage(err),
		}
	case errors.Is(err, reminderdomain.ErrNoChannel):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "missing_contact",
			Message: "This client has no WhatsApp number or email address. Add one to send reminders.",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, invoicedomain.ErrNumberingBusy),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "Could not allocate an invoice number. Try creating the invoice again.",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code logged per request.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		if errors.Is(err, invoicedomain.ErrNumberingBusy) {
			return payload.Type, invoicedomain.ErrNumberingBusy.Error()
		}
		return payload.Type, "internal_error"
	case len(payload.Errors) > 0:
		return payload.Type, payload.Errors[0].Code
	default:
		return payload.Type, payload.Type
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidTransition):
		return "invoice status does not allow this action"
	case errors.Is(err, reminderdomain.ErrReminderNotPending):
		return "reminder was already sent or skipped"
	case errors.Is(err, reminderdomain.ErrInvoicePaid),
		errors.Is(err, followupdomain.ErrNothingToPay):
		return "invoice is already paid"
	case errors.Is(err, reminderdomain.ErrInvoiceNotSent),
		errors.Is(err, followupdomain.ErrNotSent):
		return "invoice has not been sent yet"
	case errors.Is(err, followupdomain.ErrNotOverdue):
		return "invoice is not overdue"
	case errors.Is(err, savingsdomain.ErrInsufficientSaving):
		return "withdrawal is larger than the saved amount"
	}
	return "conflict"
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// fieldSentinels maps request-shape errors to the field they concern.
var fieldSentinels = []struct {
	err   error
	field string
}{
	{ErrInvalidRequest, "request"},
	{clientdomain.ErrInvalidName, "name"},
	{clientdomain.ErrInvalidID, "id"},
	{projectdomain.ErrInvalidName, "name"},
	{projectdomain.ErrInvalidID, "id"},
	{projectdomain.ErrInvalidClient, "client_id"},
	{invoicedomain.ErrInvalidID, "id"},
	{invoicedomain.ErrInvalidClient, "client_id"},
	{invoicedomain.ErrInvalidProject, "project_id"},
	{invoicedomain.ErrInvalidStatus, "status"},
	{invoicedomain.ErrInvalidDates, "due_date"},
	{invoicedomain.ErrNoItems, "items"},
	{invoicedomain.ErrTotalsMismatch, "total_amount"},
	{invoicedomain.ErrInvalidPrefix, "prefix"},
	{invoicedomain.ErrSequenceExhausted, "prefix"},
	{reminderdomain.ErrInvalidID, "id"},
	{reminderdomain.ErrInvalidChannel, "channel"},
	{reminderdomain.ErrInvalidTime, "scheduled_at"},
	{reminderdomain.ErrReminderNotInFuture, "scheduled_at"},
	{followupdomain.ErrInvalidID, "id"},
	{composer.ErrInvalidFlow, "flow"},
	{messagelogdomain.ErrInvalidID, "related_id"},
	{messagelogdomain.ErrInvalidPageToken, "page_token"},
	{messagelogdomain.ErrInvalidEntry, "request"},
	{savingsdomain.ErrInvalidID, "id"},
	{savingsdomain.ErrInvalidName, "name"},
	{savingsdomain.ErrInvalidAmount, "amount"},
	{savingsdomain.ErrInvalidDate, "date"},
	{deeplink.ErrInvalidWhatsAppNumber, "whatsapp"},
	{deeplink.ErrInvalidEmail, "email"},
}

func validationErrorCode(err error) (string, bool) {
	for _, s := range fieldSentinels {
		if errors.Is(err, s.err) {
			return s.err.Error(), true
		}
	}
	return "", false
}

func validationErrorField(err error) string {
	for _, s := range fieldSentinels {
		if errors.Is(err, s.err) {
			return s.field
		}
	}
	return ""
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, reminderdomain.ErrNotFound),
		errors.Is(err, reminderdomain.ErrInvoiceNotFound),
		errors.Is(err, followupdomain.ErrNotFound),
		errors.Is(err, savingsdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// operatorMessage is the wording shown to the account owner for refusals they
// can fix themselves.
func operatorMessage(err error) string {
	switch {
	case errors.Is(err, clientdomain.ErrClientInUse):
		return "Cannot delete a client with existing projects or invoices. Delete or reassign them first."
	case errors.Is(err, projectdomain.ErrProjectInUse):
		return "Cannot delete a project with existing invoices. Delete or reassign them first."
	case errors.Is(err, composer.ErrMissingWhatsApp):
		return "This client has no WhatsApp number. Add one or send the reminder by email."
	case errors.Is(err, composer.ErrMissingEmail):
		return "This client has no email address. Add one or send the reminder on WhatsApp."
	case errors.Is(err, followupdomain.ErrNoPayeeVPA):
		return "Add a UPI ID in settings or on the client to show a payment QR."
	}
	return err.Error()
}
