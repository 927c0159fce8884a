package composer

import (
	"strings"
	"text/template"
)

// Template names double as MessageLog.template_used.
const (
	templateReminderText  = "reminder_whatsapp"
	templateReminderEmail = "reminder_email"
)

func followUpTemplate(tone Tone, email bool) string {
	if email {
		return "follow_up_" + string(tone) + "_email"
	}
	return "follow_up_" + string(tone) + "_whatsapp"
}

var templates = template.Must(template.New("messages").Parse(`
{{define "reminder_whatsapp"}}{{if .Paid}}Hi {{.ClientName}}, invoice {{.InvoiceNumber}} for {{.Amount}} is {{.DuePhrase}}. Thank you for the payment!
{{else}}Hi {{.ClientName}}, this is a friendly reminder that invoice {{.InvoiceNumber}} for {{.Amount}} is {{.DuePhrase}}.
{{if .UPIIntent}}
Pay via UPI: {{.UPIIntent}}
{{end}}
Thank you!{{end}}{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}

{{define "reminder_email"}}Hi {{.ClientName}},

{{if .Paid}}We have received payment for invoice {{.InvoiceNumber}} of {{.Amount}}. Thank you!{{else}}This is a reminder that invoice {{.InvoiceNumber}} for {{.Amount}} is {{.DuePhrase}}.
{{if .UPIIntent}}
You can pay instantly via UPI: {{.UPIIntent}}
{{end}}
Thank you!{{end}}
{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}

{{define "follow_up_gentle_whatsapp"}}Hi {{.ClientName}}, just a gentle nudge about invoice {{.InvoiceNumber}} for {{.Amount}}, which is {{.DuePhrase}}.{{if .UPIIntent}} Whenever convenient, you can pay here: {{.UPIIntent}}{{end}}

Thanks!{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}

{{define "follow_up_professional_whatsapp"}}Hello {{.ClientName}}, invoice {{.InvoiceNumber}} for {{.Amount}} is now {{.DuePhrase}}. Please arrange the payment at the earliest.{{if .UPIIntent}}
Pay via UPI: {{.UPIIntent}}{{end}}

Regards,{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}

{{define "follow_up_firm_whatsapp"}}Dear {{.ClientName}}, invoice {{.InvoiceNumber}} for {{.Amount}} remains unpaid and is {{.DuePhrase}}. Please clear it immediately or share the expected payment date.{{if .UPIIntent}}
Pay via UPI: {{.UPIIntent}}{{end}}{{if .BusinessName}}

{{.BusinessName}}{{end}}{{end}}

{{define "follow_up_gentle_email"}}Hi {{.ClientName}},

Just a gentle reminder that invoice {{.InvoiceNumber}} for {{.Amount}} is {{.DuePhrase}}. If it has already been paid, please ignore this note.
{{if .UPIIntent}}
You can pay via UPI: {{.UPIIntent}}
{{end}}
Thanks!{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}

{{define "follow_up_professional_email"}}Hello {{.ClientName}},

Invoice {{.InvoiceNumber}} for {{.Amount}}, originally due on {{.DueDate}}, is now {{.DuePhrase}}. Please arrange the payment at the earliest.
{{if .UPIIntent}}
Pay via UPI: {{.UPIIntent}}
{{end}}
Regards,{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}

{{define "follow_up_firm_email"}}Dear {{.ClientName}},

Invoice {{.InvoiceNumber}} for {{.Amount}}, due on {{.DueDate}}, remains unpaid and is {{.DuePhrase}}. Please clear the outstanding amount immediately or reply with the expected payment date.
{{if .UPIIntent}}
Pay via UPI: {{.UPIIntent}}
{{end}}{{if .BusinessName}}
{{.BusinessName}}{{end}}{{end}}
`))

func render(name string, data templateData) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
