package templates

import (
	"fmt"
	"html"
	"strings"
)

// ReportEmailData holds the report fields shown in report emails
type ReportEmailData struct {
	ReportID     string
	Category     string
	Department   string
	Location     string
	UrgencyLevel string
	Status       string
	Description  string
}

func detailsTable(d ReportEmailData) string {
	rows := []struct{ label, value string }{
		{"Report ID", d.ReportID},
		{"Category", d.Category},
		{"Department", d.Department},
		{"Location", d.Location},
		{"Urgency", d.UrgencyLevel},
		{"Status", d.Status},
		{"Description", d.Description},
	}
	var b strings.Builder
	b.WriteString(`<table class="details">`)
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		fmt.Fprintf(&b, `<tr><td class="label">%s</td><td>%s</td></tr>`, r.label, html.EscapeString(r.value))
	}
	b.WriteString(`</table>`)
	return b.String()
}

// RenderOTPEmail generates the HTML for account verification and password reset codes
func RenderOTPEmail(name, otp, purpose string, validMinutes int) string {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>Use the code below to %s. It expires in %d minutes.</p>
      <div class="highlight-box"><div class="code">%s</div></div>
      <p style="color: #6b7280; font-size: 14px;">If you did not request this, you can ignore this email.</p>`,
		html.EscapeString(name), html.EscapeString(purpose), validMinutes, html.EscapeString(otp))
	return layout("Your verification code", "Your verification code", body)
}

// RenderReportReceivedEmail confirms to a citizen that their report was filed
func RenderReportReceivedEmail(name string, d ReportEmailData) string {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>Thank you for reporting an issue in your area. Your report has been routed to the <strong>%s</strong> department.</p>
      %s
      <p>You earned good citizen points for this report.</p>`,
		html.EscapeString(name), html.EscapeString(d.Department), detailsTable(d))
	return layout("Report received", "Report received", body)
}

// RenderReportRoutedEmail tells a citizen their report reached a department admin
func RenderReportRoutedEmail(name, adminName string, d ReportEmailData) string {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>Your report is now being handled by <strong>%s</strong> of the %s department.</p>
      %s`,
		html.EscapeString(name), html.EscapeString(adminName), html.EscapeString(d.Department), detailsTable(d))
	return layout("Your report is in progress", "Your report is in progress", body)
}

// RenderWorkerAssignedEmail tells a citizen which worker is handling their report
func RenderWorkerAssignedEmail(name, workerName string, d ReportEmailData) string {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>A field worker, <strong>%s</strong>, has been assigned to your report.</p>
      %s`,
		html.EscapeString(name), html.EscapeString(workerName), detailsTable(d))
	return layout("A worker has been assigned", "A worker has been assigned", body)
}

// RenderNewAssignmentEmail tells a worker about a report assigned to them
func RenderNewAssignmentEmail(workerName string, d ReportEmailData) string {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
      <p>You have a new assignment.</p>
      %s
      <div class="highlight-box">Please update the report status once the issue is resolved.</div>`,
		html.EscapeString(workerName), detailsTable(d))
	return layout("New assignment", "New assignment", body)
}
