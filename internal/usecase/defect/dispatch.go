package defectops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

// dispatchAlert hands a critical defect to the alerter without blocking the
// ingest caller. No recipient at all is a recorded non-fatal outcome; delivery
// failures are logged and swallowed.
func (s *Service) dispatchAlert(ctx context.Context, d ports.Defect, station *ports.Station) {
	recipient := s.fallbackRecipient
	locationName := stringOrUnknown(d.NearestStation)
	if station != nil {
		recipient = station.ContactEmail
		locationName = station.Name
	}

	if strings.TrimSpace(recipient) == "" {
		logging.Warn(ctx, "no alert recipient available, alert skipped",
			slog.Uint64("defect_id", d.DefectID))
		return
	}

	alert := ports.Alert{
		Recipient: recipient,
		Subject:   fmt.Sprintf("CRITICAL: Railway Defect at %s", locationName),
		TextBody:  alertTextBody(d, locationName),
		HTMLBody:  alertHTMLBody(d, locationName),
	}

	// Detached from the request: the HTTP response must not wait on delivery.
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.alerter.Send(bgCtx, alert); err != nil {
			logging.Error(bgCtx, "alert delivery failed",
				slog.Uint64("defect_id", d.DefectID),
				slog.String("recipient", recipient),
				slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(bgCtx, "alert delivered",
			slog.Uint64("defect_id", d.DefectID),
			slog.String("recipient", recipient))
	}()
}

func alertTextBody(d ports.Defect, locationName string) string {
	var b strings.Builder
	b.WriteString("CRITICAL DEFECT DETECTED\n\n")
	fmt.Fprintf(&b, "Type: %s\n", d.DefectType)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", d.Confidence)
	fmt.Fprintf(&b, "Location: %s, %s (Near %s)\n",
		floatOrUnknown(d.Latitude), floatOrUnknown(d.Longitude), locationName)
	fmt.Fprintf(&b, "Detected: %s\n\n", d.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "SEVERITY: %s\n\n", d.Severity)
	fmt.Fprintf(&b, "IMMEDIATE ACTION REQUIRED:\n%s\n\n", d.ActionRequired)
	fmt.Fprintf(&b, "RESOLUTION STEPS:\n%s\n\n", d.ResolutionSteps)
	if d.ImageRef != "" {
		fmt.Fprintf(&b, "Evidence image: %s\n\n", d.ImageRef)
	}
	b.WriteString("---\nThis is an automated alert from the railway defect detection system.\nPlease take immediate action.\n")
	return b.String()
}

func alertHTMLBody(d ports.Defect, locationName string) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif; color: #333;">`)
	b.WriteString(`<h2 style="color: #dc3545;">CRITICAL DEFECT DETECTED</h2>`)
	b.WriteString(`<table style="border-collapse: collapse;">`)
	writeHTMLRow(&b, "Type", d.DefectType)
	writeHTMLRow(&b, "Confidence", fmt.Sprintf("%.1f%%", d.Confidence))
	writeHTMLRow(&b, "Location", fmt.Sprintf("%s, %s", floatOrUnknown(d.Latitude), floatOrUnknown(d.Longitude)))
	writeHTMLRow(&b, "Nearest Station", locationName)
	writeHTMLRow(&b, "Detected", d.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	writeHTMLRow(&b, "Severity", string(d.Severity))
	b.WriteString(`</table>`)
	fmt.Fprintf(&b, `<h3 style="color: #856404;">IMMEDIATE ACTION REQUIRED</h3><p>%s</p>`, htmlEscape(d.ActionRequired))
	fmt.Fprintf(&b, `<h3>Resolution Steps</h3><p style="white-space: pre-line;">%s</p>`, htmlEscape(d.ResolutionSteps))
	if d.ImageRef != "" {
		fmt.Fprintf(&b, `<p>Evidence image: %s</p>`, htmlEscape(d.ImageRef))
	}
	b.WriteString(`<hr/><p style="color: #6c757d;">This is an automated alert from the railway defect detection system. Please take immediate action.</p>`)
	b.WriteString(`</body></html>`)
	return b.String()
}

func writeHTMLRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, `<tr><td style="padding: 6px; font-weight: bold;">%s</td><td style="padding: 6px;">%s</td></tr>`,
		htmlEscape(label), htmlEscape(value))
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
