package defect

import "strings"

// Severity is one of exactly three canonical tiers. Raw advisory-service
// strings never reach storage; NormalizeSeverity is the enforcement point.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// severityBySynonym is the full normalization policy in one table so the
// safety escalation rule stays auditable. Note that "medium" and "moderate"
// deliberately fold into High: under-reporting a track defect is worse than
// over-escalating it.
var severityBySynonym = map[string]Severity{
	"critical":  SeverityCritical,
	"severe":    SeverityCritical,
	"very high": SeverityCritical,
	"urgent":    SeverityCritical,

	"high":        SeverityHigh,
	"significant": SeverityHigh,
	"medium-high": SeverityHigh,

	"medium":   SeverityHigh,
	"moderate": SeverityHigh,

	"low":     SeverityLow,
	"minor":   SeverityLow,
	"minimal": SeverityLow,
}

// NormalizeSeverity maps an arbitrary advisory-service severity label to a
// canonical tier. Unknown, empty or absent input is a defined outcome, not an
// error: it yields High so an unrecognized label can never mute an alert.
func NormalizeSeverity(raw string) Severity {
	key := strings.ToLower(strings.TrimSpace(raw))
	if sev, ok := severityBySynonym[key]; ok {
		return sev
	}
	return SeverityHigh
}
