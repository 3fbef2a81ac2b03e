package defect

// Status is the two-state defect lifecycle: Open -> Resolved -> Open (reopen).
type Status string

const (
	StatusOpen     Status = "Open"
	StatusResolved Status = "Resolved"
)
