package ports

import "context"

type Alert struct {
	Recipient string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Alerter delivers a notification best-effort. Send errors are logged and
// swallowed by the dispatcher; they never reach the ingestion caller.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}
