// Package alert delivers critical-defect notifications over a shoutrrr
// transport URL (typically smtp). Delivery is best-effort: callers log and
// swallow errors, the defect record is already durable by the time an alert
// is attempted.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"railguard/internal/bootstrap/config"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

type ShoutrrrAlerter struct {
	baseURL string
	timeout time.Duration
}

var _ ports.Alerter = (*ShoutrrrAlerter)(nil)

func NewShoutrrrAlerter(cfg config.AlertConfig) *ShoutrrrAlerter {
	return &ShoutrrrAlerter{
		baseURL: strings.TrimSpace(cfg.URL),
		timeout: cfg.Timeout,
	}
}

func (a *ShoutrrrAlerter) Send(ctx context.Context, alert ports.Alert) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if a.baseURL == "" {
		return errors.New("alert transport url not configured")
	}
	if strings.TrimSpace(alert.Recipient) == "" {
		return errors.New("alert recipient is required")
	}

	deliveryURL, err := withRecipient(a.baseURL, alert.Recipient)
	if err != nil {
		return errs.Wrap(err, "build delivery url")
	}

	sender, err := shoutrrr.CreateSender(deliveryURL)
	if err != nil {
		return errs.Wrap(err, "create shoutrrr sender")
	}
	if a.timeout > 0 {
		sender.Timeout = a.timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	params := stypes.Params{}
	params.SetTitle(alert.Subject)

	body := alert.HTMLBody
	if body == "" {
		body = alert.TextBody
	}

	sendErrs := sender.Send(body, &params)
	for _, sendErr := range sendErrs {
		if sendErr != nil {
			return errs.Wrap(sendErr, "send alert")
		}
	}
	return nil
}

// withRecipient grafts the recipient onto the configured transport URL, so a
// single configuration serves per-station addressing.
func withRecipient(baseURL, recipient string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse transport url: %w", err)
	}

	query := parsed.Query()
	query.Set("to", recipient)
	if parsed.Scheme == "smtp" {
		query.Set("usehtml", "yes")
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
