// Package notify dispatches one-time passcodes to the user's registered
// channel. Dispatch is a single fallible attempt with a bounded timeout; the
// caller decides what a failure means for the flow.
package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// Dispatcher sends a message to a destination address.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPDispatcher sends mail through an SMTP relay via gomail.
type SMTPDispatcher struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
}

// NewSMTPDispatcher builds a dispatcher for the given relay.
func NewSMTPDispatcher(host string, port int, user, password, from string, timeout time.Duration) *SMTPDispatcher {
	return &SMTPDispatcher{
		dialer:  gomail.NewDialer(host, port, user, password),
		from:    from,
		timeout: timeout,
	}
}

// Send delivers the message, honoring both the dispatcher timeout and the
// caller's context. gomail has no context support, so the dial-and-send runs in
// a goroutine; on timeout the attempt is abandoned and reported as failed.
func (d *SMTPDispatcher) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.dialer.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail: %w", ctx.Err())
	}
}
