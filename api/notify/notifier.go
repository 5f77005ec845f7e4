package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DeliveryError reports one message that could not be delivered
type DeliveryError struct {
	To      string
	Subject string
	Err     error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s (%s) failed: %v", e.To, e.Subject, e.Err)
}

func (e DeliveryError) Unwrap() error { return e.Err }

// Notifier sends emails and OTP codes through the configured transports
type Notifier struct {
	Mailer Mailer
	Phone  PhoneSender
}

// Deliver sends msgs one after the other on a background goroutine. The
// returned channel yields a DeliveryError per failed message and is closed once
// every message has been attempted.
func (n *Notifier) Deliver(ctx context.Context, msgs ...Email) <-chan DeliveryError {
	errs := make(chan DeliveryError, len(msgs))
	go func() {
		defer close(errs)
		for _, m := range msgs {
			if m.To == "" {
				continue
			}
			if err := n.send(ctx, m); err != nil {
				errs <- DeliveryError{To: m.To, Subject: m.Subject, Err: err}
			}
		}
	}()
	return errs
}

// DeliverAndLog is Deliver with every failure logged
func (n *Notifier) DeliverAndLog(ctx context.Context, msgs ...Email) {
	go Drain(n.Deliver(ctx, msgs...))
}

// Drain logs every DeliveryError until the channel closes
func Drain(errs <-chan DeliveryError) int {
	count := 0
	for e := range errs {
		count++
		zap.S().Warnw("notification not delivered",
			"to", e.To,
			"subject", e.Subject,
			"error", e.Err)
	}
	return count
}

func (n *Notifier) send(ctx context.Context, m Email) error {
	if n.Mailer == nil {
		return ErrNoMailer
	}
	return n.Mailer.Send(ctx, m)
}

// Channels an OTP can be sent through
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelCall  = "call"
)

// OTP is a one-time code addressed to a user
type OTP struct {
	Channel string
	Name    string
	Email   string
	Phone   string
	Code    string
	Subject string
	HTML    string
}

// SendOTP delivers the code synchronously through the requested channel
func (n *Notifier) SendOTP(ctx context.Context, o OTP) error {
	switch o.Channel {
	case ChannelSMS, ChannelCall:
		if n.Phone == nil {
			return ErrNoPhoneTransport
		}
		if o.Channel == ChannelSMS {
			return n.Phone.SendSMS(ctx, o.Phone, fmt.Sprintf("Your Civic Report code is %s", o.Code))
		}
		return n.Phone.Call(ctx, o.Phone, "Your Civic Report code is "+spell(o.Code))
	default:
		return n.send(ctx, Email{
			ToName:  o.Name,
			To:      o.Email,
			Subject: o.Subject,
			Text:    fmt.Sprintf("Your Civic Report code is %s", o.Code),
			HTML:    o.HTML,
		})
	}
}

// spell separates digits so text-to-speech reads them one at a time
func spell(code string) string {
	return strings.Join(strings.Split(code, ""), " ")
}
