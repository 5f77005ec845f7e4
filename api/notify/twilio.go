package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNoPhoneTransport is returned when Twilio is not configured
var ErrNoPhoneTransport = errors.New("no phone transport configured")

// PhoneSender delivers short messages by SMS or voice call
type PhoneSender interface {
	SendSMS(ctx context.Context, to, body string) error
	Call(ctx context.Context, to, speech string) error
}

// TwilioSender sends SMS and places voice calls through Twilio
type TwilioSender struct {
	From   string
	client *twilio.RestClient
}

// NewTwilioSender builds a sender for the given account
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{From: from, client: client}
}

// SendSMS texts body to the given number
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.From)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return nil
}

// Call rings the number and reads speech aloud twice
func (s *TwilioSender) Call(ctx context.Context, to, speech string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	say := html.EscapeString(speech)
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(s.From)
	params.SetTwiml(fmt.Sprintf(`<Response><Say>%s</Say><Pause length="1"/><Say>%s</Say></Response>`, say, say))

	if _, err := s.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("failed to place call: %w", err)
	}
	return nil
}
