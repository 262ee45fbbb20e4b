package sms

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/shivcommunication/storefront/internal/logging"
)

// Sender delivers a text message to a phone number
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// TwilioSender sends messages through the Twilio Messages API
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewTwilioSender creates a Twilio-backed Sender
func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, fromNumber: fromNumber}
}

// Send implements Sender. The Twilio client does not take a context.
func (t *TwilioSender) Send(_ context.Context, phone, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Sid != nil {
		log.Debug().Str("phone", logging.MaskPhone(phone)).Str("sid", *resp.Sid).Msg("sms queued")
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
// The message body is only logged when ShowBody is set (development).
type LogSender struct {
	ShowBody bool
}

// Send implements Sender
func (s LogSender) Send(_ context.Context, phone, message string) error {
	evt := log.Info().Str("phone", logging.MaskPhone(phone))
	if s.ShowBody {
		evt = evt.Str("body", message)
	}
	evt.Msg("sms delivery skipped: no provider configured")
	return nil
}
