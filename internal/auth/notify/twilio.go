package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const defaultTwilioTimeout = 10 * time.Second

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration

	// Transport carries the API calls. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		Timeout:    defaultTwilioTimeout,
	}
}

// contextTransport binds every request to ctx. The Twilio client takes no
// context of its own.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}

func (s *TwilioSender) rest(ctx context.Context) *twilio.RestClient {
	base := s.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTwilioTimeout
	}

	c := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(s.AccountSID, s.AuthToken),
		HTTPClient:  &http.Client{Timeout: timeout, Transport: contextTransport{ctx: ctx, base: base}},
	}
	c.SetAccountSid(s.AccountSID)
	return twilio.NewRestClientWithParams(twilio.ClientParams{Client: c})
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.From)
	params.SetBody(body)

	msg, err := s.rest(ctx).Api.CreateMessage(params)
	if err != nil {
		var apiErr *twilioclient.TwilioRestError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("notify: twilio returned %d: %s", apiErr.Status, apiErr.Message)
		}
		return fmt.Errorf("notify: twilio request: %w", err)
	}

	if msg.ErrorCode != nil {
		reason := ""
		if msg.ErrorMessage != nil {
			reason = *msg.ErrorMessage
		}
		return fmt.Errorf("notify: sms send error %d: %s", *msg.ErrorCode, reason)
	}
	return nil
}
