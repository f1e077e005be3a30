package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type createMessageFunc func(*twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)

// TwilioClient sends messages through the Twilio REST API.
type TwilioClient struct {
	from   string
	create createMessageFunc
}

func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioClient{from: from, create: rest.Api.CreateMessage}
}

// Send blocks until Twilio answers or ctx is done. The SDK call itself takes no
// context, so an abandoned request may still complete in the background.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (*SendResult, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	type outcome struct {
		msg *twilioApi.ApiV2010Message
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		msg, err := c.create(params)
		ch <- outcome{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("twilio send: %w", ctx.Err())
	case out := <-ch:
		if out.err != nil {
			return nil, fmt.Errorf("twilio send: %w", out.err)
		}
		if out.msg == nil || out.msg.Sid == nil {
			return nil, errors.New("twilio send: empty message sid")
		}
		return &SendResult{MessageID: *out.msg.Sid, Provider: ProviderTwilio}, nil
	}
}
