package twilio

import (
	"context"
	"errors"

	_twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/multierr"

	"github.com/jon-lip/G2SMS-Public/internal/notify"
)

type Client interface {
	SendSms(from, to, msg string) (string, error)
}

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

func NewClient(accountSid, authToken string) (*ClientImpl, error) {
	if accountSid == "" || authToken == "" {
		return nil, errors.New("account sid and auth token cannot be empty")
	}

	client := _twilio.NewRestClientWithParams(_twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	if client == nil {
		panic("twilio client is nil, this is unexpected")
	}

	return &ClientImpl{api: client.Api}, nil
}

type ClientImpl struct {
	api messageCreator
}

// SendSms sends one message and returns its SID.
func (c ClientImpl) SendSms(from, to, msg string) (string, error) {
	if from == "" || to == "" || msg == "" {
		return "", errors.New("none of the parameters can be empty")
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(msg)

	message, err := c.api.CreateMessage(params)
	if err != nil {
		return "", err
	}

	if message == nil || message.Sid == nil {
		return "", nil
	}
	return *message.Sid, nil
}

// Notifier sends every notification from one Twilio number to a fixed list
// of phones.
type Notifier struct {
	client Client
	from   string
	phones []string
}

var _ notify.Notifier = (*Notifier)(nil)

func NewNotifier(client Client, from string, phones []string) *Notifier {
	return &Notifier{client: client, from: from, phones: phones}
}

func (n *Notifier) Notify(ctx context.Context, sender, summary string) error {
	msg := notify.Format(sender, summary)

	var err error
	for _, phone := range n.phones {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return multierr.Append(err, ctxErr)
		}
		if _, sendErr := n.client.SendSms(n.from, phone, msg); sendErr != nil {
			err = multierr.Append(err, sendErr)
		}
	}

	return err
}
