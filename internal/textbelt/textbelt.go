package textbelt

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jon-lip/G2SMS-Public/internal/notify"
)

const DefaultURL = "https://textbelt.com/text"

type request struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Key     string `json:"key"`
}

// Response is the TextBelt reply for a single phone.
type Response struct {
	Success        bool   `json:"success"`
	TextId         string `json:"textId,omitempty"`
	QuotaRemaining int    `json:"quotaRemaining"`
	Error          string `json:"error,omitempty"`
}

type Client struct {
	apiKey string
	url    string
	phones []string
	http   *http.Client
}

var _ notify.Notifier = (*Client)(nil)

func NewClient(apiKey, url string, phones []string) (*Client, error) {
	if apiKey == "" || len(phones) == 0 {
		return nil, errors.New("api key and at least one phone number are required")
	}
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		apiKey: apiKey,
		url:    url,
		phones: phones,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Notify sends the formatted message to every configured phone in parallel
// and fails if any of them was not accepted.
func (c *Client) Notify(ctx context.Context, from, summary string) error {
	message := notify.Format(from, summary)

	responses := make([]Response, len(c.phones))
	var g errgroup.Group
	for i, phone := range c.phones {
		i, phone := i, phone
		g.Go(func() error {
			res, err := c.send(ctx, phone, message)
			if err != nil {
				return err
			}
			responses[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return checkForErrors(responses)
}

func (c *Client) send(ctx context.Context, phone, message string) (Response, error) {
	payload, err := json.Marshal(request{Phone: phone, Message: message, Key: c.apiKey})
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, errors.Wrap(err, "unable to read response body")
	}

	var res Response
	if err := json.Unmarshal(body, &res); err != nil {
		return Response{}, errors.Wrapf(err, "unexpected response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return res, nil
}

func checkForErrors(responses []Response) error {
	var err error
	for _, r := range responses {
		if !r.Success {
			msg := r.Error
			if msg == "" {
				msg = "send failed"
			}
			err = multierr.Append(err, errors.New(msg))
		}
	}
	if err != nil {
		return errors.Wrap(err, "textbelt api errors")
	}
	return nil
}
