package cohere

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/jon-lip/G2SMS-Public/internal/summary"
)

const (
	DefaultURL = "https://api.cohere.ai/v1/summarize"

	additionalCommand = "Focus on key actions, dates, amounts, and deadlines. Remove any URLs or contact information."
)

type summarizeRequest struct {
	Text              string  `json:"text"`
	Length            string  `json:"length"`
	Format            string  `json:"format"`
	Extractiveness    string  `json:"extractiveness"`
	Temperature       float64 `json:"temperature"`
	AdditionalCommand string  `json:"additional_command"`
}

type summarizeResponse struct {
	Id      string `json:"id"`
	Summary string `json:"summary"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type Client struct {
	apiKey string
	url    string
	http   *http.Client
}

var _ summary.Summarizer = (*Client)(nil)

func NewClient(apiKey, url string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("cohere api key cannot be empty")
	}
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		apiKey: apiKey,
		url:    url,
		http:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(summarizeRequest{
		Text:              text,
		Length:            "short",
		Format:            "paragraph",
		Extractiveness:    "high",
		Temperature:       0.3,
		AdditionalCommand: additionalCommand,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Message, "text must be longer") {
			return "", errors.Wrap(summary.ErrTextTooShort, apiErr.Message)
		}
		return "", errors.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var response summarizeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}

	return response.Summary, nil
}
