package gmail

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jon-lip/G2SMS-Public/internal/content"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	"github.com/jon-lip/G2SMS-Public/internal/mail/types"
)

const (
	user           = "me"
	msgFormat      = "full"
	concurrentJobs = 10
	maxPageSize    = 500
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
	TokenFile    string

	// Label marks messages that were already handled.
	Label string
	// Query is appended to the search expression built from filters.
	Query string

	// Endpoint and HTTPClient override the API base URL and transport.
	Endpoint   string
	HTTPClient *http.Client
}

type Service struct {
	srv     *gmail.Service
	label   string
	labelId string
	query   string
	log     logger.Logger
}

var _ types.Service = (*Service)(nil)

// NewService authenticates against Gmail and makes sure the processed label
// exists.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	client := cfg.HTTPClient
	if client == nil {
		tok, err := loadToken(cfg)
		if err != nil {
			return nil, err
		}
		client = OAuthConfig(cfg).Client(ctx, tok)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create gmail client")
	}

	s := &Service{
		srv:   srv,
		label: cfg.Label,
		query: cfg.Query,
		log:   logger.GetLogger(),
	}

	if s.label != "" {
		s.labelId, err = s.EnsureLabel(ctx)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

func loadToken(cfg Config) (*oauth2.Token, error) {
	if cfg.RefreshToken != "" {
		return &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"}, nil
	}
	if cfg.TokenFile != "" {
		tok, err := tokenFromFile(cfg.TokenFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read token file")
		}
		return tok, nil
	}
	return nil, errors.New("gmail refresh token is not set")
}

// EnsureLabel creates the processed label, or looks it up when creation
// fails because it already exists.
func (s *Service) EnsureLabel(ctx context.Context) (string, error) {
	created, err := s.srv.Users.Labels.Create(user, &gmail.Label{
		Name:                  s.label,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err == nil {
		return created.Id, nil
	}

	labels, listErr := s.srv.Users.Labels.List(user).Context(ctx).Do()
	if listErr != nil {
		return "", errors.Wrap(listErr, "could not create or list labels")
	}

	for _, l := range labels.Labels {
		if l.Name == s.label {
			return l.Id, nil
		}
	}

	return "", errors.Wrapf(err, "could not create or find label %s", s.label)
}

func (s *Service) LabelId() string {
	return s.labelId
}

// GetMessages lists up to max messages matching filters and fetches them in
// full. The result keeps the listing order; messages that fail to load are
// logged and left out.
func (s *Service) GetMessages(ctx context.Context, filters []types.Filter, max int64) ([]types.Message, error) {
	query := types.Query(filters, s.query)

	ids, err := s.getMessageList(ctx, query, max)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Listed messages",
		"query", query,
		"len", len(ids))

	msgs := s.processAndGatherMessages(ctx, ids)

	messages := make([]types.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg != nil {
			messages = append(messages, extractMailMessageFromGmailMessage(msg))
		}
	}

	return messages, nil
}

func (s *Service) getMessageList(ctx context.Context, query string, max int64) ([]string, error) {
	var ids []string
	var nextPageToken string
	for {
		pageSize := int64(maxPageSize)
		if remaining := max - int64(len(ids)); max > 0 && remaining < pageSize {
			pageSize = remaining
		}

		msgs, err := s.srv.Users.Messages.List(user).
			Q(query).
			MaxResults(pageSize).
			PageToken(nextPageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, errors.Wrap(err, "unable to list messages")
		}

		for _, msg := range msgs.Messages {
			ids = append(ids, msg.Id)
		}

		nextPageToken = msgs.NextPageToken
		if nextPageToken == "" || (max > 0 && int64(len(ids)) >= max) {
			break
		}
	}

	if max > 0 && int64(len(ids)) > max {
		ids = ids[:max]
	}

	return ids, nil
}

func (s *Service) processAndGatherMessages(ctx context.Context, ids []string) []*gmail.Message {
	out := make([]*gmail.Message, len(ids))
	in := make(chan int)

	var wg sync.WaitGroup
	wg.Add(concurrentJobs)
	for i := 0; i < concurrentJobs; i++ {
		go func() {
			defer wg.Done()
			for idx := range in {
				msg, err := s.srv.Users.Messages.Get(user, ids[idx]).Format(msgFormat).Context(ctx).Do()
				if err != nil {
					s.log.Errorw("could not fetch message",
						"msgId", ids[idx],
						"error", err)
					continue
				}
				out[idx] = msg
			}
		}()
	}

	for i := range ids {
		in <- i
	}
	close(in)
	wg.Wait()

	return out
}

// MarkProcessed adds the processed label to a message.
func (s *Service) MarkProcessed(ctx context.Context, id string) error {
	if s.labelId == "" {
		return errors.New("processed label is not configured")
	}

	_, err := s.srv.Users.Messages.Modify(user, id, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{s.labelId},
	}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "unable to label message %s", id)
	}

	return nil
}

func (s *Service) Close() error {
	return nil
}

// convertHeadersToMap keys headers by lower-cased name; the first occurrence
// of a repeated header wins.
func convertHeadersToMap(headers []*gmail.MessagePartHeader) map[string]string {
	dict := map[string]string{}

	for _, header := range headers {
		if header == nil {
			continue
		}
		key := strings.ToLower(header.Name)
		if _, ok := dict[key]; !ok {
			dict[key] = header.Value
		}
	}

	return dict
}

func extractMailMessageFromGmailMessage(msg *gmail.Message) types.Message {
	mailMsg := types.Message{
		Id:       msg.Id,
		ThreadId: msg.ThreadId,
	}

	if msg.Payload == nil {
		return mailMsg
	}

	headers := convertHeadersToMap(msg.Payload.Headers)
	mailMsg.Date = headers["date"]
	mailMsg.From = headers["from"]
	mailMsg.Subject = headers["subject"]
	mailMsg.Body = partToNode(msg.Payload)

	return mailMsg
}

func partToNode(part *gmail.MessagePart) content.Node {
	if len(part.Parts) > 0 {
		children := make([]content.Node, 0, len(part.Parts))
		for _, p := range part.Parts {
			if p != nil {
				children = append(children, partToNode(p))
			}
		}
		return content.NewContainer(part.MimeType, children...)
	}

	var data string
	if part.Body != nil {
		data = part.Body.Data
	}
	return content.NewLeaf(part.MimeType, data)
}
