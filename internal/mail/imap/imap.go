package imap

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	_imap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/pkg/errors"

	"github.com/jon-lip/G2SMS-Public/internal/content"
	"github.com/jon-lip/G2SMS-Public/internal/logger"
	"github.com/jon-lip/G2SMS-Public/internal/mail/types"
)

const (
	afterLayout        = "2006/01/02"
	concurrentRoutines = 4
)

type Config struct {
	Addr     string
	Username string
	Password string
	Mailbox  string
	// Keyword is the flag stored on handled messages.
	Keyword string
	// Insecure dials without TLS.
	Insecure bool
}

// Service reads a mailbox over IMAP. The underlying connection does not
// support concurrent commands, so every call is serialized.
type Service struct {
	mu       sync.Mutex
	client   *client.Client
	mailbox  string
	keyword  string
	selected bool
	log      logger.Logger
}

var _ types.Service = (*Service)(nil)

func NewService(cfg Config) (*Service, error) {
	var (
		emailClient *client.Client
		err         error
	)
	if cfg.Insecure {
		emailClient, err = client.Dial(cfg.Addr)
	} else {
		emailClient, err = client.DialTLS(cfg.Addr, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", cfg.Addr)
	}

	if err := emailClient.Login(cfg.Username, cfg.Password); err != nil {
		_ = emailClient.Logout()
		return nil, errors.Wrap(err, "unable to log in")
	}

	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	return &Service{
		client:  emailClient,
		mailbox: mailbox,
		keyword: cfg.Keyword,
		log:     logger.GetLogger(),
	}, nil
}

func (s *Service) selectMailbox() error {
	if s.selected {
		return nil
	}
	if _, err := s.client.Select(s.mailbox, false); err != nil {
		return errors.Wrapf(err, "unable to select %s", s.mailbox)
	}
	s.selected = true
	return nil
}

// searchCriteria maps the filters IMAP can express: a negated label filter
// becomes a missing keyword, an after filter becomes SINCE and a positive
// from filter a FROM header match. Everything else is ignored.
func (s *Service) searchCriteria(filters []types.Filter) *_imap.SearchCriteria {
	criteria := _imap.NewSearchCriteria()
	for _, f := range filters {
		switch {
		case f.Type == types.LabelFilter && f.Negate:
			criteria.WithoutFlags = append(criteria.WithoutFlags, f.Value)
		case f.Type == types.AfterFilter && !f.Negate:
			if since, err := time.Parse(afterLayout, f.Value); err == nil {
				criteria.Since = since
			}
		case f.Type == types.FromFilter && !f.Negate:
			criteria.Header.Add("From", f.Value)
		}
	}
	return criteria
}

// GetMessages returns the newest max matching messages, oldest first.
func (s *Service) GetMessages(ctx context.Context, filters []types.Filter, max int64) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.selectMailbox(); err != nil {
		return nil, err
	}

	uids, err := s.client.UidSearch(s.searchCriteria(filters))
	if err != nil {
		return nil, errors.Wrap(err, "unable to search messages")
	}

	s.log.Infow("Messages",
		"mailbox", s.mailbox,
		"len", len(uids))

	if len(uids) == 0 {
		return nil, nil
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if max > 0 && int64(len(uids)) > max {
		uids = uids[int64(len(uids))-max:]
	}

	seqset := new(_imap.SeqSet)
	seqset.AddNum(uids...)

	section := &_imap.BodySectionName{Peek: true}
	items := []_imap.FetchItem{_imap.FetchUid, section.FetchItem()}

	fetched := make(chan *_imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, fetched)
	}()

	messages := processMultipleMessages(fetched, s.log)

	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "unable to fetch messages")
	}

	return messages, nil
}

type parsedMessage struct {
	uid uint32
	msg types.Message
}

func processMultipleMessages(fetched <-chan *_imap.Message, log logger.Logger) []types.Message {
	out := make(chan parsedMessage)

	var wg sync.WaitGroup
	wg.Add(concurrentRoutines)
	for i := 0; i < concurrentRoutines; i++ {
		go func() {
			defer wg.Done()
			for raw := range fetched {
				msg, err := getCompleteMessage(raw)
				if err != nil {
					log.Errorw("could not parse message",
						"uid", raw.Uid,
						"error", err)
					continue
				}
				out <- parsedMessage{uid: raw.Uid, msg: msg}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	var parsed []parsedMessage
	for p := range out {
		parsed = append(parsed, p)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].uid < parsed[j].uid })

	messages := make([]types.Message, len(parsed))
	for i, p := range parsed {
		messages[i] = p.msg
	}
	return messages
}

// Only one body section is fetched, so whichever literal came back is it.
func messageBody(raw *_imap.Message) _imap.Literal {
	for _, literal := range raw.Body {
		return literal
	}
	return nil
}

func getCompleteMessage(raw *_imap.Message) (types.Message, error) {
	literal := messageBody(raw)
	if literal == nil {
		return types.Message{}, errors.New("no body found in msg")
	}

	entity, err := message.Read(literal)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return types.Message{}, errors.Wrap(err, "unable to read message")
	}

	from, _ := entity.Header.Text("From")
	subject, _ := entity.Header.Text("Subject")

	return types.Message{
		Id:      strconv.FormatUint(uint64(raw.Uid), 10),
		Date:    entity.Header.Get("Date"),
		From:    from,
		Subject: subject,
		Body:    EntityToNode(entity),
	}, nil
}

// EntityToNode converts a MIME entity into a body tree. Leaf payloads are
// transfer-decoded, charset-converted and re-encoded as base64url.
func EntityToNode(e *message.Entity) content.Node {
	mediaType, _, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	if mr := e.MultipartReader(); mr != nil {
		var children []content.Node
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
				break
			}
			children = append(children, EntityToNode(part))
		}
		return content.NewContainer(mediaType, children...)
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return content.NewLeaf(mediaType, "")
	}
	return content.EncodeLeaf(mediaType, body)
}

// MarkProcessed stores the processed keyword on the message with the given
// UID.
func (s *Service) MarkProcessed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyword == "" {
		return errors.New("processed keyword is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return errors.Wrapf(err, "invalid message uid %q", id)
	}
	if err := s.selectMailbox(); err != nil {
		return err
	}

	seqset := new(_imap.SeqSet)
	seqset.AddNum(uint32(uid))

	item := _imap.FormatFlagsOp(_imap.AddFlags, true)
	if err := s.client.UidStore(seqset, item, []interface{}{s.keyword}, nil); err != nil {
		return errors.Wrapf(err, "unable to flag message %s", id)
	}

	return nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.Logout()
}
