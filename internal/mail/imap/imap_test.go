package imap

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jon-lip/G2SMS-Public/internal/content"
	"github.com/jon-lip/G2SMS-Public/internal/mail/types"
)

const alertMessage = `From: Alerts <alerts@company.com>
To: me@example.org
Subject: =?utf-8?q?Important_=E2=9C=93?=
Date: Tue, 02 Jan 2024 09:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=XYZ

--XYZ
Content-Type: text/html; charset=utf-8

<p>html version</p>
--XYZ
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

Caf=E9 closes at 5
--XYZ--
`

const plainMessage = `From: friend@example.org
To: me@example.org
Subject: hello
Date: Wed, 03 Jan 2024 09:00:00 +0000
Content-Type: text/plain

just saying hi
`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func startServer(t *testing.T, messages ...string) string {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	addr := l.Addr().String()

	c, err := client.Dial(addr)
	require.NoError(t, err)
	require.NoError(t, c.Login("username", "password"))
	for _, m := range messages {
		require.NoError(t, c.Append("INBOX", nil, time.Now(), bytes.NewBufferString(crlf(m))))
	}
	require.NoError(t, c.Logout())

	return addr
}

func newTestService(t *testing.T, addr string) *Service {
	t.Helper()
	s, err := NewService(Config{
		Addr:     addr,
		Username: "username",
		Password: "password",
		Keyword:  "G2SMS",
		Insecure: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewService_BadCredentials(t *testing.T) {
	addr := startServer(t)

	_, err := NewService(Config{Addr: addr, Username: "username", Password: "wrong", Insecure: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to log in")
}

func TestGetMessagesAndMarkProcessed(t *testing.T) {
	addr := startServer(t, alertMessage, plainMessage)
	s := newTestService(t, addr)
	ctx := context.Background()
	filters := types.DefaultFilters("G2SMS")

	msgs, err := s.GetMessages(ctx, filters, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	alert := msgs[1]
	assert.Equal(t, "Alerts <alerts@company.com>", alert.From)
	assert.Equal(t, "Important ✓", alert.Subject)
	assert.Equal(t, "Tue, 02 Jan 2024 09:00:00 +0000", alert.Date)
	assert.Equal(t, "Café closes at 5", content.ExtractText(alert.Body))

	plain := msgs[2]
	assert.Equal(t, "hello", plain.Subject)
	assert.Equal(t, "just saying hi", content.ExtractText(plain.Body))

	require.NoError(t, s.MarkProcessed(ctx, alert.Id))

	msgs, err = s.GetMessages(ctx, filters, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.NotEqual(t, alert.Id, m.Id)
	}
}

func TestGetMessages_MaxKeepsNewest(t *testing.T) {
	addr := startServer(t, alertMessage, plainMessage)
	s := newTestService(t, addr)

	msgs, err := s.GetMessages(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Subject)
}

func TestGetMessages_CanceledContext(t *testing.T) {
	addr := startServer(t)
	s := newTestService(t, addr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetMessages(ctx, nil, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMarkProcessed_InvalidId(t *testing.T) {
	addr := startServer(t)
	s := newTestService(t, addr)

	err := s.MarkProcessed(context.Background(), "not-a-uid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid message uid")
}

func TestSearchCriteria(t *testing.T) {
	s := &Service{}
	criteria := s.searchCriteria([]types.Filter{
		{Type: types.InFilter, Value: "inbox"},
		{Type: types.FromFilter, Value: "me", Negate: true},
		{Type: types.LabelFilter, Value: "G2SMS", Negate: true},
		{Type: types.AfterFilter, Value: "2024/01/05"},
		{Type: types.FromFilter, Value: "alerts@company.com"},
	})

	assert.Equal(t, []string{"G2SMS"}, criteria.WithoutFlags)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), criteria.Since)
	assert.Equal(t, []string{"alerts@company.com"}, criteria.Header.Values("From"))
}

func TestEntityToNode(t *testing.T) {
	entity, err := message.Read(strings.NewReader(crlf(alertMessage)))
	require.NoError(t, err)

	node := EntityToNode(entity)
	root, ok := node.(content.Container)
	require.True(t, ok)
	assert.Equal(t, "multipart/alternative", root.MediaType)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "text/html", content.MediaTypeOf(root.Children[0]))
	assert.Equal(t, "text/plain", content.MediaTypeOf(root.Children[1]))
	assert.Equal(t, "Café closes at 5", content.ExtractText(node))
}

func TestEntityToNode_DefaultsToPlainText(t *testing.T) {
	entity, err := message.Read(strings.NewReader("Subject: x\r\n\r\nno content type\r\n"))
	require.NoError(t, err)

	node := EntityToNode(entity)
	assert.Equal(t, "text/plain", content.MediaTypeOf(node))
	assert.Equal(t, "no content type", content.ExtractText(node))
}
