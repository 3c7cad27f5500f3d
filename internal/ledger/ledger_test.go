package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jon-lip/G2SMS-Public/internal/dynamodb"
)

func TestNop(t *testing.T) {
	l := Nop()
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Entry{MessageId: "m1"}))
	seen, err := l.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.NoError(t, l.Close())
}

func TestSQLite(t *testing.T) {
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	seen, err := l.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, seen)

	first := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, l.Record(ctx, Entry{
		MessageId:  "m1",
		From:       "Alerts <alerts@company.com>",
		Subject:    "Outage",
		Matched:    []string{"domain", "subject"},
		NotifiedAt: first,
	}))
	require.NoError(t, l.Record(ctx, Entry{MessageId: "m2", From: "b@x.org", NotifiedAt: first.Add(time.Hour)}))

	seen, err = l.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, seen)

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m2", entries[0].MessageId)
	assert.Nil(t, entries[0].Matched)
	assert.Equal(t, "m1", entries[1].MessageId)
	assert.Equal(t, []string{"domain", "subject"}, entries[1].Matched)
	assert.True(t, first.Equal(entries[1].NotifiedAt))
}

func TestSQLite_RecordIsIdempotent(t *testing.T) {
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	e := Entry{MessageId: "m1", NotifiedAt: time.Now()}
	require.NoError(t, l.Record(ctx, e))
	require.NoError(t, l.Record(ctx, e))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLite_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Entry{MessageId: "m1", NotifiedAt: time.Now()}))
	require.NoError(t, l.Close())

	l, err = OpenSQLite(path)
	require.NoError(t, err)
	defer l.Close()

	seen, err := l.Seen(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, seen)
}

type mockDynamo struct {
	mock.Mock
}

func (m *mockDynamo) GetItem(ctx context.Context, table string, key map[string]dynamodb.AttributeValue) (map[string]interface{}, error) {
	args := m.Called(table, key)
	item, _ := args.Get(0).(map[string]interface{})
	return item, args.Error(1)
}

func (m *mockDynamo) PutItem(ctx context.Context, table string, item map[string]dynamodb.AttributeValue) error {
	args := m.Called(table, item)
	return args.Error(0)
}

func TestDynamoDB_Seen(t *testing.T) {
	client := &mockDynamo{}
	key := map[string]dynamodb.AttributeValue{"MessageId": &types.AttributeValueMemberS{Value: "m1"}}
	client.On("GetItem", "g2sms", key).Return(map[string]interface{}{"MessageId": "m1"}, nil).Once()
	client.On("GetItem", "g2sms", mock.Anything).Return(nil, nil)

	l := NewDynamoDB(client, "g2sms")

	seen, err := l.Seen(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = l.Seen(context.Background(), "m2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDynamoDB_SeenError(t *testing.T) {
	client := &mockDynamo{}
	client.On("GetItem", "g2sms", mock.Anything).Return(nil, assert.AnError)

	_, err := NewDynamoDB(client, "g2sms").Seen(context.Background(), "m1")
	require.ErrorIs(t, err, assert.AnError)
}

func TestDynamoDB_Record(t *testing.T) {
	client := &mockDynamo{}
	at := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	client.On("PutItem", "g2sms", map[string]dynamodb.AttributeValue{
		"MessageId":  &types.AttributeValueMemberS{Value: "m1"},
		"From":       &types.AttributeValueMemberS{Value: "a@b.c"},
		"Subject":    &types.AttributeValueMemberS{Value: "hi"},
		"NotifiedAt": &types.AttributeValueMemberS{Value: "2024-01-02T09:00:00Z"},
		"Matched":    &types.AttributeValueMemberSS{Value: []string{"content"}},
	}).Return(nil).Once()
	client.On("PutItem", "g2sms", map[string]dynamodb.AttributeValue{
		"MessageId":  &types.AttributeValueMemberS{Value: "m2"},
		"From":       &types.AttributeValueMemberS{Value: ""},
		"Subject":    &types.AttributeValueMemberS{Value: ""},
		"NotifiedAt": &types.AttributeValueMemberS{Value: "2024-01-02T09:00:00Z"},
	}).Return(nil).Once()

	l := NewDynamoDB(client, "g2sms")
	require.NoError(t, l.Record(context.Background(), Entry{MessageId: "m1", From: "a@b.c", Subject: "hi", Matched: []string{"content"}, NotifiedAt: at}))
	require.NoError(t, l.Record(context.Background(), Entry{MessageId: "m2", NotifiedAt: at}))
	client.AssertExpectations(t)
}
