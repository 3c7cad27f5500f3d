package ledger

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/jon-lip/G2SMS-Public/internal/dynamodb"
)

const messageIdKey = "MessageId"

type DynamoDB struct {
	client dynamodb.Client
	table  string
}

func NewDynamoDB(client dynamodb.Client, table string) *DynamoDB {
	return &DynamoDB{client: client, table: table}
}

func (d *DynamoDB) Seen(ctx context.Context, id string) (bool, error) {
	item, err := d.client.GetItem(ctx, d.table, map[string]dynamodb.AttributeValue{
		messageIdKey: &types.AttributeValueMemberS{Value: id},
	})
	if err != nil {
		return false, errors.Wrap(err, "unable to read notification ledger")
	}
	return item != nil, nil
}

func (d *DynamoDB) Record(ctx context.Context, entry Entry) error {
	item := map[string]dynamodb.AttributeValue{
		messageIdKey: &types.AttributeValueMemberS{Value: entry.MessageId},
		"From":       &types.AttributeValueMemberS{Value: entry.From},
		"Subject":    &types.AttributeValueMemberS{Value: entry.Subject},
		"NotifiedAt": &types.AttributeValueMemberS{Value: entry.NotifiedAt.UTC().Format(time.RFC3339)},
	}
	// String sets must not be empty.
	if len(entry.Matched) > 0 {
		item["Matched"] = &types.AttributeValueMemberSS{Value: entry.Matched}
	}

	if err := d.client.PutItem(ctx, d.table, item); err != nil {
		return errors.Wrap(err, "unable to write notification ledger")
	}
	return nil
}

func (d *DynamoDB) Close() error {
	return nil
}
