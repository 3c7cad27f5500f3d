package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
)

type AttributeValue = types.AttributeValue

// API is the subset of the DynamoDB client used here.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type Client interface {
	GetItem(ctx context.Context, tableName string, key map[string]AttributeValue) (map[string]interface{}, error)
	PutItem(ctx context.Context, tableName string, item map[string]AttributeValue) error
}

func NewClient(ctx context.Context, region string) (Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "unable to load aws config")
	}

	return NewClientWithAPI(dynamodb.NewFromConfig(cfg)), nil
}

func NewClientWithAPI(api API) Client {
	return &dynamodbClientImpl{api: api}
}

type dynamodbClientImpl struct {
	api API
}

// GetItem returns the item with plain Go values, or nil when it does not
// exist.
func (d *dynamodbClientImpl) GetItem(ctx context.Context, tableName string, key map[string]AttributeValue) (map[string]interface{}, error) {
	res, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		Key:       key,
		TableName: aws.String(tableName),
	})
	if err != nil {
		return nil, err
	}

	if len(res.Item) == 0 {
		return nil, nil
	}

	resConv := make(map[string]interface{}, len(res.Item))
	for k, v := range res.Item {
		resConv[k] = convertType(v)
	}

	return resConv, nil
}

func (d *dynamodbClientImpl) PutItem(ctx context.Context, tableName string, item map[string]AttributeValue) error {
	_, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{
		Item:      item,
		TableName: aws.String(tableName),
	})
	return err
}

func convertType(i interface{}) interface{} {
	var value interface{}

	switch j := i.(type) {
	case *types.AttributeValueMemberS:
		value = j.Value
	case *types.AttributeValueMemberN:
		value = j.Value
	case *types.AttributeValueMemberB:
		value = j.Value
	case *types.AttributeValueMemberSS:
		value = j.Value
	case *types.AttributeValueMemberNS:
		value = j.Value
	case *types.AttributeValueMemberBS:
		value = j.Value
	case *types.AttributeValueMemberM:
		value = j.Value
	case *types.AttributeValueMemberL:
		value = j.Value
	case *types.AttributeValueMemberNULL:
		value = j.Value
	case *types.AttributeValueMemberBOOL:
		value = j.Value
	default:
		value = "invalid"
	}

	return value
}
