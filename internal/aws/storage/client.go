package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// dynamoAPI is the slice of the DynamoDB client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Config struct {
	ProfilesTableName  *string
	ApiTokensTableName *string
	RoomKeysTableName  *string
	RoomKeysRoomIndex  *string
}

func NewConfig(profiles, apiTokens, roomKeys string) Config {
	return Config{
		ProfilesTableName:  aws.String(profiles),
		ApiTokensTableName: aws.String(apiTokens),
		RoomKeysTableName:  aws.String(roomKeys),
		RoomKeysRoomIndex:  aws.String("RoomIdIndex"),
	}
}

type Client struct {
	dynamodb dynamoAPI
	cfg      Config
}

func NewClient(dynamoClient dynamoAPI, cfg Config) *Client {
	return &Client{
		dynamodb: dynamoClient,
		cfg:      cfg,
	}
}
