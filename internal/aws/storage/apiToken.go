package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/trisbattle/arena/internal/domains/entities"
)

var ErrApiTokenNotFound = fmt.Errorf("api token not found")

func (client *Client) GetApiToken(ctx context.Context, token string) (entities.ApiToken, error) {
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: client.cfg.ApiTokensTableName,
		Key: map[string]types.AttributeValue{
			"Token": &types.AttributeValueMemberS{
				Value: token,
			},
		},
	})
	if err != nil {
		return entities.ApiToken{}, err
	}
	if output.Item == nil {
		return entities.ApiToken{}, ErrApiTokenNotFound
	}
	var apiToken entities.ApiToken
	if err := attributevalue.UnmarshalMap(output.Item, &apiToken); err != nil {
		return entities.ApiToken{}, err
	}
	return apiToken, nil
}

// DeleteExpiredApiTokens removes tokens whose expiry is at or before now and
// returns how many were deleted.
func (client *Client) DeleteExpiredApiTokens(ctx context.Context, now time.Time) (int, error) {
	var lastKey map[string]types.AttributeValue
	deleted := 0
	for {
		output, err := client.dynamodb.Scan(ctx, &dynamodb.ScanInput{
			TableName:                client.cfg.ApiTokensTableName,
			FilterExpression:         aws.String("attribute_exists(#expires) AND #expires <= :now"),
			ExpressionAttributeNames: map[string]string{"#expires": "Expires"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to scan api tokens: %w", err)
		}
		var tokens []entities.ApiToken
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &tokens); err != nil {
			return deleted, fmt.Errorf("failed to unmarshal api tokens: %w", err)
		}
		for _, token := range tokens {
			_, err := client.dynamodb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: client.cfg.ApiTokensTableName,
				Key: map[string]types.AttributeValue{
					"Token": &types.AttributeValueMemberS{Value: token.Token},
				},
			})
			if err != nil {
				return deleted, fmt.Errorf("failed to delete api token: %w", err)
			}
			deleted++
		}
		if len(output.LastEvaluatedKey) == 0 {
			return deleted, nil
		}
		lastKey = output.LastEvaluatedKey
	}
}
