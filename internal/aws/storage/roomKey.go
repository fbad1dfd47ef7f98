package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/trisbattle/arena/internal/domains/entities"
)

var ErrRoomKeyNotFound = fmt.Errorf("room key not found")

func roomKeyKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"Key": &types.AttributeValueMemberS{Value: key},
	}
}

func (client *Client) GetRoomKey(ctx context.Context, key string) (entities.RoomKey, error) {
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: client.cfg.RoomKeysTableName,
		Key:       roomKeyKey(key),
	})
	if err != nil {
		return entities.RoomKey{}, err
	}
	if output.Item == nil {
		return entities.RoomKey{}, ErrRoomKeyNotFound
	}
	var roomKey entities.RoomKey
	if err := attributevalue.UnmarshalMap(output.Item, &roomKey); err != nil {
		return entities.RoomKey{}, err
	}
	return roomKey, nil
}

func (client *Client) PutRoomKey(ctx context.Context, roomKey entities.RoomKey) error {
	av, err := attributevalue.MarshalMap(roomKey)
	if err != nil {
		return fmt.Errorf("failed to marshal room key map: %w", err)
	}
	_, err = client.dynamodb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: client.cfg.RoomKeysTableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put room key: %w", err)
	}
	return nil
}

// ConsumeRoomKey deletes a key and returns it. Concurrent consumers race on
// a conditional delete, so at most one of them gets the key.
func (client *Client) ConsumeRoomKey(ctx context.Context, key string) (entities.RoomKey, error) {
	output, err := client.dynamodb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                client.cfg.RoomKeysTableName,
		Key:                      roomKeyKey(key),
		ConditionExpression:      aws.String("attribute_exists(#key)"),
		ExpressionAttributeNames: map[string]string{"#key": "Key"},
		ReturnValues:             types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return entities.RoomKey{}, ErrRoomKeyNotFound
		}
		return entities.RoomKey{}, fmt.Errorf("failed to consume room key: %w", err)
	}
	var roomKey entities.RoomKey
	if err := attributevalue.UnmarshalMap(output.Attributes, &roomKey); err != nil {
		return entities.RoomKey{}, err
	}
	return roomKey, nil
}

func (client *Client) FetchRoomKeys(ctx context.Context, roomId string) ([]entities.RoomKey, error) {
	var (
		keys    []entities.RoomKey
		lastKey map[string]types.AttributeValue
	)
	for {
		output, err := client.dynamodb.Query(ctx, &dynamodb.QueryInput{
			TableName:              client.cfg.RoomKeysTableName,
			IndexName:              client.cfg.RoomKeysRoomIndex,
			KeyConditionExpression: aws.String("RoomId = :roomId"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":roomId": &types.AttributeValueMemberS{Value: roomId},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query room keys: %w", err)
		}
		var page []entities.RoomKey
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		if len(output.LastEvaluatedKey) == 0 {
			return keys, nil
		}
		lastKey = output.LastEvaluatedKey
	}
}

// GetMasterRoomKey returns the room's multi-use key.
func (client *Client) GetMasterRoomKey(ctx context.Context, roomId string) (entities.RoomKey, error) {
	keys, err := client.FetchRoomKeys(ctx, roomId)
	if err != nil {
		return entities.RoomKey{}, err
	}
	for _, key := range keys {
		if !key.SingleUse {
			return key, nil
		}
	}
	return entities.RoomKey{}, ErrRoomKeyNotFound
}

func (client *Client) DeleteRoomKey(ctx context.Context, key string) error {
	_, err := client.dynamodb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: client.cfg.RoomKeysTableName,
		Key:       roomKeyKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete room key: %w", err)
	}
	return nil
}

func (client *Client) DeleteRoomKeys(ctx context.Context, roomId string) error {
	keys, err := client.FetchRoomKeys(ctx, roomId)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := client.DeleteRoomKey(ctx, key.Key); err != nil {
			return err
		}
	}
	return nil
}

func (client *Client) DeleteExpiredRoomKeys(ctx context.Context, now time.Time) (int, error) {
	var lastKey map[string]types.AttributeValue
	deleted := 0
	for {
		output, err := client.dynamodb.Scan(ctx, &dynamodb.ScanInput{
			TableName:                client.cfg.RoomKeysTableName,
			FilterExpression:         aws.String("attribute_exists(#expiresAt) AND #expiresAt <= :now"),
			ExpressionAttributeNames: map[string]string{"#expiresAt": "ExpiresAt"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to scan room keys: %w", err)
		}
		var keys []entities.RoomKey
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &keys); err != nil {
			return deleted, fmt.Errorf("failed to unmarshal room keys: %w", err)
		}
		for _, key := range keys {
			if err := client.DeleteRoomKey(ctx, key.Key); err != nil {
				return deleted, err
			}
			deleted++
		}
		if len(output.LastEvaluatedKey) == 0 {
			return deleted, nil
		}
		lastKey = output.LastEvaluatedKey
	}
}
