package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/trisbattle/arena/internal/domains/entities"
)

var ErrProfileNotFound = fmt.Errorf("profile not found")

func (client *Client) GetProfile(ctx context.Context, id string) (entities.Profile, error) {
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: client.cfg.ProfilesTableName,
		Key: map[string]types.AttributeValue{
			"Id": &types.AttributeValueMemberS{
				Value: id,
			},
		},
	})
	if err != nil {
		return entities.Profile{}, err
	}
	if output.Item == nil {
		return entities.Profile{}, ErrProfileNotFound
	}
	var profile entities.Profile
	if err := attributevalue.UnmarshalMap(output.Item, &profile); err != nil {
		return entities.Profile{}, err
	}
	return profile, nil
}
