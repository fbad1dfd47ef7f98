package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/trisbattle/arena/internal/aws/storage"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

var storageClient *storage.Client

func init() {
	cfg, _ := config.LoadDefaultConfig(context.TODO())
	storageClient = storage.NewClient(
		dynamodb.NewFromConfig(cfg),
		storage.NewConfig(
			os.Getenv("PROFILES_TABLE_NAME"),
			os.Getenv("API_TOKENS_TABLE_NAME"),
			os.Getenv("ROOM_KEYS_TABLE_NAME"),
		),
	)
}

// handler runs on a schedule and deletes expired API tokens and join keys.
// A failed sweep is logged and picked up by the next run.
func handler(ctx context.Context, event events.CloudWatchEvent) error {
	now := time.Now()

	tokens, err := storageClient.DeleteExpiredApiTokens(ctx, now)
	if err != nil {
		logging.Error("Failed to delete expired api tokens", zap.Error(err))
	}
	keys, err := storageClient.DeleteExpiredRoomKeys(ctx, now)
	if err != nil {
		logging.Error("Failed to delete expired room keys", zap.Error(err))
	}

	logging.Info("credential sweep finished",
		zap.String("event_id", event.ID),
		zap.Int("api_tokens", tokens),
		zap.Int("room_keys", keys),
	)
	return nil
}

func main() {
	lambda.Start(handler)
}
