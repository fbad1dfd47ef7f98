package compute

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

type ecsAPI interface {
	UpdateTaskProtection(ctx context.Context, params *ecs.UpdateTaskProtectionInput, optFns ...func(*ecs.Options)) (*ecs.UpdateTaskProtectionOutput, error)
}

type Config struct {
	ClusterName *string
	TaskArn     *string
}

type Client struct {
	ecs ecsAPI
	cfg Config
}

func NewClient(ecsClient ecsAPI, cfg Config) *Client {
	return &Client{
		ecs: ecsClient,
		cfg: cfg,
	}
}

type TaskMetadata struct {
	TaskArn     string `json:"TaskARN"`
	ClusterName string `json:"Cluster"`
}

// LoadTaskMetadata reads the running task's identity from the ECS metadata
// endpoint. Outside ECS it returns an empty Config.
func LoadTaskMetadata(ctx context.Context) (Config, error) {
	endpoint := os.Getenv("ECS_CONTAINER_METADATA_URI_V4")
	if endpoint == "" {
		return Config{}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/task", nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Config{}, fmt.Errorf("failed to fetch task metadata: %w", err)
	}
	defer resp.Body.Close()
	var metadata TaskMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return Config{}, fmt.Errorf("failed to decode task metadata: %w", err)
	}
	return Config{
		ClusterName: &metadata.ClusterName,
		TaskArn:     &metadata.TaskArn,
	}, nil
}
