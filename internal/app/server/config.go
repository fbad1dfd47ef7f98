package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	MaxRooms        int
	MaxPlayers      int
	RoomIdleTimeout time.Duration
	SweepInterval   time.Duration
	KeyTTL          time.Duration

	MoveTimeout     time.Duration
	RoundStartDelay time.Duration
	NextRoundDelay  time.Duration

	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBufferSize int
	MaxMessageSize int64
	RateLimit      float64
	RateBurst      int

	ProtectionGrace time.Duration

	AwsRegion          string
	CognitoUserPoolId  string
	ProfilesTableName  string
	ApiTokensTableName string
	RoomKeysTableName  string
}

func setDefaults() {
	viper.SetDefault("Server.Port", "7202")
	viper.SetDefault("Room.MaxRooms", 100)
	viper.SetDefault("Room.MaxPlayers", 2)
	viper.SetDefault("Room.IdleTimeout", "10s")
	viper.SetDefault("Room.SweepInterval", "1s")
	viper.SetDefault("Room.KeyTTL", "10m")
	viper.SetDefault("Game.MoveTimeout", "5s")
	viper.SetDefault("Game.RoundStartDelay", "3s")
	viper.SetDefault("Game.NextRoundDelay", "3s")
	viper.SetDefault("Connection.PingPeriod", "54s")
	viper.SetDefault("Connection.PongWait", "60s")
	viper.SetDefault("Connection.WriteWait", "10s")
	viper.SetDefault("Connection.SendBufferSize", 256)
	viper.SetDefault("Connection.MaxMessageSize", 64*1024)
	viper.SetDefault("Connection.RateLimit", 30)
	viper.SetDefault("Connection.RateBurst", 60)
	viper.SetDefault("Server.ProtectionGrace", "5m")
	viper.SetDefault("PROFILES_TABLE_NAME", "Profiles")
	viper.SetDefault("API_TOKENS_TABLE_NAME", "ApiTokens")
	viper.SetDefault("ROOM_KEYS_TABLE_NAME", "RoomKeys")
}

func NewConfig() Config {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/server")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	// List of env files to load
	envFiles := []string{
		"./configs/aws/base.env",
		"./configs/aws/cognito.env",
		"./configs/aws/dynamodb.env",
	}

	// Load all env files
	err = loadEnvFiles(envFiles)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	config, err := configFromViper()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return config
}

func configFromViper() (Config, error) {
	var config Config
	durations := map[string]*time.Duration{
		"Room.IdleTimeout":       &config.RoomIdleTimeout,
		"Room.SweepInterval":     &config.SweepInterval,
		"Room.KeyTTL":            &config.KeyTTL,
		"Game.MoveTimeout":       &config.MoveTimeout,
		"Game.RoundStartDelay":   &config.RoundStartDelay,
		"Game.NextRoundDelay":    &config.NextRoundDelay,
		"Connection.PingPeriod":  &config.PingPeriod,
		"Connection.PongWait":    &config.PongWait,
		"Connection.WriteWait":   &config.WriteWait,
		"Server.ProtectionGrace": &config.ProtectionGrace,
	}
	for key, dst := range durations {
		d, err := time.ParseDuration(viper.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	config.Port = viper.GetString("Server.Port")
	config.MaxRooms = viper.GetInt("Room.MaxRooms")
	config.MaxPlayers = viper.GetInt("Room.MaxPlayers")
	config.SendBufferSize = viper.GetInt("Connection.SendBufferSize")
	config.MaxMessageSize = viper.GetInt64("Connection.MaxMessageSize")
	config.RateLimit = viper.GetFloat64("Connection.RateLimit")
	config.RateBurst = viper.GetInt("Connection.RateBurst")
	config.AwsRegion = viper.GetString("AWS_REGION")
	config.CognitoUserPoolId = viper.GetString("COGNITO_USER_POOL_ID")
	config.ProfilesTableName = viper.GetString("PROFILES_TABLE_NAME")
	config.ApiTokensTableName = viper.GetString("API_TOKENS_TABLE_NAME")
	config.RoomKeysTableName = viper.GetString("ROOM_KEYS_TABLE_NAME")

	if config.PingPeriod >= config.PongWait {
		return Config{}, fmt.Errorf("ping period %s must be shorter than pong wait %s", config.PingPeriod, config.PongWait)
	}
	return config, nil
}

func loadEnvFiles(filenames []string) error {
	viper.AutomaticEnv() // Allow override by OS environment variables
	for _, file := range filenames {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		viper.SetConfigFile(file) // Set specific file
		viper.SetConfigType("env")

		err := viper.MergeInConfig()
		if err != nil {
			return err
		}
	}
	return nil
}
