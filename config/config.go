// Package config loads service configuration from environment variables
// (with an optional .env file) via Viper.
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the worker and starter binaries.
type Config struct {
	TemporalAddress string `mapstructure:"TEMPORAL_ADDRESS"`
	TaskQueue       string `mapstructure:"TASK_QUEUE"`
	EncryptionKey   string `mapstructure:"ENCRYPTION_KEY"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	NotifySuccessTopic string `mapstructure:"NOTIFY_SUCCESS_TOPIC"`
	NotifyFailureTopic string `mapstructure:"NOTIFY_FAILURE_TOPIC"`

	IdentityBaseURL string `mapstructure:"IDENTITY_BASE_URL"`
	IdentityAPIKey  string `mapstructure:"IDENTITY_API_KEY"`
	IdentityPoolID  string `mapstructure:"IDENTITY_POOL_ID"`

	// The gateway base path lives in the secrets store; this names the entry.
	GatewayBaseURLSecret string `mapstructure:"GATEWAY_BASE_URL_SECRET"`
	GatewayTenantID      string `mapstructure:"GATEWAY_TENANT_ID"`
	GatewayAuthScheme    string `mapstructure:"GATEWAY_AUTH_SCHEME"`
	GatewayClientID      string `mapstructure:"GATEWAY_CLIENT_ID"`
	GatewayClientSecret  string `mapstructure:"GATEWAY_CLIENT_SECRET"`
	GatewayIdentity      string `mapstructure:"GATEWAY_IDENTITY"`
	GatewayPassword      string `mapstructure:"GATEWAY_PASSWORD"`

	WalletCurrency string `mapstructure:"WALLET_CURRENCY"`
}

// Load reads configuration from environment variables and an optional .env
// file at the given path.
func Load(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("TEMPORAL_ADDRESS", "localhost:7233")
	viper.SetDefault("TASK_QUEUE", "account-provisioning-queue")
	viper.SetDefault("NOTIFY_SUCCESS_TOPIC", "platform.events")
	viper.SetDefault("NOTIFY_FAILURE_TOPIC", "platform.alerts")
	viper.SetDefault("GATEWAY_BASE_URL_SECRET", "GATEWAY_BASE_URL")
	viper.SetDefault("GATEWAY_AUTH_SCHEME", "client_credentials")
	viper.SetDefault("WALLET_CURRENCY", "ZAR")

	for _, key := range []string{
		"TEMPORAL_ADDRESS", "TASK_QUEUE", "ENCRYPTION_KEY",
		"DATABASE_URL", "RABBITMQ_URL",
		"NOTIFY_SUCCESS_TOPIC", "NOTIFY_FAILURE_TOPIC",
		"IDENTITY_BASE_URL", "IDENTITY_API_KEY", "IDENTITY_POOL_ID",
		"GATEWAY_BASE_URL_SECRET", "GATEWAY_TENANT_ID", "GATEWAY_AUTH_SCHEME",
		"GATEWAY_CLIENT_ID", "GATEWAY_CLIENT_SECRET",
		"GATEWAY_IDENTITY", "GATEWAY_PASSWORD",
		"WALLET_CURRENCY",
	} {
		_ = viper.BindEnv(key)
	}

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
