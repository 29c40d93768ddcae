package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"tipping-platform/activities"
	"tipping-platform/codec"
	"tipping-platform/config"
	"tipping-platform/gateway"
	"tipping-platform/identity"
	"tipping-platform/notify"
	"tipping-platform/secrets"
	"tipping-platform/store"
	"tipping-platform/workflows"
)

// Version information - update this when deploying new versions
const (
	WorkerVersion = "1.0.0"
	BuildID       = "1.0.0"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := slog.Default()
	ctx := context.Background()

	// Get or generate encryption key
	var keyBytes []byte
	if cfg.EncryptionKey != "" {
		keyBytes, err = hex.DecodeString(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("Failed to decode encryption key: %v", err)
		}
	} else {
		// Generate a random 32-byte key for AES-256
		keyBytes = make([]byte, 32)
		if _, err := rand.Read(keyBytes); err != nil {
			log.Fatalf("Failed to generate encryption key: %v", err)
		}
		log.Printf("Generated encryption key: %s", hex.EncodeToString(keyBytes))
		log.Println("Set ENCRYPTION_KEY environment variable to use this key in production")
	}

	dataConverter, err := codec.NewEncryptionDataConverter(keyBytes)
	if err != nil {
		log.Fatalf("Failed to create encryption data converter: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort:      cfg.TemporalAddress,
		DataConverter: dataConverter,
	})
	if err != nil {
		log.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	// Stores: Postgres when configured, in-memory otherwise (local runs).
	var (
		profiles store.ProfileStore
		counters store.CounterStore
		payments store.PaymentStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()
		pg := store.NewPostgres(pool, logger)
		profiles, counters, payments = pg, pg, pg
	} else {
		log.Println("DATABASE_URL not set; using in-memory store")
		mem := store.NewMemory()
		profiles, counters, payments = mem, mem, mem
	}

	// Notification publisher, with a no-op fallback when the broker is down.
	var publisher notify.Publisher
	if cfg.RabbitMQURL != "" {
		ep, err := notify.NewEventPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			log.Printf("RabbitMQ unavailable (%v); notifications will be dropped", err)
			publisher = &notify.Noop{Logger: logger}
		} else {
			publisher = ep
			defer ep.Close()
		}
	} else {
		log.Println("RABBITMQ_URL not set; notifications will be dropped")
		publisher = &notify.Noop{Logger: logger}
	}

	idp := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, cfg.IdentityPoolID, logger)

	gatewayBaseURL, err := secrets.Env{}.Get(ctx, cfg.GatewayBaseURLSecret)
	if err != nil {
		log.Fatalf("Unable to resolve gateway base URL: %v", err)
	}
	gw := gateway.NewClient(gateway.Config{
		BaseURL:      gatewayBaseURL,
		TenantID:     cfg.GatewayTenantID,
		Scheme:       gateway.AuthScheme(cfg.GatewayAuthScheme),
		ClientID:     cfg.GatewayClientID,
		ClientSecret: cfg.GatewayClientSecret,
		Identity:     cfg.GatewayIdentity,
		Password:     cfg.GatewayPassword,
	}, logger)

	buildID := os.Getenv("BUILD_ID")
	if buildID == "" {
		buildID = BuildID
	}

	w := worker.New(c, cfg.TaskQueue, worker.Options{
		BuildID:                                buildID,
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.ProvisioningWorkflow)
	w.RegisterWorkflow(workflows.PaymentWorkflow)

	// Register activities
	provisioning := activities.NewProvisioningActivities(
		idp, profiles, counters, gw, publisher, cfg.NotifyFailureTopic, cfg.WalletCurrency)
	w.RegisterActivity(provisioning.ExecuteStep)
	w.RegisterActivity(provisioning.NotifyProvisioningFailure)

	payment := activities.NewPaymentActivities(
		payments, gw, publisher, cfg.NotifySuccessTopic, cfg.NotifyFailureTopic)
	w.RegisterActivity(payment.SubmitPayment)

	log.Println("Starting Temporal worker...")
	log.Printf("Worker Version: %s", WorkerVersion)
	log.Printf("Build ID: %s", buildID)
	log.Printf("Temporal address: %s", cfg.TemporalAddress)
	log.Printf("Task queue: %s", cfg.TaskQueue)
	log.Println("Registered workflows: ProvisioningWorkflow, PaymentWorkflow")
	log.Println("Encryption: Enabled")

	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalf("Unable to start worker: %v", err)
	}
}
