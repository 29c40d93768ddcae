package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"tipping-platform/codec"
	"tipping-platform/config"
	"tipping-platform/models"
	"tipping-platform/workflows"
)

func main() {
	// Command line flags
	mode := flag.String("mode", "signup", "Workflow to start: signup or payment")

	// Signup flags
	accountType := flag.String("account-type", "beneficiary", "Account type: payer, beneficiary, or operator")
	firstName := flag.String("first-name", "", "First name")
	familyName := flag.String("family-name", "", "Family name")
	email := flag.String("email", "", "Email address")
	phone := flag.String("phone", "", "Phone number")
	address := flag.String("address", "", "Postal address (optional)")

	// Payment flags
	amount := flag.Float64("amount", 0, "Payment amount")
	currency := flag.String("currency", "ZAR", "Payment currency")
	walletID := flag.String("wallet-id", "", "Destination wallet ID")
	payerID := flag.String("payer-id", "", "Payer profile ID")
	beneficiaryID := flag.String("beneficiary-id", "", "Beneficiary profile ID")
	yourReference := flag.String("your-reference", "", "Your reference")
	theirReference := flag.String("their-reference", "", "Their reference")
	idempotencyToken := flag.String("idempotency-token", "", "Idempotency token (defaults to a new UUID)")

	// Query flags
	query := flag.Bool("query", false, "Query provisioning workflow state")
	workflowID := flag.String("workflow-id", "", "Workflow ID for query operations")
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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
		log.Printf("Warning: Using generated encryption key. Set ENCRYPTION_KEY env var to match worker.")
		log.Printf("Generated key: %s", hex.EncodeToString(keyBytes))
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

	ctx := context.Background()

	if *query {
		if *workflowID == "" {
			log.Fatal("Workflow ID is required for query operations. Use -workflow-id flag")
		}
		queryProvisioningState(ctx, c, *workflowID)
		return
	}

	switch *mode {
	case "signup":
		startProvisioning(ctx, c, cfg.TaskQueue, models.WorkflowState{
			AccountType: models.AccountType(*accountType),
			FirstName:   *firstName,
			FamilyName:  *familyName,
			Email:       *email,
			PhoneNumber: *phone,
			Address:     *address,
		})
	case "payment":
		startPayment(ctx, c, cfg.TaskQueue, models.PaymentInput{
			IdempotencyToken:    *idempotencyToken,
			Amount:              *amount,
			Currency:            *currency,
			DestinationWalletID: *walletID,
			PayerID:             *payerID,
			BeneficiaryID:       *beneficiaryID,
			YourReference:       *yourReference,
			TheirReference:      *theirReference,
		})
	default:
		log.Fatalf("Unknown mode: %s. Valid modes: signup, payment", *mode)
	}
}

func startProvisioning(ctx context.Context, c client.Client, taskQueue string, state models.WorkflowState) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("provisioning-%s", uuid.NewString()),
		TaskQueue: taskQueue,
	}

	log.Printf("Starting provisioning workflow for %s %s (%s)", state.FirstName, state.FamilyName, state.AccountType)
	log.Printf("Workflow ID: %s", workflowOptions.ID)

	we, err := c.ExecuteWorkflow(ctx, workflowOptions, workflows.ProvisioningWorkflow, state)
	if err != nil {
		log.Fatalf("Unable to execute workflow: %v", err)
	}

	log.Printf("Started workflow successfully")
	log.Printf("WorkflowID: %s", we.GetID())
	log.Printf("RunID: %s", we.GetRunID())
	log.Println("\nTo query workflow state, run:")
	log.Printf("  go run starter/starter.go -query -workflow-id %s\n", we.GetID())

	log.Println("\nWaiting for workflow to complete...")
	var result models.WorkflowState
	if err := we.Get(ctx, &result); err != nil {
		log.Printf("Workflow completed with error: %v", err)
		return
	}
	log.Printf("Workflow completed successfully!")
	log.Printf("Profile ID: %s", result.ProfileID)
	log.Printf("Account number: %s", result.AccountNumber)
	log.Printf("External customer: %s, wallet: %s", result.ExternalCustomerID, result.ExternalWalletID)
}

func startPayment(ctx context.Context, c client.Client, taskQueue string, input models.PaymentInput) {
	if input.IdempotencyToken == "" {
		input.IdempotencyToken = uuid.NewString()
	}
	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("payment-%s", input.IdempotencyToken),
		TaskQueue: taskQueue,
	}

	log.Printf("Starting payment workflow: %.2f %s to wallet %s", input.Amount, input.Currency, input.DestinationWalletID)
	log.Printf("Workflow ID: %s", workflowOptions.ID)

	we, err := c.ExecuteWorkflow(ctx, workflowOptions, workflows.PaymentWorkflow, input)
	if err != nil {
		log.Fatalf("Unable to execute workflow: %v", err)
	}

	log.Printf("Started workflow successfully")
	log.Printf("WorkflowID: %s", we.GetID())
	log.Printf("RunID: %s", we.GetRunID())

	log.Println("\nWaiting for workflow to complete...")
	var result models.PaymentResult
	if err := we.Get(ctx, &result); err != nil {
		log.Printf("Workflow completed with error: %v", err)
		return
	}
	log.Printf("Payment submitted: id=%s status=%s", result.PaymentID, result.Status)
	if result.AuthorizationURL != "" {
		log.Printf("Authorization URL: %s", result.AuthorizationURL)
	}
}

func queryProvisioningState(ctx context.Context, c client.Client, workflowID string) {
	log.Printf("Querying workflow state: %s", workflowID)

	resp, err := c.QueryWorkflow(ctx, workflowID, "", workflows.QueryProvisioningState)
	if err != nil {
		log.Fatalf("Failed to query workflow: %v", err)
	}

	var state models.WorkflowState
	if err := resp.Get(&state); err != nil {
		log.Fatalf("Failed to decode query result: %v", err)
	}

	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal state: %v", err)
	}

	log.Println("\nWorkflow State:")
	fmt.Println(string(stateJSON))
}
