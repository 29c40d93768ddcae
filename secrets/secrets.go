// Package secrets resolves named secret values for external collaborators,
// such as the payment gateway's base path.
package secrets

import (
	"context"
	"fmt"
	"os"
)

// Resolver looks up a secret by name.
type Resolver interface {
	Get(ctx context.Context, name string) (string, error)
}

// Env resolves secrets from environment variables.
type Env struct{}

func (Env) Get(_ context.Context, name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("secret %q is not set", name)
	}
	return value, nil
}

// Static resolves secrets from a fixed map. Used in tests.
type Static map[string]string

func (s Static) Get(_ context.Context, name string) (string, error) {
	value, ok := s[name]
	if !ok {
		return "", fmt.Errorf("secret %q is not set", name)
	}
	return value, nil
}
