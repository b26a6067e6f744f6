package environment

import (
	"context"
	"strings"
)

// Environment represents application environment.
type Environment string

const (
	// Development for development environment.
	Development Environment = "development"
	// Production for production environment.
	Production Environment = "production"
	// Staging for staging environment.
	Staging Environment = "staging"
	// Test for automated test runs.
	Test Environment = "test"
)

// Parse maps common spellings ("dev", "prod", "stage") to an Environment.
// Unknown values are returned lower-cased as-is.
func Parse(s string) Environment {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "dev", "local":
		return Development
	case "prod":
		return Production
	case "stage":
		return Staging
	case "testing":
		return Test
	default:
		return Environment(v)
	}
}

func (e Environment) String() string {
	return string(e)
}

type contextKey struct{}

// WithContext adds environment to context
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves environment from context
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

// IsProduction checks if the environment from context is production
func IsProduction(ctx context.Context) bool {
	return FromContext(ctx) == Production
}

// IsDevelopment checks if the environment from context is development.
// Development enables the local-debug host allowances of the tenant middleware.
func IsDevelopment(ctx context.Context) bool {
	return FromContext(ctx) == Development
}

// IsStaging checks if the environment from context is staging
func IsStaging(ctx context.Context) bool {
	return FromContext(ctx) == Staging
}

// IsTest checks if the environment from context is test
func IsTest(ctx context.Context) bool {
	return FromContext(ctx) == Test
}
