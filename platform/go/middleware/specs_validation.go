package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
)

// ValidateAuthenticationViaSwagger OpenAPI request validation against the embedded spec (with permissive auth func for public endpoints)
// Provide AuthenticationFunc to satisfy operations that declare security in OpenAPI.
func ValidateAuthenticationViaSwagger(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	// Enforce presence of Bearer token for endpoints that require bearerAuth.
	// For operations that allow anonymous (security: [{}] or no security), the validator will not require bearerAuth.
	// Token verification itself happens earlier in the JWT middleware.
	if input != nil && input.SecuritySchemeName == "bearerAuth" {
		r := input.RequestValidationInput.Request
		if r == nil {
			return fmt.Errorf("no request in validation input")
		}
		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fmt.Errorf("missing or invalid Authorization header")
		}
	}
	return nil
}
