package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const validatorIDKey contextKey = "validator_id"

// ValidatorID returns the authenticated validator identity placed into the
// request context by Middleware, or "" when the request was not authenticated.
func ValidatorID(ctx context.Context) string {
	id, _ := ctx.Value(validatorIDKey).(string)
	return id
}

// WithValidatorID is used by tests and the offline tooling to run requests
// under a fixed identity.
func WithValidatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, validatorIDKey, id)
}

// Middleware authenticates scanner stations. When OIDC_ISSUER is set the
// bearer token is verified against the provider; otherwise the sub claim is
// taken from the JWT as-is, which is only acceptable behind a gateway that
// already verified the signature.
func Middleware() func(http.Handler) http.Handler {
	issuer := os.Getenv("OIDC_ISSUER")
	if issuer == "" {
		return unverifiedJWTMiddleware()
	}

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		panic(fmt.Sprintf("Failed to create OIDC provider: %v", err))
	}

	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			idToken, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Sub string `json:"sub"`
			}
			if err := idToken.Claims(&claims); err != nil {
				http.Error(w, "failed to parse claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), validatorIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unverifiedJWTMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			sub, err := ExtractValidatorIDFromJWT(rawToken)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), validatorIDKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractTokenFromRequest pulls the bearer token out of the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}
