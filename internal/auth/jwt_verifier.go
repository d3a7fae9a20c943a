package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer token into the claims of a signed-in user.
// Every rejection wraps domain.ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.SupabaseClaims, error)
	Close() error
}

// supabaseAudience is the aud claim Supabase puts on user sessions
const supabaseAudience = "authenticated"

// SupabaseVerifier checks Supabase session tokens against the project JWKS
type SupabaseVerifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// NewJWTVerifier fetches the JWKS at jwksURL and keeps it refreshed until Close.
func NewJWTVerifier(jwksURL string, logger *slog.Logger) (*SupabaseVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	v := newVerifier(jwks.Keyfunc, logger)
	v.cancel = cancel
	return v, nil
}

func newVerifier(keyFunc jwt.Keyfunc, logger *slog.Logger) *SupabaseVerifier {
	return &SupabaseVerifier{
		keyFunc: keyFunc,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "ES256"}),
			jwt.WithAudience(supabaseAudience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
		logger: logger,
	}
}

// Verify parses and validates token. Anonymous sessions are rejected.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*models.SupabaseClaims, error) {
	claims := &models.SupabaseClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyFunc); err != nil {
		v.logger.DebugContext(ctx, "token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	if !claims.IsAuthenticated() {
		v.logger.DebugContext(ctx, "token is not a signed-in session",
			"role", claims.Role,
			"anonymous", claims.IsAnonymous,
			"user_id", claims.Subject,
		)
		return nil, fmt.Errorf("%w: session is not authenticated", domain.ErrUnauthorized)
	}

	return claims, nil
}

// Close stops the background JWKS refresh
func (v *SupabaseVerifier) Close() error {
	if v.cancel != nil {
		v.cancel()
	}
	return nil
}
