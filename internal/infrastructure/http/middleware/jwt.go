package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"3tcapital/taxcore/internal/infrastructure/config"
	ctxutil "3tcapital/taxcore/internal/infrastructure/context"
	httperrors "3tcapital/taxcore/internal/infrastructure/http"
)

type claimsKey struct{}

// Claims are the verified claims of a caller's token. Issuers put scopes
// either in a space-separated "scope" string or in an "scp" list.
type Claims struct {
	jwt.RegisteredClaims
	Scope string           `json:"scope,omitempty"`
	Scp   jwt.ClaimStrings `json:"scp,omitempty"`
}

// Scopes returns the granted scopes from both claim styles.
func (c *Claims) Scopes() []string {
	scopes := strings.Fields(c.Scope)
	return append(scopes, c.Scp...)
}

// JWTAuthenticator authenticates gateway callers with bearer tokens signed by
// keys from a remote JWKS.
type JWTAuthenticator struct {
	cfg        config.AuthSettings
	log        *slog.Logger
	keyFunc    jwt.Keyfunc
	parserOpts []jwt.ParserOption
	cancel     context.CancelFunc
	bypassPath map[string]struct{}
}

// NewJWTAuthenticator loads the JWKS when auth is enabled and keeps it
// refreshed until Close.
func NewJWTAuthenticator(cfg config.AuthSettings, log *slog.Logger) (*JWTAuthenticator, error) {
	auth := newAuthenticator(cfg, log)
	if !cfg.Enabled {
		return auth, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	override := keyfunc.Override{
		RefreshInterval: 6 * time.Hour,
		RefreshErrorHandlerFunc: func(url string) func(context.Context, error) {
			return func(_ context.Context, err error) {
				log.Error("Failed to refresh JWKS", "url", url, "error", err)
			}
		},
		HTTPTimeout: 10 * time.Second,
	}

	jwks, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{cfg.JWKSetURI}, override)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load JWKS: %w", err)
	}
	auth.keyFunc = jwks.Keyfunc
	auth.cancel = cancel

	return auth, nil
}

func newAuthenticator(cfg config.AuthSettings, log *slog.Logger) *JWTAuthenticator {
	opts := []jwt.ParserOption{
		jwt.WithIssuer(cfg.IssuerURI),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodRS384.Alg(),
			jwt.SigningMethodRS512.Alg(),
			jwt.SigningMethodPS256.Alg(),
			jwt.SigningMethodES256.Alg(),
		}),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	auth := &JWTAuthenticator{
		cfg:        cfg,
		log:        log,
		parserOpts: opts,
		bypassPath: make(map[string]struct{}),
	}
	for _, path := range cfg.BypassPaths {
		if path != "" {
			auth.bypassPath[path] = struct{}{}
		}
	}
	return auth
}

// Middleware rejects requests without a valid token (401) or without the
// required scopes (403). Verified claims are stored in the request context.
func (a *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	if !a.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.shouldBypass(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		log := ctxutil.Logger(r.Context(), a.log)

		tokenString, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			httperrors.WriteError(w, http.StatusUnauthorized, "authentication required", []string{err.Error()}, a.log)
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, a.keyFunc, a.parserOpts...)
		if err != nil || !token.Valid {
			log.Warn("Token validation failed", "error", err, "path", r.URL.Path)
			httperrors.WriteError(w, http.StatusUnauthorized, "authentication required", []string{"invalid or expired token"}, a.log)
			return
		}

		if missing := missingScopes(a.cfg.RequiredScopes, claims.Scopes()); len(missing) > 0 {
			log.Warn("Token lacks required scopes",
				"subject", claims.Subject,
				"missing", missing,
				"path", r.URL.Path,
			)
			errs := make([]string, len(missing))
			for i, s := range missing {
				errs[i] = "missing scope " + s
			}
			httperrors.WriteError(w, http.StatusForbidden, "insufficient scope", errs, a.log)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFrom returns the verified claims stored by Middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// Subject returns the sub claim of the verified token in ctx, if any.
func Subject(ctx context.Context) string {
	claims, ok := ClaimsFrom(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}

// Close stops background JWKS refreshes.
func (a *JWTAuthenticator) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *JWTAuthenticator) shouldBypass(path string) bool {
	_, ok := a.bypassPath[path]
	return ok
}

func missingScopes(required, granted []string) []string {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	var missing []string
	for _, s := range required {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}
