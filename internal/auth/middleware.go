package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
)

// TokenParser valida un token y devuelve sus claims.
type TokenParser interface {
	Parse(tokenString string) (Claims, error)
}

// Revoker consulta y registra tokens revocados.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}

// Middleware exige "Authorization: Bearer <token>" y deja la identidad en el contexto.
// revocations puede ser nil (sin Redis no hay lista de revocados).
func Middleware(parser TokenParser, revocations Revoker, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				httpx.Fail(w, r, http.StatusUnauthorized, "unauthorized", "missing or malformed authorization header")
				return
			}

			claims, err := parser.Parse(tokenString)
			if err != nil {
				httpx.Fail(w, r, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					logger.ErrorContext(r.Context(), "revocation lookup failed", slog.Any("error", err))
					httpx.Fail(w, r, http.StatusServiceUnavailable, "unavailable", "authentication temporarily unavailable")
					return
				}
				if revoked {
					httpx.Fail(w, r, http.StatusUnauthorized, "unauthorized", "token revoked")
					return
				}
			}

			ctx := WithIdentity(r.Context(), claims.Identity())
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
