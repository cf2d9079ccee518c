package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lelo88/pricelist-api-golang/internal/auth"
	"github.com/Lelo88/pricelist-api-golang/internal/config"
	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
)

type testServer struct {
	router      chi.Router
	revocations *auth.RevocationStore
}

func newTestServer(t *testing.T, loginsPerMinute int, withRedis bool) testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	credentials := auth.NewCredentialStore([]config.UserCredential{{Username: "ferreteria", SupplierID: 7, PasswordHash: string(hash)}})
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	var server testServer
	var revoker auth.Revoker
	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		server.revocations = auth.NewRevocationStore(client)
		revoker = server.revocations
	}

	authenticate := auth.Middleware(issuer, revoker, logger)
	router := chi.NewRouter()
	auth.RegisterRoutes(router, auth.NewHandler(credentials, issuer, revoker, logger), authenticate, loginsPerMinute)
	router.With(authenticate).Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFrom(r.Context())
		httpx.OK(w, r, http.StatusOK, "", identity)
	})

	server.router = router
	return server
}

func (server testServer) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, httpx.Response) {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.RemoteAddr = "10.0.0.1:4000"
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)

	var response httpx.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return recorder, response
}

func (server testServer) login(t *testing.T) string {
	t.Helper()
	recorder, response := server.do(t, http.MethodPost, "/auth/login", `{"username":"ferreteria","password":"s3cret"}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	data, ok := response.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(3600), data["expiresIn"])
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLogin(t *testing.T) {
	t.Run("token carries the supplier identity", func(t *testing.T) {
		server := newTestServer(t, 10, false)
		token := server.login(t)

		recorder, response := server.do(t, http.MethodGet, "/whoami", "", token)

		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, map[string]any{"username": "ferreteria", "supplierId": float64(7)}, response.Data)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		server := newTestServer(t, 10, false)

		recorder, response := server.do(t, http.MethodPost, "/auth/login", `{"username":"ferreteria","password":"nope"}`, "")

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		require.Equal(t, "invalid_credentials", response.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		server := newTestServer(t, 10, false)

		recorder, response := server.do(t, http.MethodPost, "/auth/login", `{"username":"ferreteria"}`, "")

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, "invalid_input", response.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		server := newTestServer(t, 10, false)

		recorder, response := server.do(t, http.MethodPost, "/auth/login", `{`, "")

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, "invalid_json", response.Code)
	})

	t.Run("rate limited per ip", func(t *testing.T) {
		server := newTestServer(t, 1, false)

		first, _ := server.do(t, http.MethodPost, "/auth/login", `{"username":"ferreteria","password":"nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, first.Code)

		second, response := server.do(t, http.MethodPost, "/auth/login", `{"username":"ferreteria","password":"s3cret"}`, "")
		require.Equal(t, http.StatusTooManyRequests, second.Code)
		require.Equal(t, "rate_limited", response.Code)
	})
}

func TestMiddleware(t *testing.T) {
	server := newTestServer(t, 10, false)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage token", header: "Bearer abc.def.ghi"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				request.Header.Set("Authorization", tc.header)
			}
			recorder := httptest.NewRecorder()

			server.router.ServeHTTP(recorder, request)

			require.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}
}

type failingRevoker struct{}

func (failingRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	return errors.New("redis down")
}

func (failingRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return false, errors.New("redis down")
}

func TestMiddleware_RevocationUnavailable(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token, _, err := issuer.Issue(auth.Identity{Username: "ferreteria", SupplierID: 7})
	require.NoError(t, err)

	called := false
	handler := auth.Middleware(issuer, failingRevoker{}, slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
	)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.False(t, called)
}

func TestLogout(t *testing.T) {
	t.Run("revoked token is rejected afterwards", func(t *testing.T) {
		server := newTestServer(t, 10, true)
		token := server.login(t)

		recorder, _ := server.do(t, http.MethodPost, "/auth/logout", "", token)
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder, response := server.do(t, http.MethodGet, "/whoami", "", token)
		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		require.Equal(t, "token revoked", response.Message)

		// Un login nuevo emite otro jti y sigue funcionando.
		fresh := server.login(t)
		recorder, _ = server.do(t, http.MethodGet, "/whoami", "", fresh)
		require.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("without revocation store", func(t *testing.T) {
		server := newTestServer(t, 10, false)
		token := server.login(t)

		recorder, response := server.do(t, http.MethodPost, "/auth/logout", "", token)

		require.Equal(t, http.StatusNotImplemented, recorder.Code)
		require.Equal(t, "logout_unavailable", response.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		server := newTestServer(t, 10, true)

		recorder, _ := server.do(t, http.MethodPost, "/auth/logout", "", "")

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestSupplierIDFrom(t *testing.T) {
	_, ok := auth.SupplierIDFrom(context.Background())
	require.False(t, ok)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{Username: "x", SupplierID: 9})
	supplierID, ok := auth.SupplierIDFrom(ctx)
	require.True(t, ok)
	require.Equal(t, int64(9), supplierID)
}
