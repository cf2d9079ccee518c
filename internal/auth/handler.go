package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
)

// Authenticator verifica credenciales.
type Authenticator interface {
	Authenticate(username, password string) (Identity, error)
}

// Issuer emite tokens para una identidad.
type Issuer interface {
	Issue(identity Identity) (string, Claims, error)
}

// Handler HTTP de login/logout.
type Handler struct {
	credentials Authenticator
	issuer      Issuer
	revocations Revoker
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewHandler crea el handler de autenticación. revocations puede ser nil.
func NewHandler(credentials Authenticator, issuer Issuer, revocations Revoker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		credentials: credentials,
		issuer:      issuer,
		revocations: revocations,
		logger:      logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // segundos
}

// Login maneja POST /auth/login.
func (handler *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&request); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if err := handler.validate.Struct(request); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_input", "username and password are required")
		return
	}

	identity, err := handler.credentials.Authenticate(request.Username, request.Password)
	if err != nil {
		if !errors.Is(err, ErrorInvalidCredentials) {
			handler.logger.ErrorContext(r.Context(), "authentication failed", slog.Any("error", err))
		}
		handler.logger.InfoContext(r.Context(), "login rejected", slog.String("username", request.Username))
		httpx.Fail(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	token, claims, err := handler.issuer.Issue(identity)
	if err != nil {
		handler.logger.ErrorContext(r.Context(), "token issue failed", slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "internal_error", "unexpected error")
		return
	}

	handler.logger.InfoContext(r.Context(), "login", slog.String("username", identity.Username), slog.Int64("supplier_id", identity.SupplierID))
	httpx.OK(w, r, http.StatusOK, "", loginResponse{
		Token:     token,
		ExpiresIn: int64(claims.ExpiresAt.Sub(claims.IssuedAt.Time).Seconds()),
	})
}

// Logout maneja POST /auth/logout: revoca el token actual hasta su vencimiento.
// Requiere Middleware delante.
func (handler *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		httpx.Fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if handler.revocations == nil {
		httpx.Fail(w, r, http.StatusNotImplemented, "logout_unavailable", "token revocation is not configured")
		return
	}

	if err := handler.revocations.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		handler.logger.ErrorContext(r.Context(), "token revoke failed", slog.Any("error", err))
		httpx.Fail(w, r, http.StatusServiceUnavailable, "unavailable", "could not revoke token")
		return
	}

	httpx.OK(w, r, http.StatusOK, "Sesión cerrada", nil)
}
