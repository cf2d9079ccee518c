package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrorInvalidToken cubre firma inválida, token vencido, revocado o mal formado.
var ErrorInvalidToken = errors.New("invalid token")

// Claims del access token. El proveedor viaja en supplier_id.
type Claims struct {
	SupplierID int64 `json:"supplier_id"`
	jwt.RegisteredClaims
}

// Identity devuelve la identidad representada por el token.
func (claims Claims) Identity() Identity {
	return Identity{Username: claims.Subject, SupplierID: claims.SupplierID}
}

// TokenIssuer firma y valida tokens HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer crea un emisor con el secreto y la vida útil dados.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL es la vida útil de cada token emitido.
func (issuer *TokenIssuer) TTL() time.Duration {
	return issuer.ttl
}

// Issue firma un token nuevo para la identidad.
func (issuer *TokenIssuer) Issue(identity Identity) (string, Claims, error) {
	now := issuer.now()
	claims := Claims{
		SupplierID: identity.SupplierID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(issuer.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse valida firma, algoritmo y vencimiento.
func (issuer *TokenIssuer) Parse(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return issuer.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(issuer.now),
	)
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrorInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" || claims.SupplierID <= 0 {
		return Claims{}, fmt.Errorf("%w: missing claims", ErrorInvalidToken)
	}
	return claims, nil
}
