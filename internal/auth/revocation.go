package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "pricelist:revoked:"

// RevocationStore guarda los jti revocados en Redis hasta que el token vence.
type RevocationStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRevocationStore usa un cliente ya conectado.
func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

// NewRedisClient conecta y hace ping con timeout.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("auth: redis ping: %w", err)
	}
	return client, nil
}

// Revoke marca el jti como revocado hasta until. Un token ya vencido no se guarda.
func (store *RevocationStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(store.now())
	if ttl <= 0 {
		return nil
	}
	if err := store.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// IsRevoked indica si el jti fue revocado.
func (store *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	count, err := store.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check revocation: %w", err)
	}
	return count > 0, nil
}

// Ping permite usar el store en /ready.
func (store *RevocationStore) Ping(ctx context.Context) error {
	return store.client.Ping(ctx).Err()
}
