package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lelo88/pricelist-api-golang/internal/config"
)

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestCredentialStore_Authenticate(t *testing.T) {
	store := NewCredentialStore([]config.UserCredential{
		{Username: "Ferreteria", SupplierID: 7, PasswordHash: hashForTest(t, "s3cret")},
	})

	t.Run("valid credentials", func(t *testing.T) {
		identity, err := store.Authenticate(" ferreteria ", "s3cret")

		require.NoError(t, err)
		require.Equal(t, Identity{Username: "Ferreteria", SupplierID: 7}, identity)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := store.Authenticate("ferreteria", "nope")

		require.ErrorIs(t, err, ErrorInvalidCredentials)
	})

	t.Run("unknown user looks the same", func(t *testing.T) {
		_, err := store.Authenticate("ghost", "s3cret")

		require.ErrorIs(t, err, ErrorInvalidCredentials)
	})
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = HashPassword("")
	require.Error(t, err)
}
