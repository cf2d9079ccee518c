package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Lelo88/pricelist-api-golang/internal/config"
)

// ErrorInvalidCredentials no distingue usuario inexistente de contraseña incorrecta.
var ErrorInvalidCredentials = errors.New("invalid credentials")

// Hash de relleno para que un usuario inexistente cueste lo mismo que uno real.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pricelist-dummy-password"), bcrypt.DefaultCost)

// CredentialStore es el conjunto fijo de usuarios habilitados (AUTH_USERS).
type CredentialStore struct {
	users map[string]config.UserCredential
}

// NewCredentialStore indexa las credenciales por nombre de usuario.
func NewCredentialStore(users []config.UserCredential) *CredentialStore {
	store := &CredentialStore{users: make(map[string]config.UserCredential, len(users))}
	for _, user := range users {
		store.users[strings.ToLower(user.Username)] = user
	}
	return store
}

// Authenticate verifica usuario y contraseña contra el hash bcrypt.
func (store *CredentialStore) Authenticate(username, password string) (Identity, error) {
	user, ok := store.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Identity{}, ErrorInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrorInvalidCredentials
	}
	return Identity{Username: user.Username, SupplierID: user.SupplierID}, nil
}

// HashPassword genera el hash bcrypt para cargar en AUTH_USERS.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
