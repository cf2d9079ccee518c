package auth

import "context"

// Identity es el usuario autenticado y el proveedor que representa.
type Identity struct {
	Username   string `json:"username"`
	SupplierID int64  `json:"supplierId"`
}

type identityKey struct{}

// WithIdentity guarda la identidad en el contexto del request.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom devuelve la identidad autenticada, si existe.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// SupplierIDFrom devuelve el id de proveedor del usuario autenticado.
func SupplierIDFrom(ctx context.Context) (int64, bool) {
	identity, ok := IdentityFrom(ctx)
	if !ok || identity.SupplierID <= 0 {
		return 0, false
	}
	return identity.SupplierID, true
}
