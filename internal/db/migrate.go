package db

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schema string

// Schema devuelve el DDL embebido (lista_precios, vigencia_lista_precios, catalogo_materiales).
func Schema() string {
	return schema
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Migrate aplica el schema embebido. Es idempotente (IF NOT EXISTS).
func Migrate(ctx context.Context, database execer) error {
	_, err := database.Exec(ctx, schema)
	return err
}
