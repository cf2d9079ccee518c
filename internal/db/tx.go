package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner es lo mínimo que necesitamos para abrir una transacción.
// *pgxpool.Pool lo cumple; en tests se reemplaza por un fake.
type TxBeginner interface {
	BeginTx(ctx context.Context, options pgx.TxOptions) (pgx.Tx, error)
}

// WithTx ejecuta fn dentro de una transacción.
// Si timeout > 0 la transacción corre con deadline y statement_timeout local;
// fn recibe ese ctx y debe usarlo en cada query.
// Cualquier error de fn (o del commit) deja la transacción revertida.
func WithTx(ctx context.Context, database TxBeginner, timeout time.Duration, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := database.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}

	// Rollback después de un Commit exitoso es un no-op (pgx.ErrTxClosed).
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if timeout > 0 {
		statement := fmt.Sprintf("SET LOCAL statement_timeout = %d", timeout.Milliseconds())
		if _, err := tx.Exec(ctx, statement); err != nil {
			return fmt.Errorf("db: set statement timeout: %w", err)
		}
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit tx: %w", err)
	}

	return nil
}
