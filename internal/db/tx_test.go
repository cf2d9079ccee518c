package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
	options  pgx.TxOptions
	ctx      context.Context
}

func (beginner *fakeBeginner) BeginTx(ctx context.Context, options pgx.TxOptions) (pgx.Tx, error) {
	beginner.ctx = ctx
	beginner.options = options
	if beginner.beginErr != nil {
		return nil, beginner.beginErr
	}
	return beginner.tx, nil
}

// fakeTx implementa solo lo que WithTx usa; el resto de pgx.Tx queda nil.
type fakeTx struct {
	pgx.Tx

	execSQL        []string
	execErr        error
	commitErr      error
	committed      bool
	rollbackCalled bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execSQL = append(tx.execSQL, sql)
	return pgconn.CommandTag{}, tx.execErr
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rollbackCalled = true
	if tx.committed {
		return pgx.ErrTxClosed
	}
	return nil
}

func TestWithTx(t *testing.T) {
	t.Run("commit on success", func(t *testing.T) {
		tx := &fakeTx{}
		beginner := &fakeBeginner{tx: tx}

		called := false
		err := WithTx(context.Background(), beginner, 2*time.Second, func(ctx context.Context, got pgx.Tx) error {
			called = true
			require.Equal(t, tx, got)
			return nil
		})

		require.NoError(t, err)
		require.True(t, called)
		require.True(t, tx.committed)
		require.Equal(t, pgx.ReadCommitted, beginner.options.IsoLevel)
		require.Equal(t, []string{"SET LOCAL statement_timeout = 2000"}, tx.execSQL)

		_, hasDeadline := beginner.ctx.Deadline()
		require.True(t, hasDeadline)
	})

	t.Run("no timeout skips statement_timeout", func(t *testing.T) {
		tx := &fakeTx{}
		beginner := &fakeBeginner{tx: tx}

		err := WithTx(context.Background(), beginner, 0, func(context.Context, pgx.Tx) error { return nil })

		require.NoError(t, err)
		require.Empty(t, tx.execSQL)

		_, hasDeadline := beginner.ctx.Deadline()
		require.False(t, hasDeadline)
	})

	t.Run("begin error", func(t *testing.T) {
		beginErr := errors.New("pool exhausted")
		beginner := &fakeBeginner{beginErr: beginErr}

		called := false
		err := WithTx(context.Background(), beginner, time.Second, func(context.Context, pgx.Tx) error {
			called = true
			return nil
		})

		require.ErrorIs(t, err, beginErr)
		require.False(t, called)
	})

	t.Run("fn error rolls back", func(t *testing.T) {
		tx := &fakeTx{}
		beginner := &fakeBeginner{tx: tx}

		fnErr := errors.New("insert failed")
		err := WithTx(context.Background(), beginner, time.Second, func(context.Context, pgx.Tx) error {
			return fnErr
		})

		require.ErrorIs(t, err, fnErr)
		require.False(t, tx.committed)
		require.True(t, tx.rollbackCalled)
	})

	t.Run("statement timeout error rolls back", func(t *testing.T) {
		execErr := errors.New("set failed")
		tx := &fakeTx{execErr: execErr}
		beginner := &fakeBeginner{tx: tx}

		called := false
		err := WithTx(context.Background(), beginner, time.Second, func(context.Context, pgx.Tx) error {
			called = true
			return nil
		})

		require.ErrorIs(t, err, execErr)
		require.False(t, called)
		require.True(t, tx.rollbackCalled)
	})

	t.Run("commit error", func(t *testing.T) {
		commitErr := errors.New("serialization failure")
		tx := &fakeTx{commitErr: commitErr}
		beginner := &fakeBeginner{tx: tx}

		err := WithTx(context.Background(), beginner, 0, func(context.Context, pgx.Tx) error { return nil })

		require.ErrorIs(t, err, commitErr)
		require.True(t, tx.rollbackCalled)
	})
}

type fakeExecer struct {
	sql string
	err error
}

func (execer *fakeExecer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	execer.sql = sql
	return pgconn.CommandTag{}, execer.err
}

func TestMigrate(t *testing.T) {
	t.Run("applies embedded schema", func(t *testing.T) {
		execer := &fakeExecer{}

		err := Migrate(context.Background(), execer)

		require.NoError(t, err)
		require.Equal(t, Schema(), execer.sql)
		require.Contains(t, execer.sql, "CREATE TABLE IF NOT EXISTS lista_precios")
		require.Contains(t, execer.sql, "id_proveedor bigint NOT NULL UNIQUE")
	})

	t.Run("exec error", func(t *testing.T) {
		execErr := errors.New("permission denied")
		execer := &fakeExecer{err: execErr}

		require.ErrorIs(t, Migrate(context.Background(), execer), execErr)
	})
}
