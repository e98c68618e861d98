package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type contextKey string

const DBTxKey contextKey = "db_tx"

// WithTx returns a context carrying an open transaction.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// TxFromContext retrieves the open transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}
