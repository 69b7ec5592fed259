package services

import (
	"context"
	"database/sql"
)

// operation is the SQL transaction backing one ledger operation. seq is the
// journal sequence number the operation will commit under.
type operation struct {
	tx  *sql.Tx
	seq uint64
}

type operationKey struct{}

func withOperation(ctx context.Context, op *operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

func operationFrom(ctx context.Context) (*operation, bool) {
	op, ok := ctx.Value(operationKey{}).(*operation)
	return op, ok && op != nil
}
