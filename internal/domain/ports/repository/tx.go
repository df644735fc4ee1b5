package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager provides a thin abstraction to execute a function within
// a database transaction, passing the underlying transaction handle via `tx`.
//
// Repository methods accept a `tx Tx` argument and detect a transaction
// handle implementation-side (pgx.Tx for Postgres); they MUST gracefully
// accept a nil tx and fall back to the pool. This keeps the use-case
// interfaces free of storage types while still letting the submission path
// run its recheck-and-insert as one atomic unit.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
