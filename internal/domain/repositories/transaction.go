package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs check-then-write sequences atomically
type TransactionManager interface {
	// ExecTx executes fn within a transaction; repositories called with the
	// ctx passed to fn participate in it
	ExecTx(ctx context.Context, fn TxFn) error
}
