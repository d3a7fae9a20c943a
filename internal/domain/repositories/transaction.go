package repositories

import "context"

// TxFn is run by ExecTx. Repository calls made with the ctx it receives join
// the surrounding transaction.
type TxFn func(ctx context.Context) error

// TransactionManager groups repository writes. Nested ExecTx calls join the
// outermost transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
