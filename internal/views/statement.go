package views

import (
	"context"

	"github.com/dvloznov/bankx-client/internal/export"
)

// CollectStatement gathers every account and transaction of the signed-in
// customer for export. Unlike the dashboard it does not truncate.
func CollectStatement(ctx context.Context, deps Deps) (export.Batch, error) {
	sess, err := deps.requireSession()
	if err != nil {
		return export.Batch{}, err
	}
	accounts, err := deps.accountsFor(ctx, sess)
	if err != nil {
		return export.Batch{}, err
	}
	txs, err := AggregateTransactions(ctx, deps.Transactions, accounts, deps.Logger)
	if err != nil {
		return export.Batch{}, err
	}
	return export.Batch{
		CustomerID:   sess.UserID,
		GeneratedAt:  deps.now().UTC(),
		Accounts:     accounts,
		Transactions: txs,
	}, nil
}
