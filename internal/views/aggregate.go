package views

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/gateway"
)

// fanOutLimit bounds concurrent per-account fetches.
const fanOutLimit = 4

// AggregateTransactions fetches the transactions of every account, merges
// them, drops duplicates and sorts newest first.
//
// A failed fetch for one account is logged and skipped. Authentication
// failures and cancellation abort the whole aggregation.
func AggregateTransactions(ctx context.Context, lister TransactionLister, accounts []domain.Account, log zerolog.Logger) ([]domain.Transaction, error) {
	results := make([][]domain.Transaction, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, acc := range accounts {
		g.Go(func() error {
			txs, err := lister.ByAccount(gctx, acc.ID)
			if err != nil {
				if NeedsLogin(err) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return err
				}
				log.Warn().Err(err).Int64("account_id", acc.ID).Msg("Failed to load transactions for account, skipping")
				return nil
			}
			results[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	merged := []domain.Transaction{}
	for _, txs := range results {
		for _, tx := range txs {
			if seen[tx.Key()] {
				continue
			}
			seen[tx.Key()] = true
			merged = append(merged, tx)
		}
	}
	SortNewestFirst(merged)
	return merged, nil
}

// SortNewestFirst orders by createdAt descending, then by key so equal
// timestamps have a stable order.
func SortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i].CreatedAt.Time, txs[j].CreatedAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return txs[i].Key() > txs[j].Key()
	})
}

// isNotFound reports whether err is a 404 from the API.
func isNotFound(err error) bool {
	var apiErr *gateway.APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
