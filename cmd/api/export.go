package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bankx-client/internal/bankapi"
	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/jobs"
	"github.com/dvloznov/bankx-client/internal/session"
	"github.com/dvloznov/bankx-client/internal/views"
)

// SinkSource resolves an export sink. *export.Sinks satisfies it.
type SinkSource interface {
	Get(sink export.Sink) (export.Exporter, error)
}

// newExportHandler builds the job handler that reads a customer's statement
// with the token captured at enqueue time and writes it to the job's sink.
// An expired token or unknown sink fails the job without retrying.
func newExportHandler(gw *gateway.Client, sinks SinkSource, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ExportJob) error {
		log := log.With().Str("job_id", job.JobID).Str("customer_id", job.CustomerID).Logger()

		exporter, err := sinks.Get(export.Sink(job.Sink))
		if err != nil {
			return jobs.Permanent(err)
		}

		mem := session.NewMemoryStore()
		if err := mem.Save(session.Snapshot{Token: job.Token, User: &domain.Customer{ID: job.CustomerID}}); err != nil {
			return jobs.Permanent(err)
		}
		store := session.New(mem, log)
		if store.Restore(ctx) != session.Authenticated {
			return jobs.Permanent(errors.New("session expired before the export ran"))
		}

		api := bankapi.New(gw.WithTokens(store))
		batch, err := views.CollectStatement(ctx, views.Deps{
			Session:      store,
			Accounts:     api.Accounts,
			Transactions: api.Transactions,
			Customers:    api.Customers,
			Logger:       log,
		})
		if err != nil {
			if views.NeedsLogin(err) {
				return jobs.Permanent(fmt.Errorf("collect statement: %w", err))
			}
			return fmt.Errorf("collect statement: %w", err)
		}

		log.Info().
			Int("accounts", len(batch.Accounts)).
			Int("transactions", len(batch.Transactions)).
			Str("sink", job.Sink).
			Msg("Exporting statement")

		res, err := exporter.Export(ctx, batch)
		if err != nil {
			return err
		}
		job.Location = res.Location
		job.Rows = res.Rows
		return nil
	}
}
