package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/bankx-client/internal/banktest"
	"github.com/dvloznov/bankx-client/internal/domain"
	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/jobs"
)

type staticSinks map[export.Sink]export.Exporter

func (s staticSinks) Get(sink export.Sink) (export.Exporter, error) {
	e, ok := s[sink]
	if !ok {
		return nil, errors.New("not configured")
	}
	return e, nil
}

func TestExportHandler(t *testing.T) {
	bank := banktest.New()
	defer bank.Close()
	token := bank.AddCustomer(domain.Customer{ID: "c-1", Name: "Ada", Email: "ada@example.com"}, "secret")
	acc := bank.AddAccount(domain.Account{CustomerID: "c-1", AccountType: domain.AccountSavings, Balance: decimal.NewFromInt(10)})
	bank.AddTransaction(domain.Transaction{ReferenceID: "TXN-1", Type: domain.TransactionCredit, Amount: decimal.NewFromInt(10), ToAccount: &acc})

	var buf bytes.Buffer
	sinks := staticSinks{export.SinkCSV: &export.CSVExporter{Writer: &buf}}
	gw := gateway.New(gateway.Config{BaseURL: bank.APIURL()})
	handle := newExportHandler(gw, sinks, zerolog.Nop())

	t.Run("exports statement", func(t *testing.T) {
		job := &jobs.ExportJob{JobID: "j-1", CustomerID: "c-1", Sink: "csv", Token: token}
		if err := handle(context.Background(), job); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if job.Rows != 1 || job.Location != "-" {
			t.Errorf("job = %+v", job)
		}
		if !strings.Contains(buf.String(), "TXN-1") {
			t.Errorf("csv output = %q", buf.String())
		}
	})

	t.Run("unknown sink is permanent", func(t *testing.T) {
		job := &jobs.ExportJob{JobID: "j-2", CustomerID: "c-1", Sink: "gcs", Token: token}
		if err := handle(context.Background(), job); !jobs.IsPermanent(err) {
			t.Errorf("err = %v, want permanent", err)
		}
	})

	t.Run("rejected token is permanent", func(t *testing.T) {
		job := &jobs.ExportJob{JobID: "j-3", CustomerID: "c-1", Sink: "csv", Token: "tok-revoked"}
		err := handle(context.Background(), job)
		if !jobs.IsPermanent(err) || !errors.Is(err, gateway.ErrUnauthenticated) {
			t.Errorf("err = %v, want permanent unauthenticated", err)
		}
	})
}
