package export

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// TransactionRow is the BigQuery shape of one statement line.
type TransactionRow struct {
	ExportID      string              `bigquery:"export_id"`
	CustomerID    string              `bigquery:"customer_id"`
	ReferenceID   string              `bigquery:"reference_id"`
	Type          string              `bigquery:"type"`
	Status        string              `bigquery:"status"`
	Amount        *big.Rat            `bigquery:"amount"`
	FromAccount   bigquery.NullString `bigquery:"from_account"`
	ToAccount     bigquery.NullString `bigquery:"to_account"`
	CreatedAt     civil.DateTime      `bigquery:"created_at"`
	TransactionOn civil.Date          `bigquery:"transaction_date"`
	ExportedAt    civil.DateTime      `bigquery:"exported_at"`
}

// RowInserter streams rows into a table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Rows converts a batch to BigQuery rows. exportID ties the rows of one run
// together.
func Rows(b Batch, exportID string) []*TransactionRow {
	exported := civil.DateTimeOf(b.GeneratedAt.UTC())
	rows := make([]*TransactionRow, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		created := tx.CreatedAt.UTC()
		rows = append(rows, &TransactionRow{
			ExportID:      exportID,
			CustomerID:    b.CustomerID,
			ReferenceID:   tx.Key(),
			Type:          string(tx.Type),
			Status:        string(tx.Status),
			Amount:        tx.Amount.Rat(),
			FromAccount:   nullAccount(tx.FromAccount),
			ToAccount:     nullAccount(tx.ToAccount),
			CreatedAt:     civil.DateTimeOf(created),
			TransactionOn: civil.DateOf(created),
			ExportedAt:    exported,
		})
	}
	return rows
}

func nullAccount(a *domain.Account) bigquery.NullString {
	if a == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: accountRef(a), Valid: true}
}

// BigQueryExporter streams statement rows into one table.
type BigQueryExporter struct {
	Inserter RowInserter
	// Table is reported in results as project.dataset.table.
	Table string
	// NewID returns the export id stamped on every row.
	NewID func() string
}

func (e *BigQueryExporter) Export(ctx context.Context, b Batch) (Result, error) {
	id := b.CustomerID + "-" + stamp(b.GeneratedAt)
	if e.NewID != nil {
		id = e.NewID()
	}
	rows := Rows(b, id)
	if len(rows) > 0 {
		if err := e.Inserter.Put(ctx, rows); err != nil {
			return Result{}, fmt.Errorf("bigquery export: inserting rows: %w", err)
		}
	}
	return Result{Sink: SinkBigQuery, Location: e.Table, Rows: len(rows)}, nil
}

// BigQueryTable owns the client behind a BigQueryExporter.
type BigQueryTable struct {
	client *bigquery.Client
	table  *bigquery.Table
	name   string
}

// OpenBigQueryTable connects to project and addresses dataset.table.
func OpenBigQueryTable(ctx context.Context, project, dataset, table string, opts ...option.ClientOption) (*BigQueryTable, error) {
	if project == "" {
		return nil, errors.New("bigquery export: project is not configured")
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQueryTable{
		client: client,
		table:  client.DatasetInProject(project, dataset).Table(table),
		name:   project + "." + dataset + "." + table,
	}, nil
}

// Schema is the export table schema inferred from TransactionRow.
func Schema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	return schema, nil
}

// EnsureDataset creates the table's dataset if it is missing.
func (t *BigQueryTable) EnsureDataset(ctx context.Context, location string) error {
	ds := t.client.DatasetInProject(t.table.ProjectID, t.table.DatasetID)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !notFound(err) {
		return fmt.Errorf("bigquery dataset %s: %w", t.table.DatasetID, err)
	}
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
		return fmt.Errorf("create dataset %s: %w", t.table.DatasetID, err)
	}
	return nil
}

// Name is the table's project.dataset.table path.
func (t *BigQueryTable) Name() string {
	return t.name
}

func notFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// Ensure creates the table with the TransactionRow schema if it is missing.
func (t *BigQueryTable) Ensure(ctx context.Context) error {
	_, err := t.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !notFound(err) {
		return fmt.Errorf("bigquery table %s: %w", t.name, err)
	}

	schema, err := Schema()
	if err != nil {
		return err
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "transaction_date",
		},
	}
	if err := t.table.Create(ctx, meta); err != nil {
		return fmt.Errorf("create table %s: %w", t.name, err)
	}
	return nil
}

// Exporter returns an exporter writing to this table.
func (t *BigQueryTable) Exporter(newID func() string) *BigQueryExporter {
	return &BigQueryExporter{Inserter: t.table.Inserter(), Table: t.name, NewID: newID}
}

func (t *BigQueryTable) Close() error {
	return t.client.Close()
}
