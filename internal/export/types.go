// Package export writes customer statements to CSV files, Google Cloud
// Storage and BigQuery.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// Batch is one customer's statement at a point in time.
type Batch struct {
	CustomerID   string               `json:"customerId"`
	GeneratedAt  time.Time            `json:"generatedAt"`
	Accounts     []domain.Account     `json:"accounts"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Result describes where a batch ended up.
type Result struct {
	Sink     Sink   `json:"sink"`
	Location string `json:"location"`
	Rows     int    `json:"rows"`
}

// Exporter writes a batch to one destination.
type Exporter interface {
	Export(ctx context.Context, b Batch) (Result, error)
}

// Sink names an export destination.
type Sink string

const (
	SinkCSV      Sink = "csv"
	SinkGCS      Sink = "gcs"
	SinkBigQuery Sink = "bigquery"
)

func ParseSink(s string) (Sink, error) {
	switch sink := Sink(strings.ToLower(strings.TrimSpace(s))); sink {
	case SinkCSV, SinkGCS, SinkBigQuery:
		return sink, nil
	case "bq":
		return SinkBigQuery, nil
	}
	return "", fmt.Errorf("unknown export sink %q (want csv, gcs or bigquery)", s)
}

// stamp formats the batch time for file and object names.
func stamp(t time.Time) string {
	return t.UTC().Format("20060102T150405")
}
