package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// Header is the first CSV row.
var Header = []string{"reference_id", "type", "status", "amount", "from_account", "to_account", "created_at"}

// WriteCSV writes the batch's transactions to w and returns the number of
// data rows written.
func WriteCSV(w io.Writer, b Batch) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for i, tx := range b.Transactions {
		if err := cw.Write(csvRecord(tx)); err != nil {
			return i, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(b.Transactions), fmt.Errorf("flush csv: %w", err)
	}
	return len(b.Transactions), nil
}

func csvRecord(tx domain.Transaction) []string {
	created := ""
	if !tx.CreatedAt.IsZero() {
		created = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		tx.Key(),
		string(tx.Type),
		string(tx.Status),
		tx.Amount.StringFixed(2),
		accountRef(tx.FromAccount),
		accountRef(tx.ToAccount),
		created,
	}
}

// accountRef prefers the account number and falls back to the id.
func accountRef(a *domain.Account) string {
	if a == nil {
		return ""
	}
	if a.AccountNumber != "" {
		return a.AccountNumber
	}
	return strconv.FormatInt(a.ID, 10)
}

// CSVExporter writes statements as CSV files under Dir, or to Writer when set.
type CSVExporter struct {
	Dir    string
	Writer io.Writer
}

func (e *CSVExporter) Export(ctx context.Context, b Batch) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if e.Writer != nil {
		n, err := WriteCSV(e.Writer, b)
		return Result{Sink: SinkCSV, Location: "-", Rows: n}, err
	}

	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("statement-%s-%s.csv", b.CustomerID, stamp(b.GeneratedAt)))
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("create %q: %w", path, err)
	}

	n, err := WriteCSV(f, b)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %q: %w", path, cerr)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Sink: SinkCSV, Location: path, Rows: n}, nil
}
