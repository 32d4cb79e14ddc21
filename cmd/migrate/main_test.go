package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dvloznov/bankx-client/internal/config"
)

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSchema(&buf); err != nil {
		t.Fatalf("writeSchema() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := map[string]string{
		"export_id":        "STRING",
		"amount":           "NUMERIC",
		"from_account":     "STRING",
		"created_at":       "DATETIME",
		"transaction_date": "DATE",
	}
	found := map[string]string{}
	for _, l := range lines {
		fields := strings.Fields(l)
		if len(fields) != 3 {
			t.Fatalf("malformed line %q", l)
		}
		found[fields[0]] = fields[1]
	}
	for name, typ := range want {
		if found[name] != typ {
			t.Errorf("column %s type = %q, want %q", name, found[name], typ)
		}
	}
	if len(lines) != 11 {
		t.Errorf("got %d columns, want 11", len(lines))
	}
}

func TestResolve(t *testing.T) {
	cfg := &config.Config{BQProject: "env-project", BQDataset: "bankx", BQTable: "transactions", ExportBucket: "env-bucket"}

	got := resolve(cfg)
	if got.project != "env-project" || got.dataset != "bankx" || got.table != "transactions" || got.bucket != "env-bucket" {
		t.Errorf("resolve() without flags = %+v", got)
	}

	*projectID = "flag-project"
	*bucket = "flag-bucket"
	t.Cleanup(func() {
		*projectID = ""
		*bucket = ""
	})
	got = resolve(cfg)
	if got.project != "flag-project" || got.bucket != "flag-bucket" || got.dataset != "bankx" {
		t.Errorf("resolve() with flags = %+v", got)
	}
}
