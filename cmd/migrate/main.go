// Command migrate prepares the cloud export destinations: it creates the
// BigQuery dataset and statement table and checks the GCS bucket.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/bankx-client/internal/config"
	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/logger"
)

var (
	projectID   = flag.String("project", "", "GCP project ID (defaults to BQ_PROJECT)")
	datasetID   = flag.String("dataset", "", "BigQuery dataset ID (defaults to BQ_DATASET)")
	tableID     = flag.String("table", "", "BigQuery table ID (defaults to BQ_TABLE)")
	location    = flag.String("location", "EU", "Location for a newly created dataset")
	bucket      = flag.String("bucket", "", "GCS bucket to check (defaults to EXPORT_BUCKET)")
	printSchema = flag.Bool("print-schema", false, "Print the statement table schema and exit")
)

func main() {
	flag.Parse()

	if *printSchema {
		if err := writeSchema(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	target := resolve(cfg)
	if target.project == "" && target.bucket == "" {
		log.Fatal().Msg("Nothing to do: pass -project or -bucket, or set BQ_PROJECT / EXPORT_BUCKET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	if target.project != "" {
		table, err := export.OpenBigQueryTable(ctx, target.project, target.dataset, target.table, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to BigQuery")
		}
		defer table.Close()

		log.Info().Str("table", table.Name()).Msg("Preparing BigQuery export table")
		if err := table.EnsureDataset(ctx, *location); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare dataset")
		}
		if err := table.Ensure(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare table")
		}
		log.Info().Str("table", table.Name()).Msg("BigQuery export table is ready")
	}

	if target.bucket != "" {
		store, err := export.NewGCSStore(ctx, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Cloud Storage")
		}
		defer store.Close()

		ok, err := store.BucketExists(ctx, target.bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to check bucket")
		}
		if !ok {
			log.Fatal().Str("bucket", target.bucket).Msg("Export bucket does not exist")
		}
		log.Info().Str("bucket", target.bucket).Msg("GCS export bucket is reachable")
	}
}

type destinations struct {
	project, dataset, table string
	bucket                  string
}

// resolve merges flags over the environment configuration.
func resolve(cfg *config.Config) destinations {
	return destinations{
		project: pick(*projectID, cfg.BQProject),
		dataset: pick(*datasetID, cfg.BQDataset),
		table:   pick(*tableID, cfg.BQTable),
		bucket:  pick(*bucket, cfg.ExportBucket),
	}
}

func pick(flagValue, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	return fallback
}

// writeSchema prints one "name TYPE MODE" line per column.
func writeSchema(w io.Writer) error {
	schema, err := export.Schema()
	if err != nil {
		return err
	}
	for _, f := range schema {
		mode := "NULLABLE"
		switch {
		case f.Repeated:
			mode = "REPEATED"
		case f.Required:
			mode = "REQUIRED"
		}
		if _, err := fmt.Fprintf(w, "%-16s %-10s %s\n", f.Name, typeName(f.Type), mode); err != nil {
			return err
		}
	}
	return nil
}

func typeName(t bigquery.FieldType) string {
	return strings.ToUpper(string(t))
}
