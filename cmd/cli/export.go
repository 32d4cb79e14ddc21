package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/views"
)

func (a *app) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sinkName := fs.String("sink", "csv", "Destination: csv, gcs or bigquery")
	dir := fs.String("dir", ".", "Directory for CSV files")
	stdout := fs.Bool("stdout", false, "Write CSV to standard output")
	bucket := fs.String("bucket", a.cfg.ExportBucket, "GCS bucket (or set EXPORT_BUCKET env)")
	list := fs.Bool("list", false, "List earlier GCS exports instead of exporting")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	sink, err := export.ParseSink(*sinkName)
	if err != nil {
		return &views.ValidationError{Message: err.Error()}
	}
	sess, ok := a.store.Current()
	if !ok {
		return views.ErrLoginRequired
	}

	opts := export.Options{
		Dir:             *dir,
		Prefix:          a.cfg.ExportPrefix,
		CredentialsFile: a.cfg.CredentialsFile,
		NewID:           uuid.NewString,
		EnsureTable:     true,
	}
	// Only connect to the cloud service that is actually used.
	switch {
	case *list || sink == export.SinkGCS:
		opts.Bucket = *bucket
	case sink == export.SinkBigQuery:
		opts.BQProject = a.cfg.BQProject
		opts.BQDataset = a.cfg.BQDataset
		opts.BQTable = a.cfg.BQTable
	}
	sinks, err := export.Open(ctx, opts, a.log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	if *list {
		gcs := sinks.GCS()
		if gcs == nil {
			return errors.New("GCS export is not configured, pass -bucket or set EXPORT_BUCKET")
		}
		uris, err := gcs.Previous(ctx, sess.UserID)
		if err != nil {
			return err
		}
		if len(uris) == 0 {
			fmt.Fprintln(a.out, "No earlier exports.")
		}
		for _, u := range uris {
			fmt.Fprintln(a.out, u)
		}
		return nil
	}

	var exporter export.Exporter
	if sink == export.SinkCSV && *stdout {
		exporter = &export.CSVExporter{Writer: a.out}
	} else if exporter, err = sinks.Get(sink); err != nil {
		return err
	}

	batch, err := views.CollectStatement(ctx, a.deps)
	if err != nil {
		a.coord.Handle(err)
		return err
	}
	res, err := exporter.Export(ctx, batch)
	if err != nil {
		return err
	}
	if !*stdout {
		fmt.Fprintf(a.out, "Exported %d transactions to %s\n", res.Rows, res.Location)
	}
	return nil
}

func (a *app) runPing(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	reply, err := a.api.System.Ping(ctx)
	if err != nil {
		return err
	}
	health, err := a.api.System.Health(ctx)
	if err != nil {
		a.log.Debug().Err(err).Msg("Health endpoint unavailable")
		fmt.Fprintf(a.out, "%s from %s\n", reply, a.cfg.APIURL)
		return nil
	}
	fmt.Fprintf(a.out, "%s from %s (status %v)\n", reply, a.cfg.APIURL, health["status"])
	return nil
}
