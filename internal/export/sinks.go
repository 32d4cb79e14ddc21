package export

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Options selects the sinks Open sets up. CSV is always available; GCS needs
// a bucket and BigQuery a project.
type Options struct {
	Dir             string
	Bucket          string
	Prefix          string
	BQProject       string
	BQDataset       string
	BQTable         string
	CredentialsFile string
	// NewID stamps BigQuery rows with an export id.
	NewID func() string
	// EnsureTable creates the BigQuery table when it is missing.
	EnsureTable bool
}

// Sinks holds the configured exporters and the clients behind them.
type Sinks struct {
	exporters map[Sink]Exporter
	gcs       *GCSExporter
	closers   []func() error
}

// Open connects to every sink enabled in opts. Clients are created eagerly so
// configuration errors surface at startup.
func Open(ctx context.Context, opts Options, log zerolog.Logger) (*Sinks, error) {
	s := &Sinks{exporters: map[Sink]Exporter{
		SinkCSV: &CSVExporter{Dir: opts.Dir},
	}}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	if opts.Bucket != "" {
		store, err := NewGCSStore(ctx, clientOpts...)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		s.gcs = &GCSExporter{Store: store, Bucket: opts.Bucket, Prefix: opts.Prefix}
		s.exporters[SinkGCS] = s.gcs
		log.Info().Str("bucket", opts.Bucket).Str("prefix", opts.Prefix).Msg("GCS export enabled")
	}

	if opts.BQProject != "" {
		table, err := OpenBigQueryTable(ctx, opts.BQProject, opts.BQDataset, opts.BQTable, clientOpts...)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, table.Close)
		if opts.EnsureTable {
			if err := table.Ensure(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.exporters[SinkBigQuery] = table.Exporter(opts.NewID)
		log.Info().Str("table", table.name).Msg("BigQuery export enabled")
	}

	return s, nil
}

// Get returns the exporter for sink.
func (s *Sinks) Get(sink Sink) (Exporter, error) {
	e, ok := s.exporters[sink]
	if !ok {
		return nil, fmt.Errorf("export sink %q is not configured", sink)
	}
	return e, nil
}

// Available lists the configured sinks in name order.
func (s *Sinks) Available() []Sink {
	out := make([]Sink, 0, len(s.exporters))
	for k := range s.exporters {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GCS returns the GCS exporter, or nil when no bucket is configured.
func (s *Sinks) GCS() *GCSExporter {
	return s.gcs
}

// Close releases every client.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
