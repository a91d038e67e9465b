package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/swxsoc/swxingest/internal/annotation"
	"github.com/swxsoc/swxingest/internal/config"
	"github.com/swxsoc/swxingest/internal/dispatch"
	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/linecount"
	"github.com/swxsoc/swxingest/internal/log"
	"github.com/swxsoc/swxingest/internal/metrics"
	"github.com/swxsoc/swxingest/internal/objectstore"
	"github.com/swxsoc/swxingest/internal/routines"
	"github.com/swxsoc/swxingest/internal/secrets"
	"github.com/swxsoc/swxingest/internal/sourcehost"
	"github.com/swxsoc/swxingest/internal/storage"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

// runtime owns the process-lifetime clients. Executors are built from it
// once per invocation.
type runtime struct {
	cfg     *config.Config
	metrics metrics.Sink

	aws    *aws.Config
	db     map[string]*sql.DB
	closer []func()

	store       secrets.Store
	fetch       *fetch.Client
	series      routines.SeriesRecorder
	annotations func(*secrets.Bundle) routines.Annotator
	uploader    routines.Uploader
}

func newRuntime(ctx context.Context, cfg *config.Config, sink metrics.Sink) (*runtime, error) {
	rt := &runtime{
		cfg:     cfg,
		metrics: sink,
		db:      make(map[string]*sql.DB),
		fetch:   fetch.New(cfg.Service.HTTPTimeout),
	}
	if err := rt.init(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) init(ctx context.Context) error {
	cfg := rt.cfg

	// Secrets are best effort: without a store every secret reports itself
	// unavailable at first use and routines that need none still run.
	if len(cfg.Secrets.Bundles) > 0 {
		awsCfg, err := rt.awsConfig(ctx)
		if err != nil {
			log.WithComponent("runtime").Error("secret store unavailable", "error", err)
		} else {
			rt.store = secrets.NewSecretsManagerStore(secretsmanager.NewFromConfig(awsCfg))
		}
	}

	switch cfg.TimeSeries.Backend {
	case "timestream":
		awsCfg, err := rt.awsConfig(ctx)
		if err != nil {
			return err
		}
		ts := cfg.TimeSeries.Timestream
		rt.series = timeseries.NewTimestreamSink(timestreamwrite.NewFromConfig(awsCfg), ts.Database, ts.Table)
	case "influxdb":
		ic := cfg.TimeSeries.InfluxDB
		client := influxdb2.NewClient(ic.URL, ic.Token)
		rt.closer = append(rt.closer, client.Close)
		rt.series = timeseries.NewInfluxSink(client.WriteAPIBlocking(ic.Org, ic.Bucket))
	case "sqlite":
		db, err := rt.sqlite(ctx, cfg.TimeSeries.SQLitePath)
		if err != nil {
			return err
		}
		rt.series = storage.NewSeriesStore(db)
	default:
		return fmt.Errorf("unknown time-series backend %q", cfg.TimeSeries.Backend)
	}

	switch cfg.Annotations.Backend {
	case "grafana":
		httpClient := &http.Client{Timeout: cfg.Service.HTTPTimeout}
		url := cfg.Annotations.GrafanaURL
		rt.annotations = func(b *secrets.Bundle) routines.Annotator {
			return annotation.NewGrafanaSink(url, annotation.TokenFunc(b.Getter(secrets.GrafanaAPIKey)), httpClient)
		}
	case "sqlite":
		db, err := rt.sqlite(ctx, cfg.Annotations.SQLitePath)
		if err != nil {
			return err
		}
		store := storage.NewAnnotationStore(db)
		rt.annotations = func(*secrets.Bundle) routines.Annotator { return store }
	default:
		return fmt.Errorf("unknown annotation backend %q", cfg.Annotations.Backend)
	}

	if cfg.CodeReport.Bucket != "" {
		awsCfg, err := rt.awsConfig(ctx)
		if err != nil {
			return err
		}
		rt.uploader = objectstore.NewS3Uploader(s3.NewFromConfig(awsCfg))
	}
	return nil
}

// awsConfig loads the default AWS configuration on first use.
func (rt *runtime) awsConfig(ctx context.Context) (aws.Config, error) {
	if rt.aws != nil {
		return *rt.aws, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if rt.cfg.Service.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(rt.cfg.Service.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	rt.aws = &awsCfg
	return awsCfg, nil
}

// sqlite opens each database path once; both sinks may share a file.
func (rt *runtime) sqlite(ctx context.Context, path string) (*sql.DB, error) {
	if db, ok := rt.db[path]; ok {
		return db, nil
	}
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	rt.db[path] = db
	rt.closer = append(rt.closer, func() { _ = db.Close() })
	return db, nil
}

// build is the dispatch.BuildFunc: it provisions secrets and binds routines.
func (rt *runtime) build(ctx context.Context) (*dispatch.Executor, error) {
	cfg := rt.cfg
	prov := secrets.NewProvisioner(rt.store, cfg.Secrets.ExportEnv)
	return dispatch.NewExecutor(ctx, cfg, prov, dispatch.Collaborators{
		Fetch:       rt.fetch,
		Series:      rt.series,
		Annotations: rt.annotations,
		Uploader:    rt.uploader,
		Repos:       sourcehost.NewGitHub(rt.fetch, cfg.CodeReport.APIURL, os.Getenv("GITHUB_TOKEN")),
		Cloner:      sourcehost.GitCloner{},
		Counter:     linecount.NewCloc(cfg.CodeReport.ClocPath, cfg.CodeReport.ClocTimeout),
		Metrics:     rt.metrics,
	}), nil
}

func (rt *runtime) Close() {
	for i := len(rt.closer) - 1; i >= 0; i-- {
		rt.closer[i]()
	}
	rt.closer = nil
}
