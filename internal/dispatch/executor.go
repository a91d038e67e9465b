package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/swxsoc/swxingest/internal/annotation"
	"github.com/swxsoc/swxingest/internal/config"
	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/linecount"
	"github.com/swxsoc/swxingest/internal/log"
	"github.com/swxsoc/swxingest/internal/metrics"
	"github.com/swxsoc/swxingest/internal/routines"
	"github.com/swxsoc/swxingest/internal/secrets"
	"github.com/swxsoc/swxingest/internal/sourcehost"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

// Collaborators are the external services routines write to.
type Collaborators struct {
	Fetch  *fetch.Client
	Series routines.SeriesRecorder
	// Annotations builds the annotation sink once credentials are known.
	Annotations func(b *secrets.Bundle) routines.Annotator
	Uploader    routines.Uploader
	Repos       routines.RepoLister
	Cloner      sourcehost.Cloner
	Counter     linecount.Counter
	Metrics     metrics.Sink
	Now         routines.Clock
}

// Executor holds the routine table for one invocation.
type Executor struct {
	table   map[Rule]routines.Routine
	secrets *secrets.Bundle
	logger  *slog.Logger
}

// NewExecutor loads the secret bundle and binds every known rule to its
// routine. It does not fail when secrets are missing.
func NewExecutor(ctx context.Context, cfg *config.Config, prov *secrets.Provisioner, c Collaborators) *Executor {
	if c.Metrics == nil {
		c.Metrics = metrics.NewNoopSink()
	}
	if c.Fetch == nil {
		c.Fetch = fetch.New(cfg.Service.HTTPTimeout)
	}

	bundle := prov.Provision(ctx, cfg.Secrets.Bundles)
	for _, name := range bundle.Names() {
		_, err := bundle.Get(name)
		c.Metrics.SecretLoaded(name, err == nil)
	}

	var series routines.SeriesRecorder = unavailable{"time-series sink"}
	if c.Series != nil {
		series = &countingRecorder{next: c.Series, metrics: c.Metrics}
	}
	var annotator routines.Annotator = unavailable{"annotation sink"}
	if c.Annotations != nil {
		if a := c.Annotations(bundle); a != nil {
			annotator = &countingAnnotator{next: a, metrics: c.Metrics}
		}
	}

	table := map[Rule]routines.Routine{
		RuleImportGOES: &routines.GOESImport{
			URL:    cfg.GOES.URL,
			Window: cfg.GOES.Window,
			Fetch:  c.Fetch,
			Sink:   series,
			Now:    c.Now,
		},
		RuleGOESAnnotations: &routines.FlareAnnotations{
			URL:       cfg.Flares.URL,
			Window:    cfg.Flares.Window,
			Dashboard: cfg.Flares.Dashboard,
			Panel:     cfg.Flares.Panel,
			Mission:   cfg.Service.Mission,
			Fetch:     c.Fetch,
			Sink:      annotator,
			Now:       c.Now,
		},
		RuleImportREACH: &routines.REACHImport{
			URL:    cfg.REACH.URL,
			Delay:  cfg.REACH.Delay,
			Window: cfg.REACH.Window,
			Auth:   bundle.Getter(secrets.BasicAuth),
			Fetch:  c.Fetch,
			Sink:   series,
			Now:    c.Now,
		},
		RuleImportOrbit: &routines.OrbitImport{
			URL:        cfg.Orbit.URL,
			Window:     cfg.Orbit.Window,
			Instrument: cfg.Orbit.Instrument,
			Rows:       cfg.Orbit.Rows,
			Fetch:      c.Fetch,
			Sink:       series,
			Now:        c.Now,
		},
		RuleCodeReport: &routines.CodeReport{
			OrgsUsers: cfg.CodeReport.OrgsUsers,
			Bucket:    cfg.CodeReport.Bucket,
			Key:       cfg.CodeReport.Key,
			Repos:     c.Repos,
			Cloner:    c.Cloner,
			Counter:   c.Counter,
			Uploader:  c.Uploader,
		},
	}
	return NewExecutorWithTable(table, bundle)
}

// NewExecutorWithTable builds an Executor from an explicit table.
func NewExecutorWithTable(table map[Rule]routines.Routine, bundle *secrets.Bundle) *Executor {
	return &Executor{table: table, secrets: bundle, logger: log.WithComponent("dispatch")}
}

// Secrets returns the bundle loaded at construction.
func (e *Executor) Secrets() *secrets.Bundle {
	return e.secrets
}

// Execute runs the routine bound to rule.
func (e *Executor) Execute(ctx context.Context, rule Rule) error {
	r, ok := e.table[rule]
	if !ok || r == nil {
		return &UnknownFunctionError{Name: string(rule)}
	}
	e.logger.Info("executing function", "rule", string(rule))
	return r.Run(ctx)
}

// countingRecorder reports recorded points to metrics.
type countingRecorder struct {
	next    routines.SeriesRecorder
	metrics metrics.Sink
}

func (c *countingRecorder) Record(ctx context.Context, s timeseries.Series) error {
	if err := c.next.Record(ctx, s); err != nil {
		return err
	}
	c.metrics.SeriesRecorded(s.Name, s.Instrument, s.Len())
	return nil
}

// countingAnnotator reports written annotations to metrics.
type countingAnnotator struct {
	next    routines.Annotator
	metrics metrics.Sink
}

func (c *countingAnnotator) Create(ctx context.Context, a annotation.Annotation, overwrite bool) error {
	if err := c.next.Create(ctx, a, overwrite); err != nil {
		return fmt.Errorf("create annotation on %s/%s: %w", a.Dashboard, a.Panel, err)
	}
	c.metrics.AnnotationCreated(a.Dashboard, a.Panel)
	return nil
}

// unavailable stands in for a collaborator the deployment did not configure.
type unavailable struct{ what string }

func (u unavailable) Record(context.Context, timeseries.Series) error {
	return fmt.Errorf("no %s configured", u.what)
}

func (u unavailable) Create(context.Context, annotation.Annotation, bool) error {
	return fmt.Errorf("no %s configured", u.what)
}
