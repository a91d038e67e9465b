package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swxsoc/swxingest/internal/config"
	"github.com/swxsoc/swxingest/internal/dispatch"
	"github.com/swxsoc/swxingest/internal/log"
	"github.com/swxsoc/swxingest/internal/metrics"
	"github.com/swxsoc/swxingest/internal/storage"
	"github.com/swxsoc/swxingest/internal/trigger"
	"github.com/swxsoc/swxingest/internal/webhook"
)

var version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		// The Lambda runtime starts the bootstrap binary without arguments.
		if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
			os.Exit(runLambda(nil))
		}
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "lambda":
		os.Exit(runLambda(args))
	case "handle":
		os.Exit(runHandle(args))
	case "run":
		os.Exit(runRule(args))
	case "rules":
		os.Exit(runRules(args))
	case "serve":
		os.Exit(runServe(args))
	case "inspect":
		os.Exit(runInspect(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("swxingest version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`swxingest - scheduled space-weather ingestion dispatcher

Usage:
  swxingest <command> [flags]

Commands:
  lambda              Serve trigger events from the AWS Lambda runtime
  handle --event F    Feed one trigger event (file or "-" for stdin) through the handler
  run <rule>          Execute one rule directly
  rules               List known rules
  serve               Serve trigger events over HTTP
  inspect             Summarise the local SQLite sinks
  config check        Validate configuration and integrity
  config lock         Record the configuration hash in .checksums
  config show         Print the effective configuration
  version             Show version information
  help                Show this help message

Every command accepts --config <path>; $SWXINGEST_CONFIG is used when the
flag is absent, and defaults plus environment when neither is set.
`)
}

// setup loads configuration and initialises logging.
func setup(configFlag string) (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(configFlag))
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	return cfg, nil
}

// newHandler wires a handler to a fresh runtime. The caller closes the runtime.
func newHandler(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*dispatch.Handler, *runtime, error) {
	var sink metrics.Sink = metrics.NewNoopSink()
	if reg != nil {
		sink = metrics.NewPrometheusSink(reg)
	}
	rt, err := newRuntime(ctx, cfg, sink)
	if err != nil {
		return nil, nil, err
	}
	return dispatch.NewHandler(rt.build, sink), rt, nil
}

func runLambda(args []string) int {
	fs := flag.NewFlagSet("lambda", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger := log.WithComponent("main")

	h, rt, err := newHandler(context.Background(), cfg, nil)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		return 1
	}
	defer rt.Close()

	logger.Info("swxingest lambda starting", "version", version)
	lambda.Start(lambdaHandler(h))
	return 0
}

// lambdaHandler takes the raw payload so that a malformed event still gets
// the status envelope instead of a runtime unmarshal error.
func lambdaHandler(h *dispatch.Handler) func(context.Context, json.RawMessage) (trigger.Response, error) {
	return func(ctx context.Context, payload json.RawMessage) (trigger.Response, error) {
		ev, err := trigger.ParseEvent(payload)
		if err != nil {
			return trigger.Failure(err), nil
		}
		return h.HandleEvent(ctx, ev), nil
	}
}

func runHandle(args []string) int {
	fs := flag.NewFlagSet("handle", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	eventPath := fs.String("event", "", `Trigger event JSON file ("-" for stdin)`)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *eventPath == "" {
		fmt.Fprintln(os.Stderr, "--event is required")
		return 1
	}

	data, err := readInput(*eventPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read event: %v\n", err)
		return 1
	}

	cfg, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	var resp trigger.Response
	ev, err := trigger.ParseEvent(data)
	if err != nil {
		resp = trigger.Failure(err)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		h, rt, err := newHandler(ctx, cfg, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialise: %v\n", err)
			return 1
		}
		defer rt.Close()
		resp = h.HandleEvent(ctx, ev)
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if resp.StatusCode != 200 {
		return 1
	}
	return 0
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runRule(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: swxingest run [--config PATH] <rule>")
		return 1
	}
	name := fs.Arg(0)
	if _, err := dispatch.ParseRule(name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	h, rt, err := newHandler(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise: %v\n", err)
		return 1
	}
	defer rt.Close()

	if err := h.RunRule(ctx, name); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed (%s): %v\n", name, dispatch.Classify(err), err)
		return 1
	}
	fmt.Println(trigger.SuccessMessage)
	return 0
}

func runRules(args []string) int {
	if hasHelpFlag(args) {
		fmt.Println("Usage: swxingest rules")
		return 0
	}
	for _, r := range dispatch.Rules() {
		fmt.Println(r)
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	listen := fs.String("listen", "", "Override webhook.listen")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.Webhook.Listen = *listen
	}
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	h, rt, err := newHandler(ctx, cfg, reg)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		return 1
	}
	defer rt.Close()

	srv, err := webhook.New(cfg.Webhook, h, reg, log.WithComponent("webhook"))
	if err != nil {
		logger.Error("failed to configure http trigger", "error", err)
		return 1
	}
	logger.Info("swxingest serving", "version", version)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http trigger stopped", "error", err)
		return 1
	}
	return 0
}

func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	dbPath := fs.String("db", "", "SQLite database (default timeseries.sqlite_path)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	path := *dbPath
	if path == "" {
		path = cfg.TimeSeries.SQLitePath
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Database not found: %s\n", path)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	sums, err := storage.NewSeriesStore(db).Summaries(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read series: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tINSTRUMENT\tPOINTS\tFIRST\tLAST")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.Series, s.Instrument, s.Points, s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return 1
	}

	notes, err := storage.NewAnnotationStore(db).List(ctx, cfg.Flares.Dashboard, cfg.Flares.Panel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read annotations: %v\n", err)
		return 1
	}
	fmt.Printf("\nAnnotations on %s / %s: %d\n", cfg.Flares.Dashboard, cfg.Flares.Panel, len(notes))
	for _, a := range notes {
		fmt.Printf("  %s  %-6s %v\n", a.Start.Format(time.RFC3339), a.Text, a.Tags)
	}
	return 0
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if isHelpToken(a) {
			return true
		}
	}
	return false
}
