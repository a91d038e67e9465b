package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/swxsoc/swxingest/internal/log"
	"github.com/swxsoc/swxingest/internal/metrics"
	"github.com/swxsoc/swxingest/internal/trigger"
)

// BuildFunc constructs the Executor for one invocation.
type BuildFunc func(ctx context.Context) (*Executor, error)

// Handler turns trigger events into responses.
type Handler struct {
	build   BuildFunc
	metrics metrics.Sink
}

// NewHandler creates a Handler. A nil sink disables metrics.
func NewHandler(build BuildFunc, sink metrics.Sink) *Handler {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Handler{build: build, metrics: sink}
}

// HandleEvent processes one trigger event. It never returns an error: every
// failure is reported as a 500 response carrying the error message.
func (h *Handler) HandleEvent(ctx context.Context, ev trigger.Event) trigger.Response {
	logger := log.WithInvocation(invocationID(ctx))
	logger.Info("received event", "id", ev.ID, "source", ev.Source, "resources", ev.Resources)

	start := time.Now()
	rule, err := h.handle(ctx, ev, logger)
	class := Classify(err)
	h.metrics.Invocation(ruleLabel(rule), class, time.Since(start))

	if err != nil {
		logger.Error("error handling event", "rule", rule, "class", class, "error", err)
		return trigger.Failure(err)
	}
	logger.Info("execution completed", "rule", rule, "duration", time.Since(start))
	return trigger.Success()
}

// RunRule executes a rule by name without a trigger event.
func (h *Handler) RunRule(ctx context.Context, name string) error {
	logger := log.WithInvocation(invocationID(ctx))
	start := time.Now()
	err := h.run(ctx, name, logger)
	h.metrics.Invocation(ruleLabel(name), Classify(err), time.Since(start))
	return err
}

// ruleLabel bounds the metric label set to the known rules.
func ruleLabel(name string) string {
	if _, err := ParseRule(name); err != nil {
		return metrics.UnknownRule
	}
	return name
}

func (h *Handler) handle(ctx context.Context, ev trigger.Event, logger *slog.Logger) (string, error) {
	name, err := trigger.ExtractRuleName(ev)
	if err != nil {
		return "", err
	}
	logger.Info("rule name extracted", "rule", name)
	return name, h.run(ctx, name, logger)
}

func (h *Handler) run(ctx context.Context, name string, logger *slog.Logger) error {
	rule, err := ParseRule(name)
	if err != nil {
		return err
	}
	exec, err := h.build(ctx)
	if err != nil {
		return err
	}
	logger.Debug("executor ready", "secrets", exec.Secrets().Names())
	return exec.Execute(ctx, rule)
}

// invocationID prefers the Lambda request id and falls back to a fresh UUID.
func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
