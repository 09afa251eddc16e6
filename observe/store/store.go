package store

import (
	"context"
	"time"

	"github.com/artisanhub/craft-ai-bridge/observe"
)

type ListQuery struct {
	Limit  int
	Offset int
}

type MetricsQuery struct {
	Since *time.Time
}

// MetricsSummary aggregates the audit trail into operational counters.
// EmptyOutputs is tracked separately from provider failures so a model
// that silently declines shows up distinctly from a provider outage.
type MetricsSummary struct {
	InvocationsStarted   int64 `json:"invocationsStarted"`
	InvocationsCompleted int64 `json:"invocationsCompleted"`
	InvocationsFailed    int64 `json:"invocationsFailed"`
	ProviderCalls        int64 `json:"providerCalls"`
	ProviderFailures     int64 `json:"providerFailures"`
	ToolCalls            int64 `json:"toolCalls"`
	ToolFailures         int64 `json:"toolFailures"`
	EmptyOutputs         int64 `json:"emptyOutputs"`
}

type Store interface {
	SaveEvent(ctx context.Context, event observe.Event) error
	ListEventsByInvocation(ctx context.Context, invocationID string, query ListQuery) ([]observe.Event, error)
	ListEventsByFlow(ctx context.Context, flow string, query ListQuery) ([]observe.Event, error)
	AggregateMetrics(ctx context.Context, query MetricsQuery) (MetricsSummary, error)
	Close() error
}
