// Package otel bridges the observe.Sink to OpenTelemetry tracing.
//
// It converts invocation audit events into OTel spans so that flow
// runs, provider round-trips, and tool dispatches are visible in any
// OpenTelemetry-compatible backend.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/artisanhub/craft-ai-bridge/observe"
)

const instrumentationName = "github.com/artisanhub/craft-ai-bridge"

// Sink implements observe.Sink by emitting OpenTelemetry spans.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Emit converts an observe.Event into an OTel span.
func (s *Sink) Emit(_ context.Context, event observe.Event) error {
	event.Normalize()

	startTime := event.Timestamp
	_, span := s.tracer.Start(context.Background(), spanNameFor(event), trace.WithTimestamp(startTime))

	attrs := []attribute.KeyValue{
		attribute.String("craft.event.kind", string(event.Kind)),
	}
	if event.InvocationID != "" {
		attrs = append(attrs, attribute.String("craft.invocation.id", event.InvocationID))
	}
	if event.Flow != "" {
		attrs = append(attrs, attribute.String("craft.flow", event.Flow))
	}
	if event.Provider != "" {
		attrs = append(attrs, attribute.String("craft.provider", event.Provider))
	}
	if event.ToolName != "" {
		attrs = append(attrs, attribute.String("craft.tool.name", event.ToolName))
	}
	if event.Status != "" {
		attrs = append(attrs, attribute.String("craft.status", string(event.Status)))
	}
	if event.Message != "" {
		attrs = append(attrs, attribute.String("craft.message", truncate(event.Message, 1024)))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, attribute.Int64("craft.duration_ms", event.DurationMs))
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, attribute.String("craft.attr."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)

	if event.Status == observe.StatusFailed {
		span.SetStatus(codes.Error, event.Error)
		if event.Error != "" {
			span.RecordError(fmt.Errorf("%s", event.Error))
		}
	} else if event.Status == observe.StatusCompleted {
		span.SetStatus(codes.Ok, "")
	}

	endTime := startTime
	if event.DurationMs > 0 {
		endTime = startTime.Add(time.Duration(event.DurationMs) * time.Millisecond)
	}
	span.End(trace.WithTimestamp(endTime))
	return nil
}

func spanNameFor(event observe.Event) string {
	switch event.Kind {
	case observe.KindInvocation:
		if event.Flow != "" {
			return "craft.flow." + event.Flow
		}
		return "craft.flow.invoke"
	case observe.KindProvider:
		if event.Provider != "" {
			return "craft.llm." + event.Provider
		}
		return "craft.llm.generate"
	case observe.KindTool:
		if event.ToolName != "" {
			return "craft.tool." + event.ToolName
		}
		return "craft.tool.call"
	default:
		return "craft.event"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
