package observe

import "context"

// EventSaver is satisfied by the audit store; declared here so the
// sink wiring does not import the store package.
type EventSaver interface {
	SaveEvent(ctx context.Context, event Event) error
}

// NewStoreSink adapts an audit store into a Sink.
func NewStoreSink(saver EventSaver) Sink {
	if saver == nil {
		return NoopSink{}
	}
	return SinkFunc(func(ctx context.Context, event Event) error {
		return saver.SaveEvent(ctx, event)
	})
}
