// Package sqlite persists the invocation audit trail. Raw provider
// errors land here (and nowhere user-visible), so a single-file WAL
// database is enough; this is a diagnosis log, not a product store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/artisanhub/craft-ai-bridge/observe"
	observestore "github.com/artisanhub/craft-ai-bridge/observe/store"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 200

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("audit db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveEvent(ctx context.Context, event observe.Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	event.Normalize()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	attrs, err := json.Marshal(event.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode audit attributes: %w", err)
	}
	const q = `
INSERT INTO audit_events (
  event_id, invocation_id, flow, kind, status, provider, tool_name,
  message, error, duration_ms, attributes, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		event.ID,
		event.InvocationID,
		event.Flow,
		string(event.Kind),
		string(event.Status),
		event.Provider,
		event.ToolName,
		event.Message,
		event.Error,
		event.DurationMs,
		string(attrs),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

func (s *Store) ListEventsByInvocation(ctx context.Context, invocationID string, query observestore.ListQuery) ([]observe.Event, error) {
	if strings.TrimSpace(invocationID) == "" {
		return nil, fmt.Errorf("invocationID is required")
	}
	return s.list(ctx, "invocation_id = ?", invocationID, query)
}

func (s *Store) ListEventsByFlow(ctx context.Context, flow string, query observestore.ListQuery) ([]observe.Event, error) {
	if strings.TrimSpace(flow) == "" {
		return nil, fmt.Errorf("flow is required")
	}
	return s.list(ctx, "flow = ?", flow, query)
}

func (s *Store) list(ctx context.Context, predicate string, value string, query observestore.ListQuery) ([]observe.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	q := fmt.Sprintf(`
SELECT event_id, invocation_id, flow, kind, status, provider, tool_name,
       message, error, duration_ms, attributes, timestamp
FROM audit_events
WHERE %s
ORDER BY timestamp ASC
LIMIT ? OFFSET ?;
`, predicate)

	rows, err := s.db.QueryContext(ctx, q, value, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	out := make([]observe.Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return out, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (observe.Event, error) {
	var (
		e      observe.Event
		kind   string
		status string
		attrs  string
		tsRaw  string
	)
	if err := scanner.Scan(
		&e.ID,
		&e.InvocationID,
		&e.Flow,
		&kind,
		&status,
		&e.Provider,
		&e.ToolName,
		&e.Message,
		&e.Error,
		&e.DurationMs,
		&attrs,
		&tsRaw,
	); err != nil {
		return observe.Event{}, fmt.Errorf("failed to scan audit event: %w", err)
	}
	e.Kind = observe.Kind(kind)
	e.Status = observe.Status(status)
	if tsRaw != "" {
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err == nil {
			e.Timestamp = ts
		}
	}
	if attrs != "" {
		_ = json.Unmarshal([]byte(attrs), &e.Attributes)
	}
	e.Normalize()
	return e, nil
}

func (s *Store) AggregateMetrics(ctx context.Context, query observestore.MetricsQuery) (observestore.MetricsSummary, error) {
	if s == nil || s.db == nil {
		return observestore.MetricsSummary{}, nil
	}
	args := []any{}
	where := ""
	if query.Since != nil {
		where = " AND timestamp >= ?"
		args = append(args, query.Since.UTC().Format(time.RFC3339Nano))
	}

	counter := func(predicate string, predicateArgs ...any) (int64, error) {
		q := "SELECT COUNT(*) FROM audit_events WHERE " + predicate + where
		qArgs := append([]any{}, predicateArgs...)
		qArgs = append(qArgs, args...)
		var n int64
		if err := s.db.QueryRowContext(ctx, q, qArgs...).Scan(&n); err != nil {
			return 0, err
		}
		return n, nil
	}

	metrics := observestore.MetricsSummary{}
	var err error
	if metrics.InvocationsStarted, err = counter("kind = ? AND status = ?", string(observe.KindInvocation), string(observe.StatusStarted)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics invocations started: %w", err)
	}
	if metrics.InvocationsCompleted, err = counter("kind = ? AND status = ?", string(observe.KindInvocation), string(observe.StatusCompleted)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics invocations completed: %w", err)
	}
	if metrics.InvocationsFailed, err = counter("kind = ? AND status = ?", string(observe.KindInvocation), string(observe.StatusFailed)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics invocations failed: %w", err)
	}
	if metrics.ProviderCalls, err = counter("kind = ? AND status = ?", string(observe.KindProvider), string(observe.StatusCompleted)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics provider calls: %w", err)
	}
	if metrics.ProviderFailures, err = counter("kind = ? AND status = ?", string(observe.KindProvider), string(observe.StatusFailed)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics provider failures: %w", err)
	}
	if metrics.ToolCalls, err = counter("kind = ? AND status = ?", string(observe.KindTool), string(observe.StatusCompleted)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics tool calls: %w", err)
	}
	if metrics.ToolFailures, err = counter("kind = ? AND status = ?", string(observe.KindTool), string(observe.StatusFailed)); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics tool failures: %w", err)
	}
	if metrics.EmptyOutputs, err = counter("kind = ? AND status = ? AND message = ?", string(observe.KindInvocation), string(observe.StatusFailed), "empty_output"); err != nil {
		return observestore.MetricsSummary{}, fmt.Errorf("metrics empty outputs: %w", err)
	}

	return metrics, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ observestore.Store = (*Store)(nil)
