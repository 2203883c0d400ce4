// Package tracking records one event per hook run.
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/checkpoint-dev/checkpoint/internal/ctxlog"
	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const EventHookExecuted = "Hook Executed"

// Event describes a finished hook run.
type Event struct {
	ID            string    `json:"event_id"`
	Name          string    `json:"event"`
	Hook          string    `json:"hook_name"`
	Description   string    `json:"description"`
	Status        int       `json:"status"`
	ExecutionTime float64   `json:"execution_time"`
	DbtVersion    string    `json:"dbt_version,omitempty"`
	ProjectID     string    `json:"project_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Sink receives run events. Implementations must not affect the run outcome.
type Sink interface {
	Track(ctx context.Context, event Event) error
}

// NewHookEvent fills an Event from a finished run. The project id is hashed.
func NewHookEvent(hook, description string, status int, elapsed time.Duration, meta manifest.Metadata) Event {
	event := Event{
		ID:            uuid.New().String(),
		Name:          EventHookExecuted,
		Hook:          hook,
		Description:   description,
		Status:        status,
		ExecutionTime: elapsed.Seconds(),
		DbtVersion:    meta.DbtVersion,
		Timestamp:     time.Now().UTC(),
	}
	if meta.ProjectID != "" {
		event.ProjectID = fileutil.HashString(meta.ProjectID)
	}
	return event
}

// Emit sends event to sink, logging instead of failing when the sink errors.
func Emit(ctx context.Context, sink Sink, event Event) {
	if sink == nil {
		return
	}
	if err := sink.Track(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to record hook event", "hook", event.Hook, "error", err)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Track(context.Context, Event) error { return nil }

// LogSink writes events to the run logger at info level.
type LogSink struct{}

func (LogSink) Track(ctx context.Context, event Event) error {
	ctxlog.FromContext(ctx).Info(event.Name,
		"hook", event.Hook,
		"status", event.Status,
		"execution_time", event.ExecutionTime,
		"dbt_version", event.DbtVersion,
	)
	return nil
}

// FileSink appends events as JSON lines to Path. Appends are serialized
// across processes with a lock file next to Path.
type FileSink struct {
	Path string
}

const lockRetryDelay = 20 * time.Millisecond

func (s FileSink) Track(ctx context.Context, event Event) error {
	if err := fileutil.EnsureDir(s.Path); err != nil {
		return err
	}
	lock := flock.New(s.Path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.Path, err)
	}
	if !locked {
		return fmt.Errorf("could not lock %s", s.Path)
	}
	defer lock.Unlock()

	return fileutil.AppendJSONL(s.Path, event)
}

// Multi fans an event out to several sinks and returns the first error.
type Multi []Sink

func (m Multi) Track(ctx context.Context, event Event) error {
	var first error
	for _, sink := range m {
		if err := sink.Track(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
