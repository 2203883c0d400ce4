package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/checkpoint-dev/checkpoint/internal/ctxlog"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Track(context.Context, Event) error { return errors.New("sink offline") }

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Track(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return nil
}

func TestNewHookEventHashesProjectID(t *testing.T) {
	event := NewHookEvent("generate-missing-sources", "desc", 1, 1500*time.Millisecond, manifest.Metadata{
		DbtVersion: "1.7.4",
		ProjectID:  "secret-project",
	})

	require.Equal(t, EventHookExecuted, event.Name)
	require.Equal(t, 1, event.Status)
	require.InDelta(t, 1.5, event.ExecutionTime, 0.001)
	require.NotEmpty(t, event.ProjectID)
	require.NotEqual(t, "secret-project", event.ProjectID)
	require.Len(t, event.ID, 36)

	other := NewHookEvent("generate-missing-sources", "desc", 1, 0, manifest.Metadata{})
	require.NotEqual(t, event.ID, other.ID)
}

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink := FileSink{Path: path}

	Emit(context.Background(), sink, NewHookEvent("a", "", 0, 0, manifest.Metadata{}))
	Emit(context.Background(), sink, NewHookEvent("b", "", 1, 0, manifest.Metadata{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var second Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, "b", second.Hook)
	require.Equal(t, 1, second.Status)
	require.NotEmpty(t, second.ID)
}

func TestFileSinkCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "checkpoint", "events.jsonl")

	require.NoError(t, FileSink{Path: path}.Track(context.Background(), Event{Hook: "x"}))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestFileSinkHonoursCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, FileSink{Path: path}.Track(ctx, Event{Hook: "x"}))
}

func TestEmitLogsSinkFailures(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New("warn", "text", &buf))

	Emit(ctx, failingSink{}, NewHookEvent("hook", "", 0, 0, manifest.Metadata{}))
	require.Contains(t, buf.String(), "sink offline")

	Emit(ctx, nil, Event{})
}

func TestMultiDeliversToAllSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}

	err := Multi{first, failingSink{}, second}.Track(context.Background(), Event{Hook: "x"})
	require.Error(t, err)
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
}
