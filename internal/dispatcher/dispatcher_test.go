package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv) }
func (l *testLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv) }

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

func TestParseLine(t *testing.T) {
	now := time.Unix(100, 0)
	e := ParseLine("  RANGE   -50 ", now)
	if e.Command != "range" || !reflect.DeepEqual(e.Args, []string{"-50"}) || !e.Timestamp.Equal(now) {
		t.Errorf("unexpected event %+v", e)
	}
	if e := ParseLine("   ", now); e.Command != "" {
		t.Errorf("expected empty command, got %q", e.Command)
	}
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("next", func(_ context.Context, e Event) (any, error) {
		got = e
		return "result", nil
	})

	result, err := d.Dispatch(context.Background(), Event{Command: "next", Args: []string{"arg1"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
	if len(got.Args) != 1 || got.Args[0] != "arg1" {
		t.Errorf("handler saw %+v", got)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Event{Command: "launch"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("journal", func(context.Context, Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(context.Background(), Event{Command: "journal"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != Queued {
			t.Errorf("expected %q, got %v", Queued, result)
		}
	}

	d.Close()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
	if _, err := d.Dispatch(context.Background(), Event{Command: "journal"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestDispatcher_BufferedKeepsCallerValues(t *testing.T) {
	d, _ := newTestDispatcher(t)

	type key struct{}
	seen := make(chan any, 1)
	d.Register("journal", func(ctx context.Context, _ Event) (any, error) {
		seen <- ctx.Value(key{})
		return nil, ctx.Err()
	}, Buffered(1))

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "m1"))
	if _, err := d.Dispatch(ctx, Event{Command: "journal"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	if v := <-seen; v != "m1" {
		t.Errorf("expected context value m1, got %v", v)
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("influx", func(context.Context, Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(2))
	defer close(block)

	d.Dispatch(context.Background(), Event{Command: "influx"}) // being processed
	<-started
	d.Dispatch(context.Background(), Event{Command: "influx"}) // queued
	d.Dispatch(context.Background(), Event{Command: "influx"}) // queued

	_, err := d.Dispatch(context.Background(), Event{Command: "influx"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("journal", func(context.Context, Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(context.Background(), Event{Command: "journal"})
	<-started
	d.Dispatch(context.Background(), Event{Command: "journal"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), Event{Command: "journal"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_BlockingHonoursContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("journal", func(context.Context, Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())
	defer close(block)

	d.Dispatch(context.Background(), Event{Command: "journal"})
	<-started
	d.Dispatch(context.Background(), Event{Command: "journal"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := d.Dispatch(ctx, Event{Command: "journal"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("status", func(context.Context, Event) (any, error) {
		return "ok", nil
	}, Logged())
	d.Register("spot", func(context.Context, Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(context.Background(), Event{Command: "status", Args: []string{"a", "b"}})
	d.Dispatch(context.Background(), Event{Command: "spot"})

	if n := logger.count("DEBUG"); n < 3 {
		t.Errorf("expected at least 3 debug messages, got %d", n)
	}
	if n := logger.count("ERROR"); n != 1 {
		t.Errorf("expected 1 error message, got %d", n)
	}
}

func TestDispatcher_QueuedFailureIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("journal", func(context.Context, Event) (any, error) {
		return nil, errors.New("disk full")
	}, Buffered(4), Logged())

	d.Dispatch(context.Background(), Event{Command: "journal"})
	d.Close()

	// handler logging plus the queue's own failure report
	if n := logger.count("ERROR"); n != 2 {
		t.Errorf("expected 2 error messages, got %d", n)
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	noop := func(context.Context, Event) (any, error) { return nil, nil }
	d.Register("status", noop)
	d.Register("advance", noop)

	if !d.HasHandler("status") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler("fire") {
		t.Error("expected handler to not exist")
	}
	if got := d.Commands(); !reflect.DeepEqual(got, []string{"advance", "status"}) {
		t.Errorf("unexpected commands %v", got)
	}
}
