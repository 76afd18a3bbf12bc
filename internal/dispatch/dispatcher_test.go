package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ysy950803/tgflow/internal/client"
	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/session"
	"github.com/ysy950803/tgflow/internal/wire"
)

type recvResult struct {
	box *wire.Updates
	err error
}

// fakeTransport feeds scripted batches to the client and blocks once the
// script runs out, like a quiet connection would.
type fakeTransport struct {
	batches chan recvResult
}

func newFakeTransport(buffer int) *fakeTransport {
	return &fakeTransport{batches: make(chan recvResult, buffer)}
}

func (f *fakeTransport) push(box *wire.Updates) {
	f.batches <- recvResult{box: box}
}

func (f *fakeTransport) fail(err error) {
	f.batches <- recvResult{err: err}
}

func (f *fakeTransport) Recv(ctx context.Context) (*wire.Updates, error) {
	select {
	case r := <-f.batches:
		return r.box, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.UpdateShortSentMessage, error) {
	return &wire.UpdateShortSentMessage{}, nil
}
func (f *fakeTransport) EditMessage(ctx context.Context, req *wire.EditMessageRequest) error {
	return nil
}
func (f *fakeTransport) DeleteMessages(ctx context.Context, req *wire.DeleteMessagesRequest) error {
	return nil
}
func (f *fakeTransport) ForwardMessages(ctx context.Context, req *wire.ForwardMessagesRequest) error {
	return nil
}
func (f *fakeTransport) SendReaction(ctx context.Context, req *wire.SendReactionRequest) error {
	return nil
}
func (f *fakeTransport) PinMessage(ctx context.Context, req *wire.PinMessageRequest) error {
	return nil
}
func (f *fakeTransport) ReadHistory(ctx context.Context, req *wire.ReadHistoryRequest) error {
	return nil
}
func (f *fakeTransport) GetMessages(ctx context.Context, req *wire.GetMessagesRequest) (*wire.Messages, error) {
	return &wire.Messages{}, nil
}
func (f *fakeTransport) Close() error { return nil }

type recordingStore struct {
	mu    sync.Mutex
	saves int
}

func (s *recordingStore) Load() (*session.Session, error) {
	return nil, errors.ErrSessionNotFound
}

func (s *recordingStore) Save(*session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return nil
}

func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func batchWithMessage(id, pts int) *wire.Updates {
	return &wire.Updates{
		Updates: []wire.UpdateClass{
			&wire.UpdateNewMessage{
				Message: &wire.Message{
					ID:      id,
					PeerID:  wire.Peer{Kind: wire.PeerUser, ID: 9},
					Message: "x",
				},
				Pts:      pts,
				PtsCount: 1,
			},
		},
	}
}

func runDone(d *Dispatcher, ctx context.Context) chan error {
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return done
}

func waitErr(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop in time")
		return nil
	}
}

func TestShutdownBeforeFirstUpdate(t *testing.T) {
	tr := newFakeTransport(0)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})

	dispatched := make(chan struct{}, 1)
	d := New(c, store, func(ctx context.Context, c *client.Client, u client.Update) error {
		dispatched <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := runDone(d, ctx)
	cancel()

	if err := waitErr(t, done); err != nil {
		t.Fatalf("Run() = %v, want nil on graceful drain", err)
	}
	if got := store.count(); got != 1 {
		t.Fatalf("session saved %d times, want exactly 1", got)
	}
	if d.Dispatched() != 0 {
		t.Fatalf("Dispatched() = %d, want 0", d.Dispatched())
	}
	if d.State() != StateStopped {
		t.Fatalf("State() = %v, want stopped", d.State())
	}
	select {
	case <-dispatched:
		t.Fatal("handler ran despite shutdown before any update")
	default:
	}
}

func TestDispatchesEveryUpdateThenSavesOnce(t *testing.T) {
	const n = 3
	tr := newFakeTransport(n)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})

	handled := make(chan int, n)
	d := New(c, store, func(ctx context.Context, c *client.Client, u client.Update) error {
		handled <- u.Message.ID()
		return nil
	})

	for i := 1; i <= n; i++ {
		tr.push(batchWithMessage(i, 100+i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runDone(d, ctx)

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		select {
		case id := <-handled:
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d updates handled", i, n)
		}
	}
	cancel()

	if err := waitErr(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(seen) != n {
		t.Fatalf("handled %d distinct updates, want %d", len(seen), n)
	}
	if d.Dispatched() != n {
		t.Fatalf("Dispatched() = %d, want %d", d.Dispatched(), n)
	}
	if got := store.count(); got != 1 {
		t.Fatalf("session saved %d times, want exactly 1", got)
	}

	// State advanced monotonically through the batches.
	if pts := c.Session().State().Pts; pts != 100+n {
		t.Fatalf("session pts = %d, want %d", pts, 100+n)
	}
}

func TestHandlerErrorDoesNotStopLoop(t *testing.T) {
	tr := newFakeTransport(2)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})

	handled := make(chan int, 2)
	sunk := make(chan error, 2)
	d := New(c, store,
		func(ctx context.Context, c *client.Client, u client.Update) error {
			handled <- u.Message.ID()
			if u.Message.ID() == 1 {
				return errors.InvalidArg("boom")
			}
			return nil
		},
		WithErrorSink(func(taskID string, err error) {
			if taskID == "" {
				t.Error("error sink got an empty task id")
			}
			sunk <- err
		}),
	)

	tr.push(batchWithMessage(1, 101))
	tr.push(batchWithMessage(2, 102))

	ctx, cancel := context.WithCancel(context.Background())
	done := runDone(d, ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(5 * time.Second):
			t.Fatal("second update never dispatched after handler error")
		}
	}
	select {
	case err := <-sunk:
		if err == nil {
			t.Fatal("sink received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler error never reached the sink")
	}
	cancel()

	if err := waitErr(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if d.Failed() != 1 {
		t.Fatalf("Failed() = %d, want 1", d.Failed())
	}
}

func TestHandlerPanicIsCaught(t *testing.T) {
	tr := newFakeTransport(2)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})

	sunk := make(chan error, 1)
	handled := make(chan struct{}, 2)
	d := New(c, store,
		func(ctx context.Context, c *client.Client, u client.Update) error {
			handled <- struct{}{}
			if u.Message.ID() == 1 {
				panic("handler exploded")
			}
			return nil
		},
		WithErrorSink(func(taskID string, err error) { sunk <- err }),
	)

	tr.push(batchWithMessage(1, 101))
	tr.push(batchWithMessage(2, 102))

	ctx, cancel := context.WithCancel(context.Background())
	done := runDone(d, ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(5 * time.Second):
			t.Fatal("loop died after handler panic")
		}
	}
	select {
	case err := <-sunk:
		if err == nil {
			t.Fatal("sink received nil error for panic")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("panic never reached the sink")
	}
	cancel()

	if err := waitErr(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}
}

func TestTransportErrorIsFatalWithoutSave(t *testing.T) {
	tr := newFakeTransport(1)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})

	d := New(c, store, func(ctx context.Context, c *client.Client, u client.Update) error {
		return nil
	})

	tr.fail(errors.ErrTransportClosed)

	done := runDone(d, context.Background())
	err := waitErr(t, done)
	if err == nil {
		t.Fatal("Run() = nil, want the transport error")
	}
	if !errors.Is(err, errors.ErrTransportClosed) {
		t.Fatalf("Run() = %v, want wrapped transport error", err)
	}
	if got := store.count(); got != 0 {
		t.Fatalf("session saved %d times after transport failure, want 0", got)
	}
	if d.State() != StateStopped {
		t.Fatalf("State() = %v, want stopped", d.State())
	}
}

func TestRunRejectsReuse(t *testing.T) {
	tr := newFakeTransport(0)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})
	d := New(c, store, func(ctx context.Context, c *client.Client, u client.Update) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := runDone(d, ctx)
	cancel()
	if err := waitErr(t, done); err != nil {
		t.Fatalf("first Run() = %v", err)
	}

	if err := d.Run(context.Background()); !errors.Is(err, errors.ErrDispatcherClosed) {
		t.Fatalf("second Run() = %v, want ErrDispatcherClosed", err)
	}
}

func TestMaxInFlightBoundsConcurrency(t *testing.T) {
	const n = 4
	tr := newFakeTransport(n)
	store := &recordingStore{}
	c := client.New(tr, &session.Session{})

	var mu sync.Mutex
	running, peak := 0, 0
	release := make(chan struct{})
	handled := make(chan struct{}, n)

	d := New(c, store,
		func(ctx context.Context, c *client.Client, u client.Update) error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			<-release

			mu.Lock()
			running--
			mu.Unlock()
			handled <- struct{}{}
			return nil
		},
		WithMaxInFlight(1),
	)

	for i := 1; i <= n; i++ {
		tr.push(batchWithMessage(i, 100+i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runDone(d, ctx)

	close(release)
	for i := 0; i < n; i++ {
		select {
		case <-handled:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d updates handled under admission control", i, n)
		}
	}
	cancel()

	if err := waitErr(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 1 {
		t.Fatalf("peak concurrency = %d, want at most 1", peak)
	}
}
