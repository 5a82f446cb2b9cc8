package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echoHandler answers every request with its own payload.
type echoHandler struct {
	mu   sync.Mutex
	seen []any
}

func (h *echoHandler) HandleMessage(ctx context.Context, msg *Message) (any, error) {
	h.mu.Lock()
	h.seen = append(h.seen, msg.Payload)
	h.mu.Unlock()
	return msg.Payload, nil
}

func (h *echoHandler) order() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]any, len(h.seen))
	copy(out, h.seen)
	return out
}

func startActor(t *testing.T, id ActorID, handler MessageHandler) Actor {
	t.Helper()
	actor := NewActor(id, handler, DefaultActorOptions(), nil)
	if err := actor.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start actor: %v", err)
	}
	t.Cleanup(func() {
		if actor.Stats().State != ActorStateStopped {
			actor.Stop()
		}
	})
	return actor
}

func TestNewActor(t *testing.T) {
	opts := DefaultActorOptions()
	opts.Name = "test-actor"

	actor := NewActor(1, &echoHandler{}, opts, nil)

	if actor.ID() != 1 {
		t.Errorf("Expected actor ID 1, got %d", actor.ID())
	}

	stats := actor.Stats()
	if stats.Name != "test-actor" {
		t.Errorf("Expected actor name 'test-actor', got '%s'", stats.Name)
	}

	if stats.State != ActorStateIdle {
		t.Errorf("Expected initial state %s, got %s", ActorStateIdle, stats.State)
	}
}

func TestActorStartStop(t *testing.T) {
	actor := NewActor(2, &echoHandler{}, DefaultActorOptions(), nil)

	if err := actor.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start actor: %v", err)
	}

	if err := actor.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted on second start, got %v", err)
	}

	if err := actor.Stop(); err != nil {
		t.Fatalf("Failed to stop actor: %v", err)
	}

	stats := actor.Stats()
	if stats.State != ActorStateStopped {
		t.Errorf("Expected final state %s, got %s", ActorStateStopped, stats.State)
	}

	if err := actor.Send(&Message{Payload: "late"}); !errors.Is(err, ErrActorStopped) {
		t.Errorf("Expected ErrActorStopped after stop, got %v", err)
	}
}

func TestActorSend(t *testing.T) {
	handled := make(chan struct{}, 1)
	actor := startActor(t, 3, HandlerFunc(func(ctx context.Context, msg *Message) (any, error) {
		handled <- struct{}{}
		return nil, nil
	}))

	err := actor.Send(&Message{Type: MessageTypeText, Payload: "hello"})
	if err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("message was not handled")
	}

	if err := actor.Stop(); err != nil {
		t.Fatalf("Failed to stop actor: %v", err)
	}
	if got := actor.Stats().MessagesProcessed; got != 1 {
		t.Errorf("Expected 1 processed message, got %d", got)
	}
}

func TestActorCallSequentialFIFO(t *testing.T) {
	handler := &echoHandler{}
	actor := startActor(t, 4, handler)

	const n = 50
	for i := 0; i < n; i++ {
		resp, err := actor.Call(context.Background(), NewRequest(i))
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if resp.Payload != i {
			t.Fatalf("response %d carried %v", i, resp.Payload)
		}
	}

	order := handler.order()
	for i := 0; i < n; i++ {
		if order[i] != i {
			t.Fatalf("request %d processed out of order: %v", i, order[i])
		}
	}
}

func TestActorQueuedRequestsAnsweredInArrivalOrder(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var processed []int
	actor := startActor(t, 5, HandlerFunc(func(ctx context.Context, msg *Message) (any, error) {
		<-gate
		mu.Lock()
		processed = append(processed, msg.Payload.(int))
		mu.Unlock()
		return msg.Payload, nil
	}))

	const n = 20
	reqs := make([]*Message, n)
	for i := range reqs {
		reqs[i] = NewRequest(i)
		if err := actor.Send(reqs[i]); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}
	close(gate)

	for i, req := range reqs {
		select {
		case resp := <-req.Reply:
			if resp.Payload != i {
				t.Fatalf("request %d received response for %v", i, resp.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("request %d never answered", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range processed {
		if v != i {
			t.Fatalf("position %d processed %d", i, v)
		}
	}
}

func TestActorConcurrentCallersReceiveOwnResponses(t *testing.T) {
	actor := startActor(t, 6, &echoHandler{})

	var g errgroup.Group
	for w := 0; w < 16; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				want := fmt.Sprintf("%d/%d", w, i)
				resp, err := actor.Call(context.Background(), NewRequest(want))
				if err != nil {
					return err
				}
				if resp.Payload != want {
					return fmt.Errorf("caller %d got %v, want %s", w, resp.Payload, want)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestActorStopAnswersQueuedRequests(t *testing.T) {
	gate := make(chan struct{})
	actor := NewActor(7, HandlerFunc(func(ctx context.Context, msg *Message) (any, error) {
		<-gate
		return msg.Payload, nil
	}), DefaultActorOptions(), nil)
	if err := actor.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	reqs := make([]*Message, 5)
	for i := range reqs {
		reqs[i] = NewRequest(i)
		if err := actor.Send(reqs[i]); err != nil {
			t.Fatal(err)
		}
	}

	stopped := make(chan error, 1)
	go func() { stopped <- actor.Stop() }()
	close(gate)

	if err := <-stopped; err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	for i, req := range reqs {
		resp := <-req.Reply
		if resp.Type != MessageTypeResponse || resp.Payload != i {
			t.Errorf("request %d: got %s %v", i, resp.Type, resp.Payload)
		}
	}
}

func TestActorPanicFailsActor(t *testing.T) {
	actor := startActor(t, 8, HandlerFunc(func(ctx context.Context, msg *Message) (any, error) {
		if msg.Payload == "boom" {
			panic("formatter exploded")
		}
		return msg.Payload, nil
	}))

	if _, err := actor.Call(context.Background(), NewRequest("ok")); err != nil {
		t.Fatalf("healthy call failed: %v", err)
	}

	_, err := actor.Call(context.Background(), NewRequest("boom"))
	if !errors.Is(err, ErrActorFailed) {
		t.Fatalf("expected ErrActorFailed, got %v", err)
	}

	// Wait for the loop to settle into the failed state.
	deadline := time.Now().Add(time.Second)
	for actor.Stats().State != ActorStateFailed {
		if time.Now().After(deadline) {
			t.Fatalf("actor state %s, want failed", actor.Stats().State)
		}
		time.Sleep(time.Millisecond)
	}

	if err := actor.Send(NewRequest("after")); !errors.Is(err, ErrActorFailed) {
		t.Errorf("expected ErrActorFailed for later sends, got %v", err)
	}
	if err := actor.Stop(); err != nil {
		t.Errorf("stopping a failed actor: %v", err)
	}
}

func TestActorStopIsIdempotent(t *testing.T) {
	actor := startActor(t, 11, &echoHandler{})

	if err := actor.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := actor.Stop(); err != nil {
		t.Errorf("stopping a stopped actor should be a no-op, got %v", err)
	}
	if state := actor.Stats().State; state != ActorStateStopped {
		t.Errorf("Expected stopped, got %s", state)
	}
}

func TestActorPanicWhileDrainingStaysFailed(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	actor := startActor(t, 12, HandlerFunc(func(ctx context.Context, msg *Message) (any, error) {
		switch msg.Payload {
		case "hold":
			close(entered)
			<-gate
		case "boom":
			panic("formatter exploded")
		}
		return msg.Payload, nil
	}))

	hold, boom := NewRequest("hold"), NewRequest("boom")
	if err := actor.Send(hold); err != nil {
		t.Fatal(err)
	}
	if err := actor.Send(boom); err != nil {
		t.Fatal(err)
	}
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- actor.Stop() }()

	deadline := time.Now().Add(time.Second)
	for actor.Stats().State != ActorStateStopping {
		if time.Now().After(deadline) {
			t.Fatalf("actor state %s, want stopping", actor.Stats().State)
		}
		time.Sleep(time.Millisecond)
	}
	close(gate)

	if err := <-stopped; err != nil {
		t.Fatalf("Stop returned %v", err)
	}
	if resp := <-boom.Reply; !errors.Is(resp.Err, ErrActorFailed) {
		t.Errorf("Expected ErrActorFailed for the panicking request, got %v", resp.Err)
	}
	if state := actor.Stats().State; state != ActorStateFailed {
		t.Errorf("Expected failed after a panic during drain, got %s", state)
	}
}

func TestActorRequestNeedsBufferedReply(t *testing.T) {
	actor := startActor(t, 13, &echoHandler{})

	for _, reply := range []chan *Message{nil, make(chan *Message)} {
		msg := &Message{Type: MessageTypeRequest, Payload: "x", Reply: reply}
		if err := actor.Send(msg); !errors.Is(err, ErrNoReplyChannel) {
			t.Errorf("Expected ErrNoReplyChannel, got %v", err)
		}
	}
	if err := actor.Send(NewRequest("x")); err != nil {
		t.Errorf("NewRequest should be accepted: %v", err)
	}
}

func TestActorAbandonedCallDoesNotLeakIntoNextCall(t *testing.T) {
	gate := make(chan struct{})
	actor := startActor(t, 9, HandlerFunc(func(ctx context.Context, msg *Message) (any, error) {
		if msg.Payload == "slow" {
			<-gate
		}
		return msg.Payload, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := actor.Call(ctx, NewRequest("slow")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(gate)

	resp, err := actor.Call(context.Background(), NewRequest("fast"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Payload != "fast" {
		t.Fatalf("next caller received %v", resp.Payload)
	}
}

func TestMailboxUnbounded(t *testing.T) {
	mb := newMailbox(1)
	for i := 0; i < 10000; i++ {
		if !mb.Push(&Message{ID: uint64(i)}) {
			t.Fatalf("push %d rejected", i)
		}
	}
	if mb.Len() != 10000 {
		t.Fatalf("expected 10000 queued, got %d", mb.Len())
	}
	mb.Close()
	if mb.Push(&Message{}) {
		t.Fatal("push accepted after close")
	}
	for i := 0; i < 10000; i++ {
		msg, ok := mb.Pop()
		if !ok || msg.ID != uint64(i) {
			t.Fatalf("pop %d: got %v %v", i, msg, ok)
		}
	}
	if _, ok := mb.Pop(); ok {
		t.Fatal("pop succeeded on closed empty mailbox")
	}
}

func TestDirectory(t *testing.T) {
	dir := newDirectory()

	actor1 := NewActor(10, &echoHandler{}, DefaultActorOptions(), nil)
	actor2 := NewActor(20, &echoHandler{}, DefaultActorOptions(), nil)
	actor3 := NewActor(30, &echoHandler{}, DefaultActorOptions(), nil)

	if err := dir.add(actor1, ""); err != nil {
		t.Fatalf("Failed to register actor1: %v", err)
	}
	if err := dir.add(actor2, "renderer"); err != nil {
		t.Fatalf("Failed to register actor2: %v", err)
	}
	if err := dir.add(actor1, ""); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := dir.add(actor3, "renderer"); err == nil {
		t.Error("duplicate name should fail")
	}

	if named, ok := dir.named("renderer"); !ok || named.ID() != 20 {
		t.Errorf("Expected renderer to be actor 20, got %v %v", named, ok)
	}

	if err := dir.remove(20); err != nil {
		t.Fatalf("Failed to unregister actor: %v", err)
	}
	if _, ok := dir.named("renderer"); ok {
		t.Error("name should be released with its actor")
	}
	if err := dir.add(actor3, "renderer"); err != nil {
		t.Fatalf("name should be reusable: %v", err)
	}

	var ids []ActorID
	for _, a := range dir.actors() {
		ids = append(ids, a.ID())
	}
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 30 {
		t.Errorf("Expected [10 30], got %v", ids)
	}
	if err := dir.remove(20); err == nil {
		t.Error("removing an unknown actor should fail")
	}
}

func TestActorSystem(t *testing.T) {
	system := NewActorSystem()

	actor, err := system.NewService("echo", &echoHandler{}, DefaultActorOptions())
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	if _, err := system.NewService("echo", &echoHandler{}, DefaultActorOptions()); err == nil {
		t.Error("duplicate service name should fail")
	}

	found, exists := system.GetService("echo")
	if !exists {
		t.Fatal("Created service not found in system")
	}
	if found.ID() != actor.ID() {
		t.Errorf("Expected actor ID %d, got %d", actor.ID(), found.ID())
	}

	payload, err := system.Call(context.Background(), "echo", "ping")
	if err != nil {
		t.Fatalf("service call failed: %v", err)
	}
	if payload != "ping" {
		t.Errorf("Expected 'ping', got %v", payload)
	}

	if _, err := system.Call(context.Background(), "missing", nil); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Expected ErrServiceNotFound, got %v", err)
	}

	if stats := system.Stats(); len(stats) != 1 || stats[0].Name != "echo" {
		t.Errorf("unexpected stats: %+v", stats)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := system.Shutdown(ctx); err != nil {
		t.Fatalf("Failed to shutdown system: %v", err)
	}
	if _, err := system.NewActor(&echoHandler{}, DefaultActorOptions()); !errors.Is(err, ErrSystemShutdown) {
		t.Errorf("Expected ErrSystemShutdown, got %v", err)
	}
}
