package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/calypso-lang/calypso-bot/bootstrap"
	"github.com/calypso-lang/calypso-bot/core"
	"github.com/calypso-lang/calypso-bot/pretty"
	"github.com/calypso-lang/calypso-bot/sysf"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	sys := core.NewActorSystem()
	svc, err := New(sys, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, sys.Shutdown(ctx))
	})
	return svc
}

func parsed(t *testing.T, src string) Parsed {
	t.Helper()
	term, err := sysf.Parse(src)
	require.NoError(t, err)
	return Parsed{Term: term}
}

// recorder wraps the real builders and remembers the order values arrive in.
type recorder struct {
	sysf.Engine
	mu    sync.Mutex
	order []string
}

func (r *recorder) TermDoc(a *pretty.Arena, t sysf.Term) pretty.Doc {
	r.mu.Lock()
	r.order = append(r.order, t.(*sysf.Var).Name)
	r.mu.Unlock()
	return r.Engine.TermDoc(a, t)
}

// panicky fails on every inferred type.
type panicky struct{ sysf.Engine }

func (panicky) TypeDoc(*pretty.Arena, sysf.Type) pretty.Doc { panic("formatter bug") }

func TestRenderEachKind(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	term, err := sysf.Parse(`\x. x`)
	require.NoError(t, err)
	expr, ok := sysf.Resolve(term)
	require.True(t, ok)
	ty, ok := sysf.Infer(sysf.NewTyCtxt(), expr)
	require.True(t, ok)

	got, err := svc.Render(ctx, Parsed{Term: term})
	require.NoError(t, err)
	assert.Equal(t, "λx. x", got)

	got, err = svc.Render(ctx, Resolved{Expr: expr})
	require.NoError(t, err)
	assert.Equal(t, "λx#0. x#0", got)

	got, err = svc.Render(ctx, Inferred{Type: ty})
	require.NoError(t, err)
	assert.Equal(t, "∀a. a → a", got)

	assert.EqualValues(t, 3, svc.Stats().MessagesProcessed)
}

func TestRequestsAreAnsweredInArrivalOrder(t *testing.T) {
	rec := &recorder{}
	svc := newService(t, WithBuilder(rec))
	ctx := context.Background()

	const n = 50
	reqs := make([]*Request, n)
	for i := range reqs {
		reqs[i] = NewRequest(parsed(t, fmt.Sprintf("v%d", i)))
		require.NoError(t, svc.Enqueue(reqs[i]))
	}

	// Await in reverse; each request still gets its own answer.
	for i := n - 1; i >= 0; i-- {
		got, err := svc.Await(ctx, reqs[i])
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v%d", i), got)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.order, n)
	for i, name := range rec.order {
		assert.Equal(t, fmt.Sprintf("v%d", i), name)
	}
}

func TestConcurrentRendersNeverCrossInvocations(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		i := i
		g.Go(func() error {
			name := fmt.Sprintf("x%d", i)
			term, err := sysf.Parse(`\` + name + `. ` + name)
			if err != nil {
				return err
			}
			for j := 0; j < 20; j++ {
				got, err := svc.Render(ctx, Parsed{Term: term})
				if err != nil {
					return err
				}
				if want := "λ" + name + ". " + name; got != want {
					return fmt.Errorf("invocation %d got %q, want %q", i, got, want)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 64*20, svc.Stats().MessagesProcessed)
}

func TestAbandonedRequestDoesNotLeakIntoNextRender(t *testing.T) {
	svc := newService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := NewRequest(parsed(t, "first"))
	require.NoError(t, svc.Enqueue(req))
	_, err := svc.Await(ctx, req)
	// The answer may or may not have arrived before the cancelled context
	// was noticed; either way it belongs to req only.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	got, err := svc.Render(context.Background(), parsed(t, "second"))
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestWidthIsConfigurable(t *testing.T) {
	svc := newService(t, WithWidth(12))
	assert.Equal(t, 12, svc.Width())

	got, err := svc.Render(context.Background(), parsed(t, `\f. f alpha beta gamma`))
	require.NoError(t, err)
	assert.Contains(t, got, "\n")
}

func TestStopAnswersQueuedRequests(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	sys := core.NewActorSystem(core.WithLogger(zap.New(obs)))
	svc, err := New(sys)
	require.NoError(t, err)

	reqs := make([]*Request, 20)
	for i := range reqs {
		reqs[i] = NewRequest(parsed(t, fmt.Sprintf("q%d", i)))
		require.NoError(t, svc.Enqueue(reqs[i]))
	}
	require.NoError(t, svc.Stop(context.Background()))

	for i, req := range reqs {
		got, err := svc.Await(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("q%d", i), got)
	}

	err = svc.Enqueue(NewRequest(parsed(t, "late")))
	assert.ErrorIs(t, err, core.ErrActorStopped)

	h, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bootstrap.HealthStopped, h.State)

	// The system stops the already stopped renderer again without complaint.
	require.NoError(t, sys.Shutdown(context.Background()))
	assert.Zero(t, logs.FilterMessage("actor stop failed").Len())
}

func TestFormatterPanicFailsService(t *testing.T) {
	svc := newService(t, WithBuilder(panicky{}))
	ctx := context.Background()

	_, err := svc.Render(ctx, Inferred{Type: &sysf.TUnit{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrActorFailed))

	_, err = svc.Render(ctx, parsed(t, "x"))
	assert.ErrorIs(t, err, core.ErrActorFailed)

	h, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, bootstrap.HealthCritical, h.State)
}

func TestAwaitRequiresEnqueue(t *testing.T) {
	svc := newService(t)
	_, err := svc.Await(context.Background(), NewRequest(parsed(t, "x")))
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestNonValuePayloadIsRejected(t *testing.T) {
	sys := core.NewActorSystem()
	_, err := New(sys)
	require.NoError(t, err)
	defer sys.Shutdown(context.Background())

	_, err = sys.Call(context.Background(), ServiceName, "not a value")
	assert.ErrorIs(t, err, ErrUnknownValue)
}
