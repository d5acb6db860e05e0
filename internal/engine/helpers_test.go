package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/testutil"
)

const testAccount = "acct-1"

// recordingSink keeps every emitted event.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// changes returns the events that carry a committed change.
func (s *recordingSink) changes() []Event {
	var out []Event
	for _, ev := range s.Events() {
		if ev.Seq > 0 {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	engine *Engine
	store  *store.Store
	sink   *recordingSink
	clock  *testutil.StepClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store: st,
		sink:  &recordingSink{},
		clock: testutil.NewStepClock(testutil.Epoch, time.Second),
	}
	base := []Option{
		WithClock(env.clock),
		WithIDGenerator(testutil.NewSequenceIDs()),
		WithSink(env.sink),
	}
	env.engine = New(st, append(base, opts...)...)
	return env
}

func (env *testEnv) push(t *testing.T, ops ...model.SyncOperation) model.PushResponse {
	t.Helper()
	resp, err := env.engine.Push(context.Background(), testAccount, model.PushRequest{Operations: ops})
	require.NoError(t, err)
	require.Len(t, resp.Results, len(ops))
	return resp
}

// pushOK pushes ops and requires every result to succeed.
func (env *testEnv) pushOK(t *testing.T, ops ...model.SyncOperation) model.PushResponse {
	t.Helper()
	resp := env.push(t, ops...)
	for _, r := range resp.Results {
		require.True(t, r.Success, "operation %s failed: %+v", r.OperationID, r.Error)
	}
	return resp
}

func (env *testEnv) pull(t *testing.T, cursor string) model.PullResponse {
	t.Helper()
	resp, err := env.engine.Pull(context.Background(), testAccount, model.PullRequest{Cursor: &cursor})
	require.NoError(t, err)
	return resp
}

func (env *testEnv) item(t *testing.T, id string) model.Item {
	t.Helper()
	it, err := env.store.GetItem(context.Background(), testAccount, id)
	require.NoError(t, err)
	return it
}

func (env *testEnv) order(t *testing.T, id string) model.Order {
	t.Helper()
	o, err := env.store.GetOrder(context.Background(), testAccount, id)
	require.NoError(t, err)
	return o
}

var opCounter int

func nextOpID() string {
	opCounter++
	return fmt.Sprintf("op-%d", opCounter)
}

func createOp(class model.EntityClass, localID string, payload map[string]any) model.SyncOperation {
	return model.SyncOperation{
		OperationID: nextOpID(),
		Kind:        model.KindCreate,
		EntityClass: class,
		LocalID:     localID,
		Payload:     payload,
	}
}

func updateOp(class model.EntityClass, entityID string, payload map[string]any) model.SyncOperation {
	return model.SyncOperation{
		OperationID: nextOpID(),
		Kind:        model.KindUpdate,
		EntityClass: class,
		EntityID:    entityID,
		Payload:     payload,
	}
}

func deleteOp(class model.EntityClass, entityID string) model.SyncOperation {
	return model.SyncOperation{
		OperationID: nextOpID(),
		Kind:        model.KindDelete,
		EntityClass: class,
		EntityID:    entityID,
	}
}

func replaceOp(class model.EntityClass, localIDs ...string) model.SyncOperation {
	ids := make([]any, len(localIDs))
	for i, id := range localIDs {
		ids[i] = id
	}
	return model.SyncOperation{
		OperationID: nextOpID(),
		Kind:        model.KindReplaceSet,
		EntityClass: class,
		Payload:     map[string]any{"localIds": ids},
	}
}

func itemPayload(name string, qty int) map[string]any {
	return map[string]any{"name": name, "quantity": qty}
}
