package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func stateEvent(runID string, s grading.State, competency int) Event {
	return FromTransition(grading.Transition{RunID: runID, State: s, Competency: competency, At: time.Now()})
}

func collect(t *testing.T, ch <-chan Event) []grading.State {
	t.Helper()
	var states []grading.State
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return states
			}
			states = append(states, e.State)
		case <-timeout:
			t.Fatal("subscription did not close")
		}
	}
}

func TestMemoryBrokerReplaysAndFollows(t *testing.T) {
	b := NewMemoryBroker(0)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, stateEvent("r1", grading.StateSubmitted, 0)))
	require.NoError(t, b.Publish(ctx, stateEvent("r1", grading.StateContextAssembled, 0)))

	ch, err := b.Subscribe(ctx, "r1")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, stateEvent("r1", grading.StateEvaluating, 2)))
	require.NoError(t, b.Publish(ctx, stateEvent("other", grading.StateSubmitted, 0)))
	require.NoError(t, b.Publish(ctx, stateEvent("r1", grading.StateReported, 0)))

	assert.Equal(t, []grading.State{
		grading.StateSubmitted, grading.StateContextAssembled, grading.StateEvaluating, grading.StateReported,
	}, collect(t, ch))
}

func TestMemoryBrokerFinishedRun(t *testing.T) {
	b := NewMemoryBroker(0)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, stateEvent("r1", grading.StateSubmitted, 0)))
	failed := FromTransition(grading.Transition{RunID: "r1", State: grading.StateFailed, Error: "boom", Kind: grading.KindScoring})
	require.NoError(t, b.Publish(ctx, failed))

	ch, err := b.Subscribe(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []grading.State{grading.StateSubmitted, grading.StateFailed}, collect(t, ch))
}

func TestMemoryBrokerUnsubscribesOnCancel(t *testing.T) {
	b := NewMemoryBroker(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "r1")
	require.NoError(t, err)
	cancel()
	assert.Empty(t, collect(t, ch))
	require.NoError(t, b.Publish(context.Background(), stateEvent("r1", grading.StateSubmitted, 0)))
}

func TestMemoryBrokerForgetsAfterRetention(t *testing.T) {
	b := NewMemoryBroker(10 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, stateEvent("r1", grading.StateReported, 0)))
	assert.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		_, ok := b.history["r1"]
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestEventJSON(t *testing.T) {
	e := stateEvent("r1", grading.StateEvaluating, 4)
	data, err := MarshalEvent(e)
	require.NoError(t, err)
	assert.Contains(t, data, `"type":"state"`)
	assert.Contains(t, data, `"competency":4`)

	back, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e, back)
	assert.False(t, back.Final())

	_, err = UnmarshalEvent("{")
	assert.Error(t, err)
}

func TestMemoryBrokerHistory(t *testing.T) {
	b := NewMemoryBroker(0)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, stateEvent("r5", grading.StateSubmitted, 0)))
	require.NoError(t, b.Publish(ctx, stateEvent("r5", grading.StateEvaluating, 1)))

	h, err := b.History(ctx, "r5")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, grading.StateEvaluating, h[1].State)

	// the returned slice is a copy
	h[0].State = grading.StateFailed
	again, _ := b.History(ctx, "r5")
	assert.Equal(t, grading.StateSubmitted, again[0].State)

	none, err := b.History(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}
