package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/progress"
)

type brokerSource struct {
	broker *progress.MemoryBroker
	known  map[string]bool
}

func (s brokerSource) Progress(ctx context.Context, runID string) (<-chan progress.Event, error) {
	if !s.known[runID] {
		return nil, errors.New("run not found")
	}
	return s.broker.Subscribe(ctx, runID)
}

func newProgressServer(t *testing.T, src ProgressSource) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/runs/:id/progress", ProgressHandler(src, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestProgressStreamsUntilFinalEvent(t *testing.T) {
	broker := progress.NewMemoryBroker(0)
	src := brokerSource{broker: broker, known: map[string]bool{"run-1": true}}
	srv := newProgressServer(t, src)
	ctx := context.Background()

	require.NoError(t, broker.Publish(ctx, progress.Event{Type: progress.TypeState, RunID: "run-1", State: grading.StateSubmitted}))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/runs/run-1/progress"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first progress.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, grading.StateSubmitted, first.State)

	require.NoError(t, broker.Publish(ctx, progress.Event{Type: progress.TypeState, RunID: "run-1", State: grading.StateEvaluating, Competency: 2}))
	require.NoError(t, broker.Publish(ctx, progress.Event{Type: progress.TypeState, RunID: "run-1", State: grading.StateReported, ReportID: "rep-1"}))

	var states []grading.State
	for {
		var e progress.Event
		if err := conn.ReadJSON(&e); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		states = append(states, e.State)
		if e.State == grading.StateReported {
			assert.Equal(t, "rep-1", e.ReportID)
		}
	}
	assert.Equal(t, []grading.State{grading.StateEvaluating, grading.StateReported}, states)
}

func TestProgressReplaysFinishedRun(t *testing.T) {
	broker := progress.NewMemoryBroker(0)
	ctx := context.Background()
	for _, st := range []grading.State{grading.StateSubmitted, grading.StateFailed} {
		require.NoError(t, broker.Publish(ctx, progress.Event{Type: progress.TypeState, RunID: "run-2", State: st}))
	}
	srv := newProgressServer(t, brokerSource{broker: broker, known: map[string]bool{"run-2": true}})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/runs/run-2/progress"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var got []grading.State
	for {
		var e progress.Event
		if err := conn.ReadJSON(&e); err != nil {
			break
		}
		got = append(got, e.State)
	}
	assert.Equal(t, []grading.State{grading.StateSubmitted, grading.StateFailed}, got)
}

func TestProgressUnknownRun(t *testing.T) {
	srv := newProgressServer(t, brokerSource{broker: progress.NewMemoryBroker(0)})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/runs/nope/progress"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
