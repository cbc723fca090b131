package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/progress"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var progressUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressSource is the part of the grading service the progress stream needs.
type ProgressSource interface {
	Progress(ctx context.Context, runID string) (<-chan progress.Event, error)
}

// progressClient serializes writes to one websocket connection.
type progressClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// SafeWriteJSON safely writes JSON data to the client's WebSocket connection
func (pc *progressClient) SafeWriteJSON(v interface{}) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	pc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return pc.conn.WriteJSON(v)
}

func (pc *progressClient) writeControl(messageType int, data []byte) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return pc.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// ProgressHandler streams the state events of an asynchronous run until it finishes.
func ProgressHandler(source ProgressSource, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		runID := c.Param("id")
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		events, err := source.Progress(ctx, runID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}

		conn, err := progressUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.String("run_id", runID), zap.Error(err))
			return
		}
		defer conn.Close()
		client := &progressClient{conn: conn}

		// read pump: only control frames are expected; a read error means the client left
		go func() {
			defer cancel()
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						logger.Debug("progress client read error", zap.String("run_id", runID), zap.Error(err))
					}
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case e, ok := <-events:
				if !ok {
					_ = client.writeControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
					return
				}
				if err := client.SafeWriteJSON(e); err != nil {
					logger.Debug("progress write failed", zap.String("run_id", runID), zap.Error(err))
					return
				}
			case <-ticker.C:
				if err := client.writeControl(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
