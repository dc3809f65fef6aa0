package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"simtom/internal/models"
	"simtom/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Implement origin check for production
	},
}

// Handler delivers generated records to WebSocket consumers. Delivery is
// one-way: the engine fills the session's Records channel, the write pump
// drains it; the read pump only watches for the peer closing.
type Handler struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Disconnected is called when a consumer stops pulling, so the stream
	// can be cancelled.
	Disconnected func(streamID string)
}

func NewHandler(logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		metrics: m,
	}
}

func (h *Handler) HandleConnection(sess *models.Session, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.WebSocketErrors.Inc()
		return err
	}
	sess.WebSocket = conn

	go h.readPump(sess)
	go h.writePump(sess)

	return nil
}

func (h *Handler) readPump(sess *models.Session) {
	defer func() {
		sess.WebSocket.Close()
		if h.Disconnected != nil {
			h.Disconnected(sess.ID)
		}
	}()

	sess.WebSocket.SetReadLimit(512 * 1024)
	sess.WebSocket.SetReadDeadline(time.Now().Add(60 * time.Second))
	sess.WebSocket.SetPongHandler(func(string) error {
		sess.WebSocket.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := sess.WebSocket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("stream_id", sess.ID), zap.Error(err))
				h.metrics.WebSocketErrors.Inc()
			}
			return
		}
	}
}

func (h *Handler) writePump(sess *models.Session) {
	ticker := time.NewTicker(time.Second)
	defer func() {
		ticker.Stop()
		sess.WebSocket.Close()
	}()

	for {
		select {
		case <-sess.Done:
			sess.WebSocket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case record, ok := <-sess.Records:
			if !ok {
				// Stream completed, drain finished.
				sess.WebSocket.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream completed"))
				return
			}
			if err := sess.RateLimiter.Wait(context.Background()); err != nil {
				h.metrics.RateLimitExceeded.Inc()
				continue
			}
			sess.WebSocket.SetWriteDeadline(time.Now().Add(60 * time.Second))
			if err := sess.WebSocket.WriteMessage(websocket.TextMessage, record); err != nil {
				h.logger.Warn("websocket write error", zap.String("stream_id", sess.ID), zap.Error(err))
				h.metrics.WebSocketErrors.Inc()
				return
			}
			h.metrics.RecordSize.Observe(float64(len(record)))
		case <-ticker.C:
			sess.WebSocket.SetWriteDeadline(time.Now().Add(60 * time.Second))
			if err := sess.WebSocket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
