package models

import (
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Session is the server-side handle for one consumer-facing stream.
type Session struct {
	ID          string
	Generator   string
	WebSocket   *websocket.Conn
	Done        chan struct{}
	RateLimiter *rate.Limiter
	Records     chan []byte
}
