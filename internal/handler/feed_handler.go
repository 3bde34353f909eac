package handler

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/infotcjeff2-droid/properties2/internal/events"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/infotcjeff2-droid/properties2/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	feedQueueSize = 64
	feedWriteWait = 10 * time.Second
	feedPongWait  = 60 * time.Second
	feedPingEvery = feedPongWait * 9 / 10
)

// FeedHandler streams committed store events to browsers over WebSocket
type FeedHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
	metrics  *prometheus.Metrics
}

// NewFeedHandler accepts connections from allowedOrigins; "*" or an empty list allows any origin
func NewFeedHandler(bus *events.Bus, allowedOrigins []string, m *prometheus.Metrics) *FeedHandler {
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &FeedHandler{
		bus:     bus,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// Serve upgrades the request and forwards events visible to the caller until the client goes away.
// A client that falls behind by more than the queue size loses events instead of stalling publishers.
func (h *FeedHandler) Serve(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	h.metrics.FeedConnected(1)
	defer h.metrics.FeedConnected(-1)
	log.Info("Change feed client connected", zap.String("user_id", actor.UserID))

	queue := make(chan events.Event, feedQueueSize)
	var dropped atomic.Int64
	unsubscribe := h.bus.SubscribeAll(func(_ context.Context, e events.Event) {
		if e.CompanyID != "" && !actor.CanAccess(e.CompanyID) {
			return
		}
		select {
		case queue <- e:
		default:
			if n := dropped.Add(1); n == 1 || n%100 == 0 {
				log.Warn("Change feed client is slow, dropping events", zap.Int64("dropped", n))
			}
		}
	})
	defer unsubscribe()

	// the read loop only exists to notice the client closing and to handle pongs
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingEvery)
	defer ping.Stop()

	for {
		select {
		case e := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				log.Info("Change feed write failed", zap.Error(err))
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return nil
			}
		case <-closed:
			log.Info("Change feed client disconnected", zap.String("user_id", actor.UserID))
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
