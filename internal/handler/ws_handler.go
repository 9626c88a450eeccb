package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/response"
	"github.com/stemsi/akademi-backend/internal/service"
	ws "github.com/stemsi/akademi-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams per-user domain events over WebSocket.
type WSHandler struct {
	events   service.EventSubscriber
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. events may be nil when Redis is not
// configured; the stream then answers 503.
func NewWSHandler(events service.EventSubscriber, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		events:   events,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// UserEventStream godoc
// WS /ws/v1/me/events
// Pushes certificate_issued events to the authenticated user.
func (h *WSHandler) UserEventStream(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if h.events == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.events.Subscribe(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Event subscription failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("user_id", userID).Logger()
	wsLog.Info().Msg("User connected")

	pings := make(chan struct{}, 1)
	go h.readLoop(conn, wsLog, cancel, pings)

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady}); err != nil {
		return
	}

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Connection closed")
			return

		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}

		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}

		case payload, ok := <-events:
			if !ok {
				ws.WriteError(conn, "event stream closed")
				return
			}
			if err := h.forward(conn, payload); err != nil {
				wsLog.Warn().Err(err).Msg("Failed to forward event")
				return
			}
		}
	}
}

// readLoop owns every read on conn. The write side stays on the caller's goroutine.
func (h *WSHandler) readLoop(conn *websocket.Conn, wsLog zerolog.Logger, cancel context.CancelFunc, pings chan<- struct{}) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			select {
			case pings <- struct{}{}:
			default:
			}
		default:
			wsLog.Debug().Str("action", string(msg.Action)).Msg("Ignoring unknown action")
		}
	}
}

func (h *WSHandler) forward(conn *websocket.Conn, payload []byte) error {
	var ev service.UserEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.log.Warn().Err(err).Msg("Dropping malformed event")
		return nil
	}

	switch ev.Type {
	case service.EventTypeCertificateIssued:
		return ws.WriteTyped(conn, ws.CertificateIssuedResponse{
			Event:       ws.EventCertificateIssued,
			Certificate: ev.Certificate,
		})
	default:
		h.log.Debug().Str("type", ev.Type).Msg("Dropping unknown event type")
		return nil
	}
}
