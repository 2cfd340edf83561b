package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/middleware"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/response"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
	ws "github.com/Hecker-Chuoi/answergate-sub000/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients do not send Origin.
				return true
			}
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session schedule changes to candidates.
type WSHandler struct {
	svc      *service.TakingTestService
	log      zerolog.Logger
	upgrader websocket.Upgrader
	// pingPeriod is overridable in tests.
	pingPeriod time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(svc *service.TakingTestService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		svc:        svc,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
		pingPeriod: ws.PingPeriod,
	}
}

// SessionStream godoc
// WS /ws/taking-test/:session_id/stream?token=
// Sends the current session metadata, then a frame per reschedule.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil || sessionID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx := c.Request.Context()
	current, err := h.svc.GetSession(ctx, sessionID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAssigned):
			response.Fail(c, http.StatusForbidden, response.ErrNotAssigned)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("candidate_id", claims.UserID).
		Int("session_id", sessionID).
		Logger()

	updates, cancel, err := h.svc.Subscribe(ctx, sessionID, claims.UserID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Subscribe failed")
		_ = ws.WriteError(conn, "could not subscribe to session updates")
		return
	}
	defer cancel()

	if err := ws.WriteTyped(conn, ws.Message{Event: ws.EventConnected, Session: &current}); err != nil {
		return
	}
	wsLog.Info().Msg("Candidate connected")

	// The reader only services control frames and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.KeepAlive(conn)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			wsLog.Debug().Msg("Connection closed")
			return
		case info, ok := <-updates:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ws.Message{Event: ws.EventSessionUpdated, Session: &info}); err != nil {
				wsLog.Warn().Err(err).Msg("Write session update failed")
				return
			}
		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}
