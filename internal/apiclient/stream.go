package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	ws "github.com/Hecker-Chuoi/answergate-sub000/internal/websocket"
)

// ErrStreamRejected is returned when the server refuses the upgrade.
var ErrStreamRejected = errors.New("session stream rejected")

// StreamURL is the websocket address of the session update stream.
func (c *Client) StreamURL(token string, sessionID int) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api root: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/ws/taking-test/%d/stream", sessionID)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// WatchSession streams schedule changes for a session and calls onUpdate for each
// one. The initial "connected" frame is delivered too, so the caller always starts
// from the server's current view. It blocks until ctx is cancelled or the
// connection drops; a cancelled context returns nil.
func (c *Client) WatchSession(ctx context.Context, token string, sessionID int, onUpdate func(model.SessionInfo)) error {
	target, err := c.StreamURL(token, sessionID)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return fmt.Errorf("%w: http %d", ErrStreamRejected, resp.StatusCode)
		}
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dial session stream: %w", err)
	}
	defer conn.Close()

	log := c.log.With().Int("session_id", sessionID).Logger()
	log.Debug().Msg("Session stream connected")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(ws.WriteWait))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg ws.Message
		if err := ws.ReadMessage(conn, &msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read session stream: %w", err)
		}

		switch msg.Event {
		case ws.EventConnected, ws.EventSessionUpdated:
			if msg.Session != nil {
				onUpdate(*msg.Session)
			}
		case ws.EventError:
			log.Warn().Str("error", msg.Error).Msg("Session stream error")
		}
	}
}
