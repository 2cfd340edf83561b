package websocket

import "github.com/Hecker-Chuoi/answergate-sub000/internal/model"

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventConnected carries the current session metadata right after upgrade.
	EventConnected Event = "connected"
	// EventSessionUpdated carries changed start time or time limit.
	EventSessionUpdated Event = "session_updated"
	EventError          Event = "error"
)

// Message is the only frame shape on the session stream. The client never sends
// data frames; it only answers pings.
type Message struct {
	Event   Event              `json:"event"`
	Session *model.SessionInfo `json:"session,omitempty"`
	Error   string             `json:"error,omitempty"`
}
