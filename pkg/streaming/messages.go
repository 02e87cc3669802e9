// Package streaming defines the live feed protocol spoken between the
// simulation and a remote viewer.
package streaming

import (
	"encoding/json"

	"github.com/zkplatoon/platoon/pkg/core"
)

// Message type constants of the live feed.
const (
	TypeStartRun = "start_run"
	TypeEndRun   = "end_run"
	TypeTick     = "tick"
	TypeFault    = "fault"
	TypeShuffle  = "shuffle"
	TypeAck      = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the viewer's acknowledgement of start_run and end_run.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload opens a run with the platoon as it was when started.
type StartRunPayload struct {
	Run      core.Run      `json:"run"`
	Snapshot core.Snapshot `json:"snapshot"`
}

// EndRunPayload closes a run with the platoon as it was before the reset.
type EndRunPayload struct {
	RunID uint          `json:"runId"`
	Final core.Snapshot `json:"final"`
}
