// Package websocket streams a run to a remote viewer. This is the live
// render feed: the viewer draws the road from tick envelopes.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zkplatoon/platoon/pkg/core"
	"github.com/zkplatoon/platoon/pkg/streaming"
)

// ErrDropped is returned when the send queue is full.
var ErrDropped = errors.New("websocket send queue full")

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams run data to a viewer over WebSocket.
type Backend struct {
	conn  *connection
	cfg   Config
	runID uint
}

// New creates a new WebSocket recorder backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the viewer.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the viewer.
func (b *Backend) Close() error {
	return b.conn.close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope is fire-and-forget.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if !b.conn.send(data) {
		return fmt.Errorf("%s: %w", msgType, ErrDropped)
	}
	return nil
}

// StartRun sends start_run and waits for the viewer's ack.
func (b *Backend) StartRun(run *core.Run, snap *core.Snapshot) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: *run, Snapshot: *snap})
	if err != nil {
		return err
	}
	b.runID = run.ID
	b.conn.setStartMsg(data)
	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for the viewer's ack.
func (b *Backend) EndRun(final *core.Snapshot) error {
	payload := streaming.EndRunPayload{RunID: b.runID}
	if final != nil {
		payload.Final = *final
	}
	data, err := marshalEnvelope(streaming.TypeEndRun, payload)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)

	b.conn.setStartMsg(nil)
	return err
}

func (b *Backend) RecordTick(snap *core.Snapshot) error {
	return b.sendEnvelope(streaming.TypeTick, snap)
}

func (b *Backend) RecordFault(ev *core.FaultEvent) error {
	return b.sendEnvelope(streaming.TypeFault, ev)
}

func (b *Backend) RecordShuffle(ev *core.ShuffleEvent) error {
	return b.sendEnvelope(streaming.TypeShuffle, ev)
}
