package simulation

import "time"

// CommandType names a one-shot trigger raised by a control surface.
type CommandType string

const (
	CommandFault   CommandType = "fault"
	CommandShuffle CommandType = "shuffle"
)

// Command is a trigger waiting to be applied. Each command is consumed
// exactly once, by whichever drain picks it up first.
type Command struct {
	Type     CommandType
	Queued   time.Time
	resultCh chan error
}
