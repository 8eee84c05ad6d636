package event

import (
	"time"

	"github.com/viant/procsched/internal/clock"
	"github.com/viant/procsched/model/proc"
)

// Type names a lifecycle transition.
type Type string

const (
	Booted       Type = "booted"
	Forked       Type = "forked"
	Exited       Type = "exited"
	Reaped       Type = "reaped"
	Killed       Type = "killed"
	Promoted     Type = "promoted"
	QueueChanged Type = "queueChanged"
)

// Context identifies where an event happened.
type Context struct {
	BootID    string `json:"bootID"`
	PID       int    `json:"pid"`
	EventType Type   `json:"eventType"`
	Tick      uint64 `json:"tick"`
}

// Event wraps a payload with its context.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}

// Lifecycle is the payload of scheduler events.
type Lifecycle struct {
	PID       int        `json:"pid"`
	ParentPID int        `json:"parentPid,omitempty"`
	Name      string     `json:"name,omitempty"`
	From      proc.Level `json:"from,omitempty"`
	To        proc.Level `json:"to,omitempty"`
}
