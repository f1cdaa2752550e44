package command

import (
	"sync"

	"github.com/fbce-flight/bit-go/pkg/signal"
)

// Channel is a bidirectional command endpoint.
type Channel interface {
	// Received is emitted for every inbound command.
	Received() *signal.Signal[Command]

	// Send transmits an outbound command.
	Send(cmd Command) error
}

// Loopback is an in-process Channel. Sent commands are recorded and
// re-emitted on Sent; Inject delivers an inbound command.
type Loopback struct {
	received signal.Signal[Command]
	sent     signal.Signal[Command]

	mu      sync.Mutex
	history []Command
}

// NewLoopback creates a Loopback channel.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Received implements Channel.
func (l *Loopback) Received() *signal.Signal[Command] {
	return &l.received
}

// Sent is emitted for every command passed to Send.
func (l *Loopback) Sent() *signal.Signal[Command] {
	return &l.sent
}

// Send records cmd and emits it on Sent.
func (l *Loopback) Send(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.history = append(l.history, cmd)
	l.mu.Unlock()

	l.sent.Emit(cmd)
	return nil
}

// Inject delivers cmd as if it had arrived from the link.
func (l *Loopback) Inject(cmd Command) {
	l.received.Emit(cmd)
}

// History returns a copy of every command sent so far.
func (l *Loopback) History() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Command(nil), l.history...)
}

var _ Channel = (*Loopback)(nil)
