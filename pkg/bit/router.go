package bit

import (
	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/signal"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
)

// Router binds the manager's command endpoints to at most one test.
// It is not safe for concurrent use; the manager only touches it on its loop.
type Router struct {
	inbound   *signal.Signal[command.Command]
	outbound  func(command.Command)
	telemetry *signal.Signal[telemetry.Frame]

	peer bittest.Test
}

// NewRouter creates a router. Commands emitted on inbound are delivered to
// the peer; commands the peer sends are passed to outbound; telemetry the
// peer publishes is re-emitted on tlm.
func NewRouter(inbound *signal.Signal[command.Command], outbound func(command.Command), tlm *signal.Signal[telemetry.Frame]) *Router {
	return &Router{inbound: inbound, outbound: outbound, telemetry: tlm}
}

// Attach makes t the peer. Attaching the current peer again changes nothing
// and returns false; attaching another test detaches the previous one first.
func (r *Router) Attach(t bittest.Test) bool {
	if t == nil || r.peer == t {
		return false
	}
	r.Detach()

	r.peer = t
	r.inbound.Connect(t, t.ReceiveCommand)
	t.Outbound().Connect(r, r.outbound)
	if src, ok := t.(bittest.TelemetrySource); ok && r.telemetry != nil {
		src.Telemetry().Connect(r, r.telemetry.Emit)
	}
	return true
}

// Detach unbinds the current peer. It returns false when there was none.
func (r *Router) Detach() bool {
	t := r.peer
	if t == nil {
		return false
	}

	r.inbound.Disconnect(t)
	t.Outbound().Disconnect(r)
	if src, ok := t.(bittest.TelemetrySource); ok {
		src.Telemetry().Disconnect(r)
	}
	r.peer = nil
	return true
}

// Peer returns the attached test, or nil.
func (r *Router) Peer() bittest.Test {
	return r.peer
}
