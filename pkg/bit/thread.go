package bit

import (
	"context"
	"fmt"
)

// startThread runs once on the loop before any queued operation.
func (m *Manager) startThread(context.Context) {
	m.logStatus(OpStartThread, "BIT thread started")

	if m.config.PriorityHook == nil {
		return
	}
	if err := m.config.PriorityHook(); err != nil {
		m.logError(OpStartThread, fmt.Sprintf("priority initialization: %v", err))
	}
}
