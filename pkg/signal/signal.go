// Package signal provides keyed, duplicate-free publish/subscribe
// connections between components.
//
// A Signal holds an ordered list of slots. Each slot is identified by a
// key chosen by the subscriber (usually the receiving component itself),
// which makes connecting idempotent: connecting the same key twice is
// rejected instead of delivering every emission twice.
package signal

import "sync"

// Signal delivers values of type T to its connected slots.
// The zero value is ready to use and safe for concurrent use.
type Signal[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
}

type slot[T any] struct {
	key any
	fn  func(T)
}

// Connect attaches fn under key. It returns false, leaving the existing
// connection in place, when key is already connected. Keys must be
// comparable.
func (s *Signal[T]) Connect(key any, fn func(T)) bool {
	if key == nil || fn == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sl := range s.slots {
		if sl.key == key {
			return false
		}
	}
	s.slots = append(s.slots, slot[T]{key: key, fn: fn})
	return true
}

// Disconnect removes the slot registered under key.
// It returns false when key was not connected.
func (s *Signal[T]) Disconnect(key any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sl := range s.slots {
		if sl.key == key {
			s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
			return true
		}
	}
	return false
}

// DisconnectAll removes every slot.
func (s *Signal[T]) DisconnectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = nil
}

// IsConnected reports whether a slot is registered under key.
func (s *Signal[T]) IsConnected(key any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sl := range s.slots {
		if sl.key == key {
			return true
		}
	}
	return false
}

// Len returns the number of connected slots.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Emit calls every connected slot with v, in connection order.
// Slots run on the caller's goroutine, outside the signal's lock, so a slot
// may connect or disconnect slots on the same signal.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	slots := make([]slot[T], len(s.slots))
	copy(slots, s.slots)
	s.mu.RUnlock()

	for _, sl := range slots {
		sl.fn(v)
	}
}
