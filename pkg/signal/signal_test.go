package signal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type receiver struct {
	got []int
}

func (r *receiver) slot(v int) { r.got = append(r.got, v) }

func TestConnectIsUnique(t *testing.T) {
	var s Signal[int]
	r := &receiver{}

	assert.True(t, s.Connect(r, r.slot))
	assert.False(t, s.Connect(r, r.slot))
	assert.Equal(t, 1, s.Len())

	s.Emit(7)
	assert.Equal(t, []int{7}, r.got)
}

func TestConnectRejectsNil(t *testing.T) {
	var s Signal[int]
	assert.False(t, s.Connect(nil, func(int) {}))
	assert.False(t, s.Connect("key", nil))
	assert.Equal(t, 0, s.Len())
}

func TestEmitOrder(t *testing.T) {
	var s Signal[string]
	var order []string

	s.Connect("a", func(v string) { order = append(order, "a:"+v) })
	s.Connect("b", func(v string) { order = append(order, "b:"+v) })
	s.Emit("x")

	assert.Equal(t, []string{"a:x", "b:x"}, order)
}

func TestDisconnect(t *testing.T) {
	var s Signal[int]
	a, b := &receiver{}, &receiver{}
	s.Connect(a, a.slot)
	s.Connect(b, b.slot)

	assert.True(t, s.Disconnect(a))
	assert.False(t, s.Disconnect(a))
	assert.False(t, s.IsConnected(a))
	assert.True(t, s.IsConnected(b))

	s.Emit(1)
	assert.Empty(t, a.got)
	assert.Equal(t, []int{1}, b.got)

	// Reconnecting after disconnect is allowed.
	assert.True(t, s.Connect(a, a.slot))
}

func TestDisconnectAll(t *testing.T) {
	var s Signal[int]
	s.Connect(1, func(int) {})
	s.Connect(2, func(int) {})
	s.DisconnectAll()
	assert.Equal(t, 0, s.Len())
}

func TestSlotMayDisconnectItself(t *testing.T) {
	var s Signal[int]
	calls := 0
	s.Connect("once", func(int) {
		calls++
		s.Disconnect("once")
	})

	s.Emit(1)
	s.Emit(2)
	assert.Equal(t, 1, calls)
}

func TestConcurrentEmit(t *testing.T) {
	var s Signal[int]
	var mu sync.Mutex
	total := 0
	s.Connect("sum", func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Emit(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, total)
}
