package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/fbce-flight/bit-go/pkg/signal"
)

// Hub errors.
var (
	// ErrHubClosed is returned when attaching to or sending on a closed hub.
	ErrHubClosed = errors.New("command hub closed")

	// ErrNoStreams is returned by Send when no stream is attached.
	ErrNoStreams = errors.New("no command streams attached")
)

// HubConfig configures a Hub.
type HubConfig struct {
	// MaxMessageSize bounds inbound frames. Zero selects DefaultMaxMessageSize.
	MaxMessageSize uint32

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// Hub is a Channel over any number of framed byte streams.
type Hub struct {
	config   HubConfig
	received signal.Signal[Command]

	mu      sync.RWMutex
	streams map[string]*stream
	closed  bool
	wg      sync.WaitGroup
}

type stream struct {
	id        string
	conn      io.ReadWriteCloser
	reader    *FrameReader
	writer    *FrameWriter
	closeOnce sync.Once
}

func (s *stream) close() {
	s.closeOnce.Do(func() { _ = s.conn.Close() })
}

// NewHub creates an empty Hub.
func NewHub(config HubConfig) *Hub {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Hub{
		config:  config,
		streams: make(map[string]*stream),
	}
}

// debugLog logs a debug message if a logger is configured.
func (h *Hub) debugLog(msg string, args ...any) {
	if h.config.Logger != nil {
		h.config.Logger.Debug(msg, args...)
	}
}

// Received implements Channel.
func (h *Hub) Received() *signal.Signal[Command] {
	return &h.received
}

// Attach starts serving conn and returns its stream ID. The stream is
// detached and closed when reading from it fails.
func (h *Hub) Attach(conn io.ReadWriteCloser) (string, error) {
	s := &stream{
		id:     uuid.New().String(),
		conn:   conn,
		reader: NewFrameReader(conn),
		writer: NewFrameWriter(conn),
	}
	s.reader.SetMaxMessageSize(h.config.MaxMessageSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", ErrHubClosed
	}
	h.streams[s.id] = s
	h.wg.Add(1)
	h.mu.Unlock()

	h.debugLog("command stream attached", "stream", s.id)
	go h.readLoop(s)
	return s.id, nil
}

// Detach closes and forgets the stream with the given ID.
func (h *Hub) Detach(id string) bool {
	h.mu.Lock()
	s, ok := h.streams[id]
	delete(h.streams, id)
	h.mu.Unlock()

	if ok {
		s.close()
		h.debugLog("command stream detached", "stream", id)
	}
	return ok
}

// StreamCount returns the number of attached streams.
func (h *Hub) StreamCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// Send writes cmd to every attached stream. Streams that fail are detached;
// the returned error joins their failures.
func (h *Hub) Send(cmd Command) error {
	data, err := Encode(cmd)
	if err != nil {
		return err
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	streams := make([]*stream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	h.mu.RUnlock()

	if len(streams) == 0 {
		return ErrNoStreams
	}

	var errs []error
	for _, s := range streams {
		if err := s.writer.WriteFrame(data); err != nil {
			errs = append(errs, fmt.Errorf("stream %s: %w", s.id, err))
			h.Detach(s.id)
		}
	}
	return errors.Join(errs...)
}

// readLoop emits every command read from s until the stream fails.
// Frames that do not decode are skipped.
func (h *Hub) readLoop(s *stream) {
	defer h.wg.Done()
	defer h.Detach(s.id)

	for {
		data, err := s.reader.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				h.debugLog("command stream read failed", "stream", s.id, "error", err)
			}
			return
		}

		cmd, err := Decode(data)
		if err != nil {
			h.debugLog("dropping undecodable command", "stream", s.id, "error", err)
			continue
		}
		h.received.Emit(cmd)
	}
}

// Serve accepts connections from ln and attaches each one until ctx is
// cancelled or the listener fails. Cancellation closes ln and returns nil.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	h.debugLog("command hub listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept error: %w", err)
		}

		if _, err := h.Attach(conn); err != nil {
			_ = conn.Close()
			return err
		}
	}
}

// Close detaches every stream and waits for their read loops to finish.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	streams := h.streams
	h.streams = make(map[string]*stream)
	h.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
	h.wg.Wait()
	return nil
}

var _ Channel = (*Hub)(nil)
