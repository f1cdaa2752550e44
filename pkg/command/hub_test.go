package command

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubReceivesFromStream(t *testing.T) {
	hub := NewHub(HubConfig{})
	defer hub.Close()

	got := make(chan Command, 1)
	hub.Received().Connect("test", func(c Command) { got <- c })

	local, remote := net.Pipe()
	_, err := hub.Attach(local)
	require.NoError(t, err)

	go func() {
		_ = NewFrameWriter(remote).WriteCommand(Command{Code: CodeAck, Sequence: 4})
	}()

	select {
	case c := <-got:
		assert.Equal(t, CodeAck, c.Code)
		assert.Equal(t, uint32(4), c.Sequence)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for command")
	}
	remote.Close()
}

func TestHubSendFansOut(t *testing.T) {
	hub := NewHub(HubConfig{})
	defer hub.Close()

	assert.ErrorIs(t, hub.Send(Command{Code: CodeAck}), ErrNoStreams)

	var remotes []net.Conn
	for i := 0; i < 2; i++ {
		local, remote := net.Pipe()
		_, err := hub.Attach(local)
		require.NoError(t, err)
		remotes = append(remotes, remote)
	}
	assert.Equal(t, 2, hub.StreamCount())

	results := make(chan Command, 2)
	for _, r := range remotes {
		go func(c net.Conn) {
			cmd, err := NewFrameReader(c).ReadCommand()
			if err == nil {
				results <- cmd
			}
		}(r)
	}

	require.NoError(t, hub.Send(Command{Code: CodePumpOn, Sequence: 1}))

	for i := 0; i < 2; i++ {
		select {
		case c := <-results:
			assert.Equal(t, CodePumpOn, c.Code)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for fan-out")
		}
	}
}

func TestHubDetachOnRemoteClose(t *testing.T) {
	hub := NewHub(HubConfig{})
	defer hub.Close()

	local, remote := net.Pipe()
	_, err := hub.Attach(local)
	require.NoError(t, err)

	remote.Close()
	assert.Eventually(t, func() bool { return hub.StreamCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(HubConfig{})
	local, _ := net.Pipe()
	_, err := hub.Attach(local)
	require.NoError(t, err)

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	_, err = hub.Attach(local)
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.ErrorIs(t, hub.Send(Command{Code: CodeAck}), ErrHubClosed)
}

func TestHubServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hub := NewHub(HubConfig{})
	defer hub.Close()

	got := make(chan Command, 1)
	hub.Received().Connect("test", func(c Command) { got <- c })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, NewFrameWriter(conn).WriteCommand(Command{Code: CodeStopTest}))
	select {
	case c := <-got:
		assert.Equal(t, CodeStopTest, c.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for command over TCP")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
