package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"craftbridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeServer speaks the server side of the protocol. Non-empty commands are
// answered by handler; empty commands get an empty echo.
type fakeServer struct {
	ln       net.Listener
	password string
	handler  func(p Packet) []Packet
	accepted chan struct{}
	silent   bool

	mu       sync.Mutex
	conns    []net.Conn
	received []string

	wg sync.WaitGroup
}

func newFakeServer(t *testing.T, password string, handler func(p Packet) []Packet) *fakeServer {
	return startFakeServer(t, password, handler, false)
}

// newSilentServer accepts connections but never answers.
func newSilentServer(t *testing.T, password string) *fakeServer {
	return startFakeServer(t, password, echo, true)
}

func startFakeServer(t *testing.T, password string, handler func(p Packet) []Packet, silent bool) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{
		ln:       ln,
		password: password,
		handler:  handler,
		silent:   silent,
		accepted: make(chan struct{}, 8),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s
}

func (s *fakeServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *fakeServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.accepted <- struct{}{}

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	for {
		p, err := ReadPacket(conn)
		if err != nil {
			return
		}
		if s.silent {
			continue
		}

		switch {
		case p.Type == TypeAuth:
			id := p.ID
			if p.Body != s.password {
				id = -1
			}
			if err := WritePacket(conn, Packet{ID: id, Type: TypeAuthResponse}); err != nil {
				return
			}
		case p.Body == "":
			if err := WritePacket(conn, Packet{ID: p.ID, Type: TypeResponseValue}); err != nil {
				return
			}
		default:
			s.mu.Lock()
			s.received = append(s.received, p.Body)
			s.mu.Unlock()

			replies := s.handler(p)
			if replies == nil {
				return
			}
			for _, reply := range replies {
				if err := WritePacket(conn, reply); err != nil {
					return
				}
			}
		}
	}
}

func (s *fakeServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *fakeServer) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func echo(p Packet) []Packet {
	return []Packet{{ID: p.ID, Type: TypeResponseValue, Body: "ok:" + p.Body}}
}

func connect(t *testing.T, srv *fakeServer, opts ...Option) *Channel {
	t.Helper()
	c := NewChannel(srv.Addr(), srv.password, opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	return c
}

func queued(c *Channel) int {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// waitSubmitted blocks until request i has reached the channel: the first one
// at the server, later ones in the queue.
func waitSubmitted(t *testing.T, c *Channel, srv *fakeServer, i int) {
	t.Helper()
	require.Eventually(t, func() bool {
		if i == 0 {
			return len(srv.Received()) == 1
		}
		return queued(c) == i
	}, 2*time.Second, time.Millisecond)
}

func TestConnectAndExecute(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := newFakeServer(t, "secret", echo)
	defer srv.Close()

	c := connect(t, srv)
	defer c.Close()
	assert.True(t, c.Connected())

	out, err := c.Execute(context.Background(), "list")
	require.NoError(t, err)
	assert.Equal(t, "ok:list", out)
	assert.Equal(t, []string{"list"}, srv.Received())
}

func TestConnectRejectedPassword(t *testing.T) {
	srv := newFakeServer(t, "secret", echo)
	defer srv.Close()

	c := NewChannel(srv.Addr(), "wrong")
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.False(t, c.Connected())
}

func TestConnectDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewChannel(addr, "secret")
	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectionLost)
}

func TestConnectWhileConnectingFailsFast(t *testing.T) {
	srv := newSilentServer(t, "secret")
	defer srv.Close()

	c := NewChannel(srv.Addr(), "secret")
	firstErr := make(chan error, 1)
	go func() {
		firstErr <- c.Connect(context.Background())
	}()

	select {
	case <-srv.accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("first connect never reached the server")
	}

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyConnecting)

	require.NoError(t, c.Close())
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, domain.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("close did not cancel the pending connect")
	}
}

func TestConnectTimeout(t *testing.T) {
	srv := newSilentServer(t, "secret")
	defer srv.Close()

	c := NewChannel(srv.Addr(), "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.False(t, c.Connected())
}

func TestFragmentedResponseIsReassembled(t *testing.T) {
	fragments := []string{"There are 2 of a max ", "of 20 players online: ", "Notch Herobrine"}
	srv := newFakeServer(t, "secret", func(p Packet) []Packet {
		var out []Packet
		for _, f := range fragments {
			out = append(out, Packet{ID: p.ID, Type: TypeResponseValue, Body: f})
		}
		return out
	})
	defer srv.Close()

	c := connect(t, srv)
	defer c.Close()

	out, err := c.Execute(context.Background(), "list")
	require.NoError(t, err)
	assert.Equal(t, "There are 2 of a max of 20 players online: Notch Herobrine", out)
}

func TestStalePacketsAreDiscarded(t *testing.T) {
	srv := newFakeServer(t, "secret", func(p Packet) []Packet {
		return []Packet{
			{ID: p.ID + 1000, Type: TypeResponseValue, Body: "stale"},
			{ID: p.ID, Type: TypeResponseValue, Body: "fresh"},
		}
	})
	defer srv.Close()

	c := connect(t, srv)
	defer c.Close()

	out, err := c.Execute(context.Background(), "seed")
	require.NoError(t, err)
	assert.Equal(t, "fresh", out)
}

func TestExecuteIsFIFO(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	srv := newFakeServer(t, "secret", func(p Packet) []Packet {
		once.Do(func() { <-release })
		return echo(p)
	})
	defer srv.Close()

	c := connect(t, srv)
	defer c.Close()

	const n = 8
	type reply struct {
		idx int
		out string
		err error
	}
	replies := make(chan reply, n)

	for i := 0; i < n; i++ {
		cmd := fmt.Sprintf("cmd-%d", i)
		go func(i int) {
			out, err := c.Execute(context.Background(), cmd)
			replies <- reply{idx: i, out: out, err: err}
		}(i)

		// the first request is in flight; the rest must be queued in order
		waitSubmitted(t, c, srv, i)
	}

	close(release)

	for i := 0; i < n; i++ {
		r := <-replies
		require.NoError(t, r.err)
		assert.Equal(t, fmt.Sprintf("ok:cmd-%d", r.idx), r.out)
	}

	var want []string
	for i := 0; i < n; i++ {
		want = append(want, fmt.Sprintf("cmd-%d", i))
	}
	assert.Equal(t, want, srv.Received())
}

func TestCloseFailsQueuedAndInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, "secret", func(p Packet) []Packet {
		<-release
		return echo(p)
	})
	defer srv.Close()
	defer close(release)

	c := connect(t, srv)

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := c.Execute(context.Background(), "say hi")
			errs <- err
		}()
		waitSubmitted(t, c, srv, i)
	}

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-errs, domain.ErrClosed)
	}
	assert.False(t, c.Connected())

	_, err := c.Execute(context.Background(), "list")
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestConnectionLostFailsRequests(t *testing.T) {
	srv := newFakeServer(t, "secret", func(p Packet) []Packet {
		return nil
	})
	defer srv.Close()

	lost := make(chan error, 1)
	c := connect(t, srv, WithDisconnectHandler(func(err error) { lost <- err }))
	defer c.Close()

	_, err := c.Execute(context.Background(), "stop")
	assert.ErrorIs(t, err, domain.ErrConnectionLost)

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, domain.ErrConnectionLost)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect handler not called")
	}

	assert.False(t, c.Connected())
	_, err = c.Execute(context.Background(), "list")
	assert.ErrorIs(t, err, domain.ErrConnectionLost)
}

func TestExecuteTimeoutTearsDownSession(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, "secret", func(p Packet) []Packet {
		<-release
		return echo(p)
	})
	defer srv.Close()
	defer close(release)

	c := connect(t, srv)
	defer c.Close()

	queuedErr := make(chan error, 1)
	go func() {
		_, err := c.Execute(context.Background(), "first")
		queuedErr <- err
	}()
	require.Eventually(t, func() bool { return len(srv.Received()) == 1 }, 2*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Execute(ctx, "second")
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.True(t, errors.Is(<-queuedErr, domain.ErrTimeout))
	assert.False(t, c.Connected())
}

func TestReconnectReplacesSession(t *testing.T) {
	srv := newFakeServer(t, "secret", echo)
	defer srv.Close()

	c := connect(t, srv)
	defer c.Close()
	require.NoError(t, c.Connect(context.Background()))

	out, err := c.Execute(context.Background(), "time query daytime")
	require.NoError(t, err)
	assert.Equal(t, "ok:time query daytime", out)
}

func TestExecuteRejectsInvalidCommand(t *testing.T) {
	c := NewChannel("127.0.0.1:1", "secret")
	_, err := c.Execute(context.Background(), "bad\x00cmd")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
