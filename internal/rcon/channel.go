package rcon

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"
	"sync"
	"time"

	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
)

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Option func(*Channel)

func WithDialer(dial DialFunc) Option {
	return func(c *Channel) { c.dial = dial }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// WithDisconnectHandler registers fn to be called, on its own goroutine, when
// an authenticated session is torn down by anything other than Close.
func WithDisconnectHandler(fn func(error)) Option {
	return func(c *Channel) { c.onDisconnect = fn }
}

// Channel is a remote-console client holding at most one authenticated
// session. Commands are served strictly in submission order, one in flight at
// a time.
type Channel struct {
	addr         string
	password     string
	dial         DialFunc
	logger       *log.Logger
	onDisconnect func(error)

	mu            sync.Mutex
	connecting    bool
	cancelConnect context.CancelCauseFunc
	sess          *session
}

func NewChannel(addr, password string, opts ...Option) *Channel {
	var d net.Dialer
	c := &Channel{
		addr:     addr,
		password: password,
		dial:     d.DialContext,
		logger:   log.Default().WithPrefix("rcon"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) Addr() string {
	return c.addr
}

// Connect opens the transport and authenticates. Any previous session is
// closed first.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return domain.ErrAlreadyConnecting
	}
	ctx, cancel := context.WithCancelCause(ctx)
	c.connecting = true
	c.cancelConnect = cancel
	old := c.sess
	c.sess = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.cancelConnect = nil
		c.mu.Unlock()
		cancel(nil)
	}()

	if old != nil {
		old.fail(domain.ErrClosed)
	}

	sess, err := c.handshake(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if context.Cause(ctx) != nil {
		c.mu.Unlock()
		sess.fail(domain.ErrClosed)
		return connectError(ctx, domain.ErrClosed)
	}
	c.sess = sess
	c.mu.Unlock()

	c.logger.Info("rcon session authenticated", "addr", c.addr)
	return nil
}

func (c *Channel) handshake(ctx context.Context) (*session, error) {
	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return nil, connectError(ctx, fmt.Errorf("%w: dial %s: %w", domain.ErrConnectionLost, c.addr, err))
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	fail := func(err error) (*session, error) {
		_ = conn.Close()
		return nil, connectError(ctx, err)
	}

	authID := newRequestID()
	if err := WritePacket(conn, Packet{ID: authID, Type: TypeAuth, Body: c.password}); err != nil {
		return fail(fmt.Errorf("%w: %w", domain.ErrConnectionLost, err))
	}

	for {
		p, err := ReadPacket(conn)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", domain.ErrConnectionLost, err))
		}
		// some servers send an empty RESPONSE_VALUE ahead of the auth reply
		if p.Type != TypeAuthResponse {
			continue
		}
		if p.ID == -1 {
			return fail(domain.ErrAuth)
		}
		if p.ID != authID {
			return fail(fmt.Errorf("%w: response id %d does not match request id %d", domain.ErrAuth, p.ID, authID))
		}
		break
	}

	if !stop() {
		return fail(context.Cause(ctx))
	}
	_ = conn.SetDeadline(time.Time{})

	return newSession(conn, authID+1, c.logger, c.onDisconnect), nil
}

// Execute queues command behind any request already submitted and returns
// the reassembled response. If ctx expires before the response arrives the
// session is torn down and every outstanding request fails with ErrTimeout.
func (c *Channel) Execute(ctx context.Context, command string) (string, error) {
	if strings.IndexByte(command, 0) >= 0 {
		return "", ErrInvalidPayload
	}
	if minPacketLength+len(command) > maxPacketLength {
		return "", ErrPacketSize
	}

	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return "", domain.ErrNotConnected
	}

	req := &request{command: command, result: make(chan result, 1)}
	if err := s.enqueue(req); err != nil {
		return "", err
	}

	select {
	case r := <-req.result:
		return r.body, r.err
	case <-ctx.Done():
		err := fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err())
		c.teardown(s, err)
		return "", err
	}
}

func (c *Channel) Connected() bool {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	return s != nil && !s.isClosed()
}

// Close tears down the session and cancels an in-progress Connect. Queued and
// in-flight requests fail with ErrClosed. Safe to call repeatedly.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.cancelConnect != nil {
		c.cancelConnect(domain.ErrClosed)
	}
	s := c.sess
	c.sess = nil
	c.mu.Unlock()

	if s != nil {
		s.fail(domain.ErrClosed)
	}
	return nil
}

func (c *Channel) teardown(s *session, err error) {
	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
	}
	c.mu.Unlock()
	s.fail(err)
}

func connectError(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	switch {
	case cause == nil:
		return err
	case errors.Is(cause, domain.ErrClosed):
		return domain.ErrClosed
	default:
		return fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err())
	}
}

func newRequestID() int32 {
	return rand.Int32N(1<<30) + 1
}
