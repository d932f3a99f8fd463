package rcon

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"sync"

	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
)

type request struct {
	command string
	result  chan result
}

type result struct {
	body string
	err  error
}

// session is one authenticated connection. A single worker goroutine owns
// the write side and consumes packets from the reader goroutine, so at most
// one request is ever in flight.
type session struct {
	conn         net.Conn
	logger       *log.Logger
	onDisconnect func(error)
	packets      chan Packet
	wake         chan struct{}
	done         chan struct{}

	// worker only
	nextID int32

	mu     sync.Mutex
	queue  []*request
	closed bool
	err    error
}

func newSession(conn net.Conn, firstID int32, logger *log.Logger, onDisconnect func(error)) *session {
	s := &session{
		conn:         conn,
		logger:       logger,
		onDisconnect: onDisconnect,
		packets:      make(chan Packet, 16),
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		nextID:       firstID,
	}
	go s.readLoop()
	go s.run()
	return s
}

func (s *session) enqueue(req *request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.err
	}
	s.queue = append(s.queue, req)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *session) next() *request {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		if len(s.queue) > 0 {
			req := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return req
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.done:
			return nil
		}
	}
}

func (s *session) run() {
	for {
		req := s.next()
		if req == nil {
			return
		}

		body, err := s.roundTrip(req.command)
		req.result <- result{body: body, err: err}
		if err != nil {
			s.fail(err)
			return
		}
	}
}

// roundTrip sends command followed by an empty command. The server answers
// in order, so every RESPONSE_VALUE fragment carrying the command's id that
// arrives before the empty command's echo belongs to the response.
func (s *session) roundTrip(command string) (string, error) {
	id := s.allocID()
	tail := s.allocID()

	if err := WritePacket(s.conn, Packet{ID: id, Type: TypeExecCommand, Body: command}); err != nil {
		return "", s.writeError(err)
	}
	if err := WritePacket(s.conn, Packet{ID: tail, Type: TypeExecCommand}); err != nil {
		return "", s.writeError(err)
	}

	var sb strings.Builder
	for {
		select {
		case p := <-s.packets:
			switch {
			case p.ID == tail:
				return sb.String(), nil
			case p.ID == id && p.Type == TypeResponseValue:
				sb.WriteString(p.Body)
			default:
				s.logger.Debug("discarding stale packet", "id", p.ID, "type", p.Type, "want", id)
			}
		case <-s.done:
			return "", s.terminalErr()
		}
	}
}

func (s *session) readLoop() {
	for {
		p, err := ReadPacket(s.conn)
		if err != nil {
			s.fail(fmt.Errorf("%w: %w", domain.ErrConnectionLost, err))
			return
		}
		select {
		case s.packets <- p:
		case <-s.done:
			return
		}
	}
}

func (s *session) allocID() int32 {
	id := s.nextID
	if s.nextID == math.MaxInt32 {
		s.nextID = 1
	} else {
		s.nextID++
	}
	return id
}

func (s *session) writeError(err error) error {
	if s.isClosed() {
		return s.terminalErr()
	}
	return fmt.Errorf("%w: %w", domain.ErrConnectionLost, err)
}

// fail marks the session destroyed and fails every queued request with err.
// The in-flight request, if any, is failed by the worker. Only the first call
// has an effect.
func (s *session) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	pending := s.queue
	s.queue = nil
	close(s.done)
	s.mu.Unlock()

	_ = s.conn.Close()

	for _, req := range pending {
		req.result <- result{err: err}
	}

	if !errors.Is(err, domain.ErrClosed) {
		s.logger.Warn("rcon session torn down", "err", err)
		if s.onDisconnect != nil {
			go s.onDisconnect(err)
		}
	}
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
