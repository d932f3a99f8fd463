package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"craftbridge/internal/domain"

	"github.com/mcstatus-io/mcutil/v4/options"
	"github.com/mcstatus-io/mcutil/v4/response"
	mcstatus "github.com/mcstatus-io/mcutil/v4/status"
)

const defaultTimeout = 5 * time.Second

var ErrMalformed = errors.New("status: malformed response")

// QueryFunc performs one server-list status exchange.
type QueryFunc func(ctx context.Context, host string, port uint16, opts ...options.StatusModern) (*response.StatusModern, error)

// Probe queries the unauthenticated server-list status endpoint. It holds no
// session; every call opens its own connection.
type Probe struct {
	Port    int
	Timeout time.Duration
	Query   QueryFunc
}

type Response struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int64  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Online uint32 `json:"online"`
		Max    int    `json:"max"`
	} `json:"players"`
}

func NewProbe(port int, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Probe{Port: port, Timeout: timeout, Query: mcstatus.Modern}
}

// FetchPlayerCount returns the number of online players. A server that does
// not answer yields domain.ErrUnreachable, never zero.
func (p *Probe) FetchPlayerCount(ctx context.Context, host string) (uint32, error) {
	resp, err := p.Fetch(ctx, host)
	if err != nil {
		return 0, err
	}
	return resp.Players.Online, nil
}

func (p *Probe) Fetch(ctx context.Context, host string) (*Response, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := p.Query
	if query == nil {
		query = mcstatus.Modern
	}

	raw, err := query(ctx, host, uint16(p.Port), options.StatusModern{
		EnableSRV: false,
		Timeout:   timeout,
	})
	if err != nil {
		return nil, classify(err)
	}
	if raw.Players.Online == nil {
		return nil, fmt.Errorf("%w: missing online player count", ErrMalformed)
	}
	if *raw.Players.Online < 0 {
		return nil, fmt.Errorf("%w: negative player count %d", ErrMalformed, *raw.Players.Online)
	}

	resp := &Response{}
	resp.Version.Name = raw.Version.Name.Raw
	resp.Version.Protocol = raw.Version.Protocol
	resp.Players.Online = uint32(*raw.Players.Online)
	if raw.Players.Max != nil {
		resp.Players.Max = int(*raw.Players.Max)
	}
	return resp, nil
}

// classify separates transport failures from a server that answered with
// something other than a status document.
func classify(err error) error {
	var (
		opErr     *net.OpError
		dnsErr    *net.DNSError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.As(err, &opErr), errors.As(err, &dnsErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
