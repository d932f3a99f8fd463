package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"craftbridge/internal/domain"
	"craftbridge/internal/parser"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	defaultCommandTimeout = 10 * time.Second
	defaultHistoryLimit   = 50
)

type Supervisor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Kill() error
	State() domain.LifecycleState
	PID() int32
}

type Commander interface {
	Execute(ctx context.Context, command string) (string, error)
}

type PlayerCounter interface {
	FetchPlayerCount(ctx context.Context, host string) (uint32, error)
}

type Options struct {
	Supervisor     Supervisor
	RCON           Commander
	Probe          PlayerCounter
	Host           string
	Broker         *Broker
	History        domain.HistoryRepository
	CommandTimeout time.Duration
	// StartTimeout bounds how long Start and Stop wait for the process.
	StartTimeout time.Duration
	Logger       *log.Logger
}

// Coordinator is the surface the chat bridge talks to. It composes the
// supervisor, the RCON channel and the status probe.
type Coordinator struct {
	sup            Supervisor
	rcon           Commander
	probe          PlayerCounter
	host           string
	broker         *Broker
	history        domain.HistoryRepository
	commandTimeout time.Duration
	startTimeout   time.Duration
	logger         *log.Logger

	mu         sync.Mutex
	maxPlayers int

	stopRecording func()
	recorderDone  chan struct{}
}

func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		sup:            opts.Supervisor,
		rcon:           opts.RCON,
		probe:          opts.Probe,
		host:           opts.Host,
		broker:         opts.Broker,
		history:        opts.History,
		commandTimeout: opts.CommandTimeout,
		startTimeout:   opts.StartTimeout,
		logger:         opts.Logger,
		recorderDone:   make(chan struct{}),
	}
	if c.host == "" {
		c.host = "localhost"
	}
	if c.broker == nil {
		c.broker = NewBroker()
	}
	if c.commandTimeout <= 0 {
		c.commandTimeout = defaultCommandTimeout
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("bridge")
	}

	events, cancel := c.broker.Subscribe()
	c.stopRecording = cancel
	go c.record(events)
	return c
}

func (c *Coordinator) record(events <-chan domain.Event) {
	defer close(c.recorderDone)
	for ev := range events {
		if c.history == nil {
			continue
		}
		if err := c.history.RecordEvent(ev); err != nil {
			c.logger.Warn("could not record event", "type", ev.Type, "err", err)
		}
	}
}

// Close stops history recording. It does not touch the server process.
func (c *Coordinator) Close() {
	c.stopRecording()
	<-c.recorderDone
}

func (c *Coordinator) State() domain.LifecycleState {
	return c.sup.State()
}

// Start launches the server and, once it is up, reads the roster to learn
// the player capacity.
func (c *Coordinator) Start(ctx context.Context) error {
	ctx, cancel := c.lifecycleContext(ctx)
	defer cancel()

	if err := c.sup.Start(ctx); err != nil {
		c.logger.Error("start failed", "err", err)
		return err
	}

	roster, err := c.ListPlayers(ctx)
	if err != nil {
		c.logger.Warn("could not read player capacity", "err", err)
		return nil
	}
	c.logger.Info("server is running", "max_players", roster.Max)
	return nil
}

func (c *Coordinator) Stop(ctx context.Context) error {
	ctx, cancel := c.lifecycleContext(ctx)
	defer cancel()

	if err := c.sup.Stop(ctx); err != nil {
		if !domain.IsPrecondition(err) {
			c.logger.Error("stop failed", "err", err)
		}
		return err
	}
	return nil
}

func (c *Coordinator) lifecycleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.startTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.startTimeout)
}

func (c *Coordinator) Kill() error {
	return c.sup.Kill()
}

// RunCommand sends text to the server console and returns its reply.
func (c *Coordinator) RunCommand(ctx context.Context, text string) (string, error) {
	if state := c.sup.State(); state != domain.Running {
		return "", fmt.Errorf("%w (state %s)", domain.ErrNotRunning, state)
	}

	ctx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	resp, err := c.rcon.Execute(ctx, text)
	if c.history != nil {
		if herr := c.history.RecordCommand(text, resp, err); herr != nil {
			c.logger.Warn("could not record command", "err", herr)
		}
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// ListPlayers runs "list". Responses in an unknown format yield an empty
// roster rather than an error.
func (c *Coordinator) ListPlayers(ctx context.Context) (domain.Roster, error) {
	resp, err := c.RunCommand(ctx, "list")
	if err != nil {
		return domain.Roster{}, err
	}

	roster := parser.ParseRoster(resp)
	if roster.Max > 0 {
		c.mu.Lock()
		c.maxPlayers = roster.Max
		c.mu.Unlock()
	}
	return roster, nil
}

// FetchPlayerCount asks the status endpoint how many players are online.
func (c *Coordinator) FetchPlayerCount(ctx context.Context) (uint32, error) {
	if c.probe == nil {
		return 0, domain.ErrUnreachable
	}
	return c.probe.FetchPlayerCount(ctx, c.host)
}

func (c *Coordinator) MaxPlayers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxPlayers
}

// Status reports the lifecycle state and, while running, the online count.
// An unreachable status endpoint is reported, not returned as an error.
func (c *Coordinator) Status(ctx context.Context) domain.StatusReport {
	report := domain.StatusReport{State: c.sup.State(), Max: c.MaxPlayers()}
	if report.State != domain.Running {
		return report
	}

	online, err := c.FetchPlayerCount(ctx)
	if err != nil {
		c.logger.Debug("status probe failed", "err", err)
		return report
	}
	report.Online = online
	report.Reachable = true
	return report
}

// Stats samples CPU and resident memory of the server process.
func (c *Coordinator) Stats() (domain.ServerStats, error) {
	pid := c.sup.PID()
	if pid == 0 {
		return domain.ServerStats{}, fmt.Errorf("%w (state %s)", domain.ErrNotRunning, c.sup.State())
	}

	proc, err := process.NewProcess(pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return domain.ServerStats{}, domain.ErrNotRunning
		}
		return domain.ServerStats{}, err
	}

	stats := domain.ServerStats{PID: pid}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPU = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RAM = mem.RSS
	}
	return stats, nil
}

func (c *Coordinator) History(limit int) ([]domain.HistoryEntry, error) {
	if c.history == nil {
		return []domain.HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return c.history.ListHistory(limit)
}

// Subscribe streams PlayerJoined, PlayerLeft, ServerError, Closed, Started
// and Stopped events in the order they happened.
func (c *Coordinator) Subscribe() (<-chan domain.Event, func()) {
	return c.broker.Subscribe()
}
