package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"craftbridge/internal/domain"
	"craftbridge/internal/parser"
	"craftbridge/internal/runner/strategy"

	"github.com/charmbracelet/log"
)

const defaultConnectTimeout = 30 * time.Second

// RCON is the remote-console session the supervisor drives.
type RCON interface {
	Connect(ctx context.Context) error
	Execute(ctx context.Context, command string) (string, error)
	Close() error
}

type JavaResolver interface {
	Resolve(javaPath string) (string, error)
}

type Options struct {
	Runner strategy.ServerRunner
	Spec   strategy.LaunchSpec
	Java   JavaResolver
	// Prepare runs before every launch; an error aborts the start.
	Prepare        func() error
	RCON           RCON
	ConnectTimeout time.Duration
	// Notify receives events in the order they were produced. It is called
	// with the supervisor lock held and must not block.
	Notify func(domain.Event)
	Logger *log.Logger
}

type ActiveProcess struct {
	Cmd *exec.Cmd
	PID int32
}

// Supervisor owns the server process and its lifecycle state. Every
// transition happens under mu; output lines, process exit and RCON
// disconnects are funneled through it.
type Supervisor struct {
	runner         strategy.ServerRunner
	spec           strategy.LaunchSpec
	java           JavaResolver
	prepare        func() error
	rcon           RCON
	connectTimeout time.Duration
	notify         func(domain.Event)
	logger         *log.Logger

	mu        sync.Mutex
	state     domain.LifecycleState
	launching bool
	killed    bool
	gen       uint64
	proc      *ActiveProcess
	startDone chan error
	stopDone  chan error
}

func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		runner:         opts.Runner,
		spec:           opts.Spec,
		java:           opts.Java,
		prepare:        opts.Prepare,
		rcon:           opts.RCON,
		connectTimeout: opts.ConnectTimeout,
		notify:         opts.Notify,
		logger:         opts.Logger,
		state:          domain.Stopped,
	}
	if s.runner == nil {
		s.runner = strategy.GetRunner("vanilla")
	}
	if s.connectTimeout <= 0 {
		s.connectTimeout = defaultConnectTimeout
	}
	if s.notify == nil {
		s.notify = func(domain.Event) {}
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("supervisor")
	}
	return s
}

func (s *Supervisor) State() domain.LifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the pid of the live server process, or 0.
func (s *Supervisor) PID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.PID
}

// Start launches the server and blocks until it has reported ready and the
// RCON session is authenticated, the process dies, or ctx expires. An
// expired ctx does not abort the launch.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.launching {
		s.mu.Unlock()
		return fmt.Errorf("%w (launch in progress)", domain.ErrAlreadyRunning)
	}
	if s.state != domain.Stopped && s.state != domain.Crashed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", domain.ErrAlreadyRunning, state)
	}
	s.launching = true
	s.mu.Unlock()

	// preflight may download the server jar, so it runs unlocked
	cmd, err := s.buildCommand()

	s.mu.Lock()
	s.launching = false
	var done chan error
	if err == nil {
		done, err = s.spawnLocked(cmd)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for server start: %w", domain.ErrTimeout, ctx.Err())
	}
}

func (s *Supervisor) buildCommand() (*exec.Cmd, error) {
	if s.prepare != nil {
		if err := s.prepare(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSpawn, err)
		}
	}

	spec := s.spec
	if s.java != nil {
		javaPath, err := s.java.Resolve(spec.JavaPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSpawn, err)
		}
		spec.JavaPath = javaPath
	}

	cmd, err := s.runner.BuildCommand(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSpawn, err)
	}
	prepareCommand(cmd)
	return cmd, nil
}

func (s *Supervisor) spawnLocked(cmd *exec.Cmd) (chan error, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSpawn, err)
	}

	s.gen++
	gen := s.gen
	s.proc = &ActiveProcess{Cmd: cmd, PID: int32(cmd.Process.Pid)}
	s.state = domain.Starting
	s.startDone = make(chan error, 1)
	s.stopDone = nil
	s.killed = false

	s.logger.Info("server process started", "pid", cmd.Process.Pid, "cmd", cmd.String())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.scan(gen, stdout, false)
	}()
	go func() {
		defer wg.Done()
		s.scan(gen, stderr, true)
	}()
	go func() {
		wg.Wait()
		err := cmd.Wait()
		s.handleExit(gen, cmd, err)
	}()

	return s.startDone, nil
}

// Stop asks the server to shut down over RCON and waits for the process to
// exit. Commands queued ahead of the stop command still run first.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.Running {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", domain.ErrNotRunning, state)
	}
	s.state = domain.Stopping
	gen := s.gen
	done := make(chan error, 1)
	s.stopDone = done
	s.mu.Unlock()

	s.logger.Info("stopping server")

	// the server usually drops the connection while answering
	if _, err := s.rcon.Execute(ctx, "stop"); err != nil {
		if errors.Is(err, domain.ErrNotConnected) || errors.Is(err, domain.ErrClosed) {
			// nothing reached the server, so it is still running
			if s.abortStop(gen, done) {
				return fmt.Errorf("send stop command: %w", err)
			}
		}
		s.logger.Debug("stop command did not complete", "err", err)
	}
	_ = s.rcon.Close()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for server exit: %w", domain.ErrTimeout, ctx.Err())
	}
}

// abortStop returns to Running when the stop command could not be sent and
// the process has not exited in the meantime.
func (s *Supervisor) abortStop(gen uint64, done chan error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != domain.Stopping || s.stopDone != done || s.killed {
		return false
	}
	s.state = domain.Running
	s.stopDone = nil
	s.logger.Warn("stop command not delivered, server still running")
	return true
}

// Kill terminates the process without asking the server. The resulting exit
// is treated as a requested stop.
func (s *Supervisor) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return fmt.Errorf("%w (state %s)", domain.ErrNotRunning, s.state)
	}
	if s.state != domain.Stopping {
		s.state = domain.Stopping
		s.stopDone = make(chan error, 1)
	}

	s.killed = true
	s.logger.Warn("killing server process", "pid", s.proc.PID)
	_ = s.rcon.Close()
	if err := s.proc.Cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill server process: %w", err)
	}
	return nil
}

func (s *Supervisor) scan(gen uint64, r io.Reader, isErr bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.handleLine(gen, scanner.Text(), isErr)
	}
}

func (s *Supervisor) handleLine(gen uint64, line string, isErr bool) {
	var ev domain.LogEvent
	if isErr {
		s.logger.Warn(line, "stream", "stderr")
		ev = parser.ErrorLine(line)
	} else {
		s.logger.Debug(line, "stream", "stdout")
		var ok bool
		if ev, ok = parser.Parse(line); !ok {
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}

	switch ev.Kind {
	case domain.LogServerReady:
		if s.state == domain.Starting {
			s.logger.Info("server ready", "boot", ev.Text)
			go s.connect(gen, ev.Text)
		}
	case domain.LogPlayerJoined:
		s.notify(domain.PlayerJoined(ev.Text))
	case domain.LogPlayerLeft:
		s.notify(domain.PlayerLeft(ev.Text))
	case domain.LogServerError:
		s.notify(domain.ServerError(ev.Text))
	}
}

func (s *Supervisor) connect(gen uint64, bootDuration string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
	defer cancel()
	err := s.rcon.Connect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != domain.Starting {
		if err == nil {
			_ = s.rcon.Close()
		}
		return
	}

	if err != nil {
		s.logger.Error("rcon connect failed", "err", err)
		s.state = domain.Crashed
		s.resolveStart(err)
		s.notify(domain.ServerError(fmt.Sprintf("rcon: %v", err)))
		if s.proc != nil {
			_ = s.proc.Cmd.Process.Kill()
		}
		return
	}

	s.state = domain.Running
	s.resolveStart(nil)
	s.notify(domain.Started(bootDuration))
}

// HandleDisconnect is wired as the RCON channel's disconnect handler. While
// running, one reconnect is attempted.
func (s *Supervisor) HandleDisconnect(cause error) {
	s.mu.Lock()
	if s.state != domain.Running {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	s.logger.Warn("rcon session lost, reconnecting", "err", cause)

	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
	defer cancel()
	err := s.rcon.Connect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != domain.Running {
		return
	}
	if err != nil {
		s.notify(domain.ServerError(fmt.Sprintf("rcon connection lost: %v", err)))
	}
}

func (s *Supervisor) handleExit(gen uint64, cmd *exec.Cmd, waitErr error) {
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}

	var exitErr *exec.ExitError
	spawnFailure := waitErr != nil && !errors.As(waitErr, &exitErr)
	if spawnFailure {
		s.notify(domain.ServerError(waitErr.Error()))
	}

	prev := s.state
	switch {
	case spawnFailure:
		s.state = domain.Crashed
	case prev == domain.Stopping:
		s.state = domain.Stopped
	case prev == domain.Starting || prev == domain.Running:
		s.state = domain.Crashed
	}
	s.proc = nil

	s.logger.Info("server process exited", "code", code, "from", prev, "to", s.state)

	if prev != domain.Stopping {
		_ = s.rcon.Close()
	}
	s.notify(domain.Closed(code))

	s.resolveStart(fmt.Errorf("%w with code %d before becoming ready", domain.ErrProcessExited, code))
	if s.stopDone != nil {
		if s.state == domain.Stopped {
			s.stopDone <- nil
		} else {
			s.stopDone <- fmt.Errorf("%w: %w", domain.ErrProcessExited, waitErr)
		}
		s.stopDone = nil
	}
	if s.state == domain.Stopped {
		s.notify(domain.StoppedEvent())
	}
}

// resolveStart completes the pending start operation exactly once.
func (s *Supervisor) resolveStart(err error) {
	if s.startDone == nil {
		return
	}
	s.startDone <- err
	s.startDone = nil
}
