package app

import (
	"craftbridge/internal/backup"
	"craftbridge/internal/bridge"
	"craftbridge/internal/config"
	"craftbridge/internal/jvm"
	"craftbridge/internal/loader"
	"craftbridge/internal/rcon"
	"craftbridge/internal/runner"
	"craftbridge/internal/runner/strategy"
	"craftbridge/internal/server"
	"craftbridge/internal/status"
	"craftbridge/internal/storage"
	"craftbridge/internal/ws"

	"github.com/charmbracelet/log"
)

type Container struct {
	Config      *config.Config
	Logger      *log.Logger
	Store       *storage.GormStore
	JvmManager  *jvm.Manager
	Workspace   *server.Workspace
	RCON        *rcon.Channel
	Probe       *status.Probe
	Broker      *bridge.Broker
	Supervisor  *runner.Supervisor
	Coordinator *bridge.Coordinator
	Hub         *ws.Hub
	Backups     *backup.Manager

	stopForward func()
}

// New wires the bridge from cfg. The returned container owns background
// goroutines; call Close when done.
func New(cfg *config.Config, logger *log.Logger) (*Container, error) {
	if logger == nil {
		logger = log.Default()
	}

	store, err := storage.NewGormStore("", cfg.HistorySize, logger.WithPrefix("storage"))
	if err != nil {
		return nil, err
	}

	minJava := cfg.MinJavaVersion
	if minJava == 0 && cfg.MCVersion != "" {
		minJava = runner.GetJavaVersionForMC(cfg.MCVersion)
	}
	jvmMgr := jvm.NewManager(cfg.RuntimesPath, minJava, logger.WithPrefix("jvm"))

	workspace := &server.Workspace{
		Dir:          cfg.ServerDir,
		JarFile:      cfg.JarFile,
		GamePort:     cfg.GamePort,
		RCONPort:     cfg.RCONPort,
		RCONPassword: cfg.RCONPassword,
		AcceptEULA:   cfg.AcceptEULA,
		Version:      cfg.MCVersion,
		Logger:       logger.WithPrefix("workspace"),
	}
	if installer, err := loader.GetInstaller(cfg.Loader, logger.WithPrefix("loader")); err == nil {
		workspace.Installer = installer
	} else {
		logger.Debug("automatic jar install unavailable", "loader", cfg.Loader, "err", err)
	}

	broker := bridge.NewBroker()

	var supervisor *runner.Supervisor
	channel := rcon.NewChannel(cfg.RCONAddr(), cfg.RCONPassword,
		rcon.WithLogger(logger.WithPrefix("rcon")),
		rcon.WithDisconnectHandler(func(err error) {
			supervisor.HandleDisconnect(err)
		}),
	)

	supervisor = runner.NewSupervisor(runner.Options{
		Runner: strategy.GetRunner(cfg.Loader),
		Spec: strategy.LaunchSpec{
			JavaPath:  cfg.JavaPath,
			ServerDir: cfg.ServerDir,
			JarFile:   cfg.JarFile,
			MaxMemory: cfg.MaxMemory,
			MinMemory: cfg.MinMemory,
			ExtraArgs: cfg.ExtraArgs,
		},
		Java:           jvmMgr,
		Prepare:        workspace.Prepare,
		RCON:           channel,
		ConnectTimeout: cfg.ConnectTimeout,
		Notify:         broker.Publish,
		Logger:         logger.WithPrefix("supervisor"),
	})

	probe := status.NewProbe(cfg.GamePort, cfg.ProbeTimeout)

	coordinator := bridge.NewCoordinator(bridge.Options{
		Supervisor:     supervisor,
		RCON:           channel,
		Probe:          probe,
		Host:           cfg.Host,
		Broker:         broker,
		History:        store,
		CommandTimeout: cfg.CommandTimeout,
		StartTimeout:   cfg.StartTimeout,
		Logger:         logger.WithPrefix("bridge"),
	})

	backups := backup.NewManager(cfg.ServerDir, cfg.BackupsPath, coordinator, logger.WithPrefix("backup"))

	hub := ws.NewHub(cfg.EventReplaySize, coordinator.RunCommand, logger.WithPrefix("ws"))
	go hub.Run()
	events, cancel := broker.Subscribe()
	go hub.Forward(events)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		JvmManager:  jvmMgr,
		Workspace:   workspace,
		RCON:        channel,
		Probe:       probe,
		Broker:      broker,
		Supervisor:  supervisor,
		Coordinator: coordinator,
		Hub:         hub,
		Backups:     backups,
		stopForward: cancel,
	}, nil
}

// Close releases everything except the server process itself.
func (c *Container) Close() error {
	c.stopForward()
	c.Coordinator.Close()
	c.Hub.Stop()
	c.Broker.Close()
	_ = c.RCON.Close()
	return c.Store.Close()
}
