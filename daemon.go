package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"taleweaver/client/gemini"
	"taleweaver/engine"
	"taleweaver/logger"
	"taleweaver/metrics"
	"taleweaver/store"
	"taleweaver/story"

	"github.com/neovim/go-client/nvim"
)

const (
	defaultIdleTimeout = 30 * time.Second
	idlePollInterval   = time.Second
)

// Daemon serves one shared Engine to every editor connected on its unix socket
// and exits once no editor has been connected for the idle timeout.
type Daemon struct {
	config     Config
	engine     *engine.Engine
	listener   net.Listener
	socketPath string
	pidPath    string

	idleTimeout time.Duration
	idlePoll    time.Duration

	clients  atomic.Int64
	sessions sync.WaitGroup
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func newGenerator(config Config) *gemini.Client {
	client := gemini.NewClient(config.BaseURL, config.APIKey, config.Model)
	if config.Temperature > 0 {
		client.Config.Temperature = config.Temperature
	}
	if config.TopK > 0 {
		client.Config.TopK = config.TopK
	}
	if config.TopP > 0 {
		client.Config.TopP = config.TopP
	}
	if config.MaxOutputTokens > 0 {
		client.Config.MaxOutputTokens = config.MaxOutputTokens
	}
	return client
}

// idleSettings returns how long the daemon may sit without editors and how
// often that is checked. Debug mode exits at the first check with no editors.
func idleSettings(config Config) (timeout, poll time.Duration) {
	if config.DebugImmediateShutdown {
		return 0, idlePollInterval
	}
	timeout = defaultIdleTimeout
	if config.IdleTimeout > 0 {
		timeout = time.Duration(config.IdleTimeout) * time.Millisecond
	}
	return timeout, min(idlePollInterval, timeout)
}

func NewDaemon(config Config) (*Daemon, error) {
	if config.APIKey == "" {
		logger.Warn("daemon: no api key configured, generation requests will fail")
	}
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	service := story.NewService(newGenerator(config), story.Config{
		Retries:          config.Retries,
		BackoffBase:      time.Duration(config.BackoffBase) * time.Millisecond,
		MaxContextTokens: config.MaxContextTokens,
	})
	tracker := metrics.NewTracker(config.MetricsURL, config.DataDir)
	eng := engine.NewEngine(service, store.NewFileStore(config.DataDir), tracker)

	idleTimeout, idlePoll := idleSettings(config)
	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		config:      config,
		engine:      eng,
		socketPath:  getSocketPath(),
		pidPath:     getPidPath(),
		idleTimeout: idleTimeout,
		idlePoll:    idlePoll,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start serves connections and blocks until the daemon is stopped, by Stop,
// a signal or the idle timeout. Open sessions are closed before it returns.
func (d *Daemon) Start() error {
	d.writePidFile()
	defer d.removePidFile()

	if err := d.listen(); err != nil {
		return err
	}
	defer os.Remove(d.socketPath)

	logger.Info("daemon: listening on %s", d.socketPath)

	d.engine.Start(d.ctx)
	stopSignals := d.handleSignals()
	defer stopSignals()

	go d.acceptLoop()
	go d.watchIdle()

	<-d.ctx.Done()
	logger.Info("daemon: shutting down, waiting for %d sessions", d.clients.Load())
	d.sessions.Wait()
	return nil
}

// Stop shuts the daemon down. It is safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		if d.listener != nil {
			d.listener.Close()
		}
		d.engine.Stop()
	})
}

func (d *Daemon) listen() error {
	// A socket left behind by a crashed daemon would make Listen fail
	if err := os.Remove(d.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.socketPath, err)
	}
	d.listener = listener
	return nil
}

func (d *Daemon) handleSignals() func() {
	ctx, stop := signal.NotifyContext(d.ctx, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if d.ctx.Err() == nil {
			logger.Info("daemon: received shutdown signal")
		}
		d.Stop()
	}()
	return stop
}

func (d *Daemon) acceptLoop() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if d.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("daemon: accept failed: %v", err)
			continue
		}
		if d.ctx.Err() != nil {
			conn.Close()
			return
		}

		d.sessions.Add(1)
		go d.serve(conn)
	}
}

// serve runs one editor session until the editor disconnects or the daemon stops
func (d *Daemon) serve(conn net.Conn) {
	defer d.sessions.Done()
	defer conn.Close()

	logger.Info("daemon: editor connected (%d connected)", d.clients.Add(1))
	defer func() {
		logger.Info("daemon: editor disconnected (%d connected)", d.clients.Add(-1))
	}()

	n, err := nvim.New(conn, conn, conn, logger.Debug)
	if err != nil {
		logger.Error("daemon: failed to open rpc session: %v", err)
		return
	}

	if err := d.engine.Register(n, d.config.NsID); err != nil {
		logger.Error("daemon: failed to register handlers: %v", err)
		return
	}

	closeOnStop := context.AfterFunc(d.ctx, func() { n.Close() })
	defer closeOnStop()

	if err := n.Serve(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && d.ctx.Err() == nil {
		logger.Warn("daemon: rpc session ended: %v", err)
	}
}

func (d *Daemon) watchIdle() {
	ticker := time.NewTicker(d.idlePoll)
	defer ticker.Stop()

	idleSince := time.Now()
	for {
		select {
		case <-d.ctx.Done():
			return
		case now := <-ticker.C:
			if d.clients.Load() > 0 {
				idleSince = now
				continue
			}
			if now.Sub(idleSince) >= d.idleTimeout {
				logger.Info("daemon: no editors connected for %v, exiting", now.Sub(idleSince).Round(time.Millisecond))
				d.Stop()
				return
			}
		}
	}
}

func (d *Daemon) writePidFile() {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		logger.Warn("daemon: could not write pid file: %v", err)
		return
	}
	logger.Info("daemon: started with pid %d", pid)
}

func (d *Daemon) removePidFile() {
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("daemon: could not remove pid file: %v", err)
	}
}
