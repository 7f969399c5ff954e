package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"taleweaver/logger"
)

const (
	defaultStartTimeout = 5 * time.Second
	dialRetryInterval   = 100 * time.Millisecond
)

// Client connects the editor, which talks msgpack-RPC over our stdio, to the
// daemon socket, starting the daemon when none is running.
type Client struct {
	socketPath   string
	pidPath      string
	executable   string
	startTimeout time.Duration

	stdin  io.Reader
	stdout io.Writer
}

func NewClient() *Client {
	return &Client{
		socketPath:   getSocketPath(),
		pidPath:      getPidPath(),
		executable:   os.Args[0],
		startTimeout: defaultStartTimeout,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
	}
}

// Connect relays stdio to the daemon until the daemon closes the session.
// End of stdin half-closes the socket so the daemon sees the editor leave.
func (c *Client) Connect() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()

	go func() {
		if _, err := io.Copy(conn, c.stdin); err != nil {
			logger.Debug("client: editor input relay ended: %v", err)
		}
		if uc, ok := conn.(*net.UnixConn); ok {
			uc.CloseWrite()
		} else {
			conn.Close()
		}
	}()

	if _, err := io.Copy(c.stdout, conn); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to relay daemon output: %w", err)
	}
	return nil
}

// EnsureDaemonRunning starts the daemon unless the pid file names a live process
func (c *Client) EnsureDaemonRunning() error {
	if pid, ok := daemonPid(c.pidPath); ok {
		logger.Debug("client: daemon already running with pid %d", pid)
		return nil
	}
	return c.startDaemon()
}

func (c *Client) startDaemon() error {
	logger.Debug("client: starting daemon %s", c.executable)

	cmd := exec.Command(c.executable, "--daemon")
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		logger.Warn("client: failed to release daemon process: %v", err)
	}

	return c.waitForDaemon()
}

// waitForDaemon waits until the socket accepts connections
func (c *Client) waitForDaemon() error {
	deadline := time.Now().Add(c.startTimeout)
	for {
		conn, err := net.DialTimeout("unix", c.socketPath, dialRetryInterval)
		if err == nil {
			conn.Close()
			logger.Debug("client: daemon is accepting connections")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon not reachable after %v: %w", c.startTimeout, err)
		}
		time.Sleep(dialRetryInterval)
	}
}

// daemonPid returns the pid recorded in pidPath if that process is alive
func daemonPid(pidPath string) (int, bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}

	// On Unix, signal 0 only checks that the process exists
	return pid, process.Signal(syscall.Signal(0)) == nil
}
