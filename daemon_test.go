package main

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"taleweaver/assert"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	dir := socketDir(t)

	d, err := NewDaemon(Config{APIKey: "k", DataDir: filepath.Join(dir, "data")})
	assert.NoError(t, err, "NewDaemon")

	d.socketPath = filepath.Join(dir, "tw.sock")
	d.pidPath = filepath.Join(dir, "tw.pid")
	return d
}

func startDaemon(t *testing.T, d *Daemon) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- d.Start() }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("unix", d.socketPath)
		if err == nil {
			conn.Close()
			return done
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never listened: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err, "Start returns cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestIdleSettings(t *testing.T) {
	timeout, poll := idleSettings(Config{})
	assert.Equal(t, 30*time.Second, timeout, "default timeout")
	assert.Equal(t, time.Second, poll, "default poll")

	timeout, poll = idleSettings(Config{IdleTimeout: 200})
	assert.Equal(t, 200*time.Millisecond, timeout, "configured timeout")
	assert.Equal(t, 200*time.Millisecond, poll, "poll no longer than the timeout")

	timeout, _ = idleSettings(Config{DebugImmediateShutdown: true, IdleTimeout: 5000})
	assert.Equal(t, time.Duration(0), timeout, "debug mode exits at once")
}

func TestNewDaemon_CreatesDataDir(t *testing.T) {
	d := newTestDaemon(t)

	info, err := os.Stat(d.config.DataDir)
	assert.NoError(t, err, "data dir exists")
	assert.True(t, info.IsDir(), "data dir is a directory")
}

func TestDaemon_StopCleansUp(t *testing.T) {
	d := newTestDaemon(t)
	done := startDaemon(t, d)

	data, err := os.ReadFile(d.pidPath)
	assert.NoError(t, err, "pid file written")
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data), "pid file content")

	d.Stop()
	d.Stop()
	waitStopped(t, done)

	_, err = os.Stat(d.socketPath)
	assert.True(t, os.IsNotExist(err), "socket removed")
	_, err = os.Stat(d.pidPath)
	assert.True(t, os.IsNotExist(err), "pid file removed")
}

func TestDaemon_StopClosesOpenSessions(t *testing.T) {
	d := newTestDaemon(t)
	done := startDaemon(t, d)

	conn, err := net.Dial("unix", d.socketPath)
	assert.NoError(t, err, "Dial")
	defer conn.Close()

	d.Stop()
	waitStopped(t, done)
}

func TestDaemon_ExitsWhenIdle(t *testing.T) {
	d := newTestDaemon(t)
	d.idleTimeout = 300 * time.Millisecond
	d.idlePoll = 20 * time.Millisecond
	done := startDaemon(t, d)

	waitStopped(t, done)
}

func TestDaemon_StaysUpWhileEditorConnected(t *testing.T) {
	d := newTestDaemon(t)
	d.idleTimeout = 200 * time.Millisecond
	d.idlePoll = 20 * time.Millisecond
	done := startDaemon(t, d)

	conn, err := net.Dial("unix", d.socketPath)
	assert.NoError(t, err, "Dial")

	select {
	case <-done:
		t.Fatal("daemon exited with an editor connected")
	case <-time.After(600 * time.Millisecond):
	}

	conn.Close()
	waitStopped(t, done)
}
