package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// PlayerClient defines the player operations the daemon drives.
// This allows for mocking in tests.
type PlayerClient interface {
	SeekAbsoluteMs(ms int64) error
	SeekRelativeMs(ms int64) error

	AddVolume(delta float64) error
	AddBrightness(delta float64) error

	CyclePause() error

	// ShowText displays an OSD message for the given duration.
	ShowText(text string, durationMs int) error

	// ShowProgress displays the playback position and duration OSD.
	ShowProgress() error

	// PositionMs reports the current playback position. ok is false when
	// the player is idle (no file loaded).
	PositionMs() (ms int64, ok bool, err error)

	Close() error
}

// MPVClient manages JSON IPC communication with mpv over a Unix socket.
//
// mpv interleaves asynchronous event lines with command responses on the
// same connection; sendCommand matches responses by request_id and skips
// event lines. The client is synchronous and mutex-guarded, which is
// plenty at gesture rates.
type MPVClient struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int64

	socketPath  string
	logger      *slog.Logger
	readTimeout time.Duration
}

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type mpvResponse struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int64           `json:"request_id"`
	Event     string          `json:"event"`
}

// NewMPVClient creates a new mpv client and establishes the initial connection.
func NewMPVClient(socketPath string, logger *slog.Logger, readTimeoutMS int) (*MPVClient, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("mpv socket path is empty")
	}

	client := &MPVClient{
		socketPath:  socketPath,
		logger:      logger,
		readTimeout: time.Duration(readTimeoutMS) * time.Millisecond,
	}

	if err := client.connectWithRetry(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect establishes a connection to the mpv IPC socket.
func (c *MPVClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}

	conn, err := net.DialTimeout("unix", c.socketPath, 2*time.Second)
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// connectWithRetry attempts to connect, retrying on failure.
func (c *MPVClient) connectWithRetry() error {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to mpv", "socket", c.socketPath)
			return nil
		}
		lastErr = err
		c.logger.Warn("mpv connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after 10 attempts: %w", lastErr)
}

// ensureConnected checks connection and reconnects if necessary.
func (c *MPVClient) ensureConnected() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Warn("mpv connection lost; reconnecting...")
	return c.connectWithRetry()
}

// sendCommand sends one command and waits for its response, skipping any
// asynchronous event lines mpv emits in between.
func (c *MPVClient) sendCommand(args ...any) (json.RawMessage, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("no mpv connection")
	}

	id := c.nextID
	c.nextID++

	payload, err := json.Marshal(mpvRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	payload = append(payload, '\n')

	c.conn.SetWriteDeadline(time.Now().Add(c.readTimeout))
	if _, err := c.conn.Write(payload); err != nil {
		c.conn = nil // Mark connection as broken
		c.reader = nil
		return nil, err
	}

	c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	defer func() {
		if c.conn != nil {
			c.conn.SetReadDeadline(time.Time{})
		}
	}()

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			c.conn = nil // Mark connection as broken
			c.reader = nil
			return nil, err
		}

		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			// Skip malformed lines
			continue
		}
		if resp.Event != "" || resp.RequestID != id {
			// Asynchronous event or a stale response; keep reading.
			continue
		}
		if resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	}
}

// SeekAbsoluteMs seeks to an absolute position. mpv clamps out-of-range
// targets itself.
func (c *MPVClient) SeekAbsoluteMs(ms int64) error {
	_, err := c.sendCommand("seek", float64(ms)/1000.0, "absolute")
	return err
}

// SeekRelativeMs seeks by a signed offset from the current position.
func (c *MPVClient) SeekRelativeMs(ms int64) error {
	_, err := c.sendCommand("seek", float64(ms)/1000.0, "relative")
	return err
}

// AddVolume adjusts the player volume (mpv scale, 0..100).
func (c *MPVClient) AddVolume(delta float64) error {
	_, err := c.sendCommand("add", "volume", delta)
	return err
}

// AddBrightness adjusts video brightness (mpv scale, -100..100).
func (c *MPVClient) AddBrightness(delta float64) error {
	_, err := c.sendCommand("add", "brightness", delta)
	return err
}

// CyclePause toggles pause.
func (c *MPVClient) CyclePause() error {
	_, err := c.sendCommand("cycle", "pause")
	return err
}

// ShowText displays an OSD message.
func (c *MPVClient) ShowText(text string, durationMs int) error {
	_, err := c.sendCommand("show-text", text, durationMs)
	return err
}

// ShowProgress displays the playback position and duration OSD.
func (c *MPVClient) ShowProgress() error {
	_, err := c.sendCommand("show-progress")
	return err
}

// PositionMs reports the current playback position in milliseconds.
func (c *MPVClient) PositionMs() (int64, bool, error) {
	data, err := c.sendCommand("get_property", "time-pos")
	if err != nil {
		// Idle player: the property simply does not exist yet.
		if strings.Contains(err.Error(), "property unavailable") {
			return 0, false, nil
		}
		return 0, false, err
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return 0, false, fmt.Errorf("decode time-pos: %w", err)
	}
	return int64(seconds * 1000), true, nil
}

// Close closes the connection to mpv.
func (c *MPVClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.reader = nil
		return err
	}
	return nil
}

// runPositionPoller periodically reads the playback position from the
// player and feeds it to the brain, keeping the engine's seek anchor
// fresh between gestures.
func runPositionPoller(ctx context.Context, player PlayerClient, msgs chan<- brainMsg, logger *slog.Logger) {
	ticker := time.NewTicker(positionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("position poller stopping (context canceled)")
			return

		case <-ticker.C:
			ms, ok, err := player.PositionMs()
			if err != nil {
				logger.Debug("player position poll failed", "error", err)
				continue
			}
			if !ok {
				continue
			}

			// Drop the update if the brain is busy; the next poll supersedes it.
			select {
			case msgs <- playbackMsg{PositionMs: ms}:
			default:
			}
		}
	}
}
