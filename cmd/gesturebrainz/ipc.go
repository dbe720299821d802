package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"gesturebrainz"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server allows external clients to feed the daemon via a Unix
// domain socket. This enables:
//   - Synthetic pointer input from tools and tests (gesturectl)
//   - Deterministic replay of recorded gesture traces
//   - Injection of externally detected gestures (e.g. pinch from a
//     multi-finger tracker)
//   - Geometry updates on display rotation
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "message_name", "data": {...}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // error message if status == "error"
}

// controlEnvelope is the inbound wire format.
type controlEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Control message payloads.
type pointerPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Phase string  `json:"phase"`

	// AtMs optionally pins the sample to a wall-clock instant (Unix ms),
	// letting replay tools keep their recorded timing. When zero the
	// daemon stamps arrival time.
	AtMs int64 `json:"at_ms,omitempty"`
}

type playbackPayload struct {
	PositionMs int64 `json:"position_ms"`
}

type injectPayload struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

type geometryPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// decodeControlMessage parses one inbound IPC line into a brain message.
// now is used for pointer samples that do not pin their own timestamp.
func decodeControlMessage(line []byte, now time.Time) (brainMsg, error) {
	var env controlEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("decode control envelope: %w", err)
	}

	switch env.Type {
	case "pointer_sample":
		var p pointerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode pointer_sample: %w", err)
		}
		phase, err := gesturebrainz.ParsePhase(p.Phase)
		if err != nil {
			return nil, err
		}
		at := now
		if p.AtMs != 0 {
			at = time.UnixMilli(p.AtMs)
		}
		return pointerMsg{Sample: gesturebrainz.PointerSample{
			Position: gesturebrainz.Point{X: p.X, Y: p.Y},
			Phase:    phase,
			At:       at,
		}}, nil

	case "playback_position":
		var p playbackPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode playback_position: %w", err)
		}
		return playbackMsg{PositionMs: p.PositionMs}, nil

	case "inject_gesture":
		var p injectPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode inject_gesture: %w", err)
		}
		gt, err := gesturebrainz.ParseGestureType(p.Type)
		if err != nil {
			return nil, err
		}
		return injectMsg{Hypothesis: gesturebrainz.GestureHypothesis{
			Type:       gt,
			Confidence: p.Confidence,
		}}, nil

	case "set_geometry":
		var p geometryPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode set_geometry: %w", err)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("set_geometry: width and height must be > 0")
		}
		return geometryMsg{Width: p.Width, Height: p.Height}, nil

	default:
		return nil, fmt.Errorf("unknown control message type %q", env.Type)
	}
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, msgs chan<- brainMsg, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	// Create Unix domain socket listener
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Make socket accessible (consider security implications in production)
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Exit cleanly on shutdown/close.
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}

			// Older runtimes report the close as a string error instead of net.ErrClosed.
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		// Handle connection in a separate goroutine.
		go handleIPCConnection(conn, msgs, logger)
	}
}

// handleIPCConnection processes a single IPC client connection
func handleIPCConnection(conn net.Conn, msgs chan<- brainMsg, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		m, err := decodeControlMessage([]byte(line), time.Now())
		if err != nil {
			response := IPCResponse{
				Status: "error",
				Error:  fmt.Sprintf("parse message: %v", err),
			}
			if encErr := encoder.Encode(response); encErr != nil {
				logger.Error("IPC failed to send error response", "error", encErr)
			}
			continue
		}

		// Send message to the brain
		select {
		case msgs <- m:
			// Message queued successfully
			response := IPCResponse{Status: "ok"}
			if encErr := encoder.Encode(response); encErr != nil {
				logger.Error("IPC failed to send success response", "error", encErr)
			}
		default:
			// Message channel is full (should rarely happen with buffer)
			response := IPCResponse{
				Status: "error",
				Error:  "message queue full",
			}
			if encErr := encoder.Encode(response); encErr != nil {
				logger.Error("IPC failed to send error response", "error", encErr)
			}
		}
	}

	logger.Debug("IPC connection closed")
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================
// These functions can be used to feed the daemon from external programs
// or for testing.
// ============================================================================

// SendControlMessage sends a single control message to the daemon via IPC
// and returns the response status.
func SendControlMessage(socketPath string, typ string, data any) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	msg, err := json.Marshal(controlEnvelope{Type: typ, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}

	return nil
}
