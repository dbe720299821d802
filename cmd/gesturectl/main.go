package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// gesturectl - Command-line IPC Client
// ============================================================================
// This tool drives the gesturebrainz daemon via its control socket:
// synthetic gestures for testing bindings, trace replay, and a live tail
// of the daemon's WebSocket event feed.
//
// Usage:
//   gesturectl tap 640 360
//   gesturectl double-tap 200 360
//   gesturectl swipe 200 360 1000 360
//   gesturectl inject pinch_zoom 0.9
//   gesturectl replay trace.jsonl
//   gesturectl listen
//
// Options:
//   -socket PATH    Unix domain socket path (default: /run/gesturebrainz.sock)
//   -ws URL         WebSocket URL for listen (default: ws://127.0.0.1:8090/ws)
// ============================================================================

// Wire types (duplicated from the daemon package for standalone binary)

type controlEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type ipcResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type pointerPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Phase string  `json:"phase"`
	AtMs  int64   `json:"at_ms,omitempty"`
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

func main() {
	socketPath := "/run/gesturebrainz.sock"
	wsURL := "ws://127.0.0.1:8090/ws"

	// Parse arguments
	args := os.Args[1:]

	// Check for leading option flags
flags:
	for len(args) >= 2 {
		switch args[0] {
		case "-socket", "--socket":
			socketPath = args[1]
			args = args[2:]
		case "-ws", "--ws":
			wsURL = args[1]
			args = args[2:]
		default:
			break flags
		}
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error

	switch args[0] {
	case "tap":
		x, y, perr := parseXY(args[1:])
		if perr != nil {
			fatalf("%v", perr)
		}
		err = runTap(socketPath, x, y, 1)

	case "double-tap":
		x, y, perr := parseXY(args[1:])
		if perr != nil {
			fatalf("%v", perr)
		}
		err = runTap(socketPath, x, y, 2)

	case "long-press":
		x, y, perr := parseXY(args[1:])
		if perr != nil {
			fatalf("%v", perr)
		}
		holdMs := 700
		if len(args) >= 4 {
			if holdMs, perr = parseInt(args[3], "hold duration"); perr != nil {
				fatalf("%v", perr)
			}
		}
		err = runLongPress(socketPath, x, y, holdMs)

	case "swipe":
		if len(args) < 5 {
			fatalf("swipe requires x1 y1 x2 y2")
		}
		x1, y1, perr := parseXY(args[1:])
		if perr != nil {
			fatalf("%v", perr)
		}
		x2, y2, perr := parseXY(args[3:])
		if perr != nil {
			fatalf("%v", perr)
		}
		durationMs := 300
		if len(args) >= 6 {
			if durationMs, perr = parseInt(args[5], "duration"); perr != nil {
				fatalf("%v", perr)
			}
		}
		err = runSwipe(socketPath, x1, y1, x2, y2, durationMs)

	case "inject":
		if len(args) < 2 {
			fatalf("inject requires a gesture type")
		}
		confidence := 0.9
		if len(args) >= 3 {
			var perr error
			if confidence, perr = parseFloat(args[2], "confidence"); perr != nil {
				fatalf("%v", perr)
			}
		}
		err = sendOne(socketPath, "inject_gesture", injectPayload{Type: args[1], Confidence: confidence})

	case "position":
		if len(args) < 2 {
			fatalf("position requires a value in milliseconds")
		}
		ms, perr := parseInt(args[1], "position")
		if perr != nil {
			fatalf("%v", perr)
		}
		err = sendOne(socketPath, "playback_position", playbackPayload{PositionMs: int64(ms)})

	case "geometry":
		if len(args) < 3 {
			fatalf("geometry requires width and height")
		}
		w, perr := parseFloat(args[1], "width")
		if perr != nil {
			fatalf("%v", perr)
		}
		h, perr := parseFloat(args[2], "height")
		if perr != nil {
			fatalf("%v", perr)
		}
		err = sendOne(socketPath, "set_geometry", geometryPayload{Width: w, Height: h})

	case "replay":
		if len(args) < 2 {
			fatalf("replay requires a trace file")
		}
		err = runReplay(socketPath, args[1])

	case "listen":
		err = runListen(wsURL)

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func parseXY(args []string) (float64, float64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("expected x and y coordinates")
	}
	x, err := parseFloat(args[0], "x")
	if err != nil {
		return 0, 0, err
	}
	y, err := parseFloat(args[1], "y")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func parseFloat(s, name string) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(s, "%f", &v); err != nil {
		return 0, fmt.Errorf("invalid %s value %q", name, s)
	}
	return v, nil
}

func parseInt(s, name string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s value %q", name, s)
	}
	return v, nil
}

// ============================================================================
// IPC client
// ============================================================================

// ipcClient holds one connection so gesture sequences share a stream.
type ipcClient struct {
	conn    net.Conn
	decoder *json.Decoder
}

func dialIPC(socketPath string) (*ipcClient, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	return &ipcClient{conn: conn, decoder: json.NewDecoder(conn)}, nil
}

func (c *ipcClient) Close() error { return c.conn.Close() }

// send writes one line-delimited control message and waits for the response.
func (c *ipcClient) send(typ string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg, err := json.Marshal(controlEnvelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := fmt.Fprintf(c.conn, "%s\n", msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	var resp ipcResponse
	if err := c.decoder.Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status == "error" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	return nil
}

func (c *ipcClient) pointer(x, y float64, phase string) error {
	return c.send("pointer_sample", pointerPayload{X: x, Y: y, Phase: phase})
}

func sendOne(socketPath, typ string, payload any) error {
	c, err := dialIPC(socketPath)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.send(typ, payload); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// ============================================================================
// Synthetic gestures
// ============================================================================
// Samples are sent unpinned and paced in real time, so the daemon's own
// clock drives recognition exactly as it would for a physical touch.

func runTap(socketPath string, x, y float64, count int) error {
	c, err := dialIPC(socketPath)
	if err != nil {
		return err
	}
	defer c.Close()

	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(80 * time.Millisecond)
		}
		if err := c.pointer(x, y, "down"); err != nil {
			return err
		}
		time.Sleep(80 * time.Millisecond)
		if err := c.pointer(x, y, "up"); err != nil {
			return err
		}
	}
	fmt.Println("ok")
	return nil
}

func runLongPress(socketPath string, x, y float64, holdMs int) error {
	c, err := dialIPC(socketPath)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.pointer(x, y, "down"); err != nil {
		return err
	}
	time.Sleep(time.Duration(holdMs) * time.Millisecond)
	if err := c.pointer(x, y, "up"); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runSwipe(socketPath string, x1, y1, x2, y2 float64, durationMs int) error {
	c, err := dialIPC(socketPath)
	if err != nil {
		return err
	}
	defer c.Close()

	const steps = 12
	stepDelay := time.Duration(durationMs) * time.Millisecond / steps

	if err := c.pointer(x1, y1, "down"); err != nil {
		return err
	}
	for i := 1; i <= steps; i++ {
		time.Sleep(stepDelay)
		f := float64(i) / steps
		x := x1 + (x2-x1)*f
		y := y1 + (y2-y1)*f
		if err := c.pointer(x, y, "move"); err != nil {
			return err
		}
	}
	if err := c.pointer(x2, y2, "up"); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// ============================================================================
// Trace replay
// ============================================================================

// runReplay streams a JSONL pointer trace into the daemon. Each line is a
// pointer payload; recorded at_ms timestamps are rebased onto the current
// clock and the deltas between samples are slept out, so the daemon sees
// the original gesture timing.
func runReplay(socketPath, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	c, err := dialIPC(socketPath)
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		offset int64
		offOK  bool
		sent   int
	)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p pointerPayload
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		if p.AtMs != 0 {
			if !offOK {
				offset = time.Now().UnixMilli() - p.AtMs
				offOK = true
			}
			target := p.AtMs + offset
			if wait := target - time.Now().UnixMilli(); wait > 0 {
				time.Sleep(time.Duration(wait) * time.Millisecond)
			}
			p.AtMs = target
		}

		if err := c.send("pointer_sample", p); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read trace: %w", err)
	}

	fmt.Printf("replayed %d samples\n", sent)
	return nil
}

// ============================================================================
// WebSocket feed tail
// ============================================================================

// runListen connects to the daemon's state WebSocket and prints every
// event envelope until interrupted.
func runListen(wsURL string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "connecting to %s...\n", wsURL)
	conn, _, err := d.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "connected (press Ctrl+C to exit)\n")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Keep the connection alive.
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					fmt.Fprintf(os.Stderr, "websocket error: %v\n", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			printEnvelope(message)
		}
	}()

	select {
	case <-sigc:
		writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
	case <-done:
		fmt.Fprintf(os.Stderr, "connection closed\n")
	}
	return nil
}

// printEnvelope renders one feed frame as "[type] {data}".
func printEnvelope(message []byte) {
	var env controlEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[RAW] %s\n", string(message))
		return
	}
	if len(env.Data) == 0 {
		fmt.Printf("[%s]\n", env.Type)
		return
	}

	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		fmt.Printf("[%s] %s\n", env.Type, string(env.Data))
		return
	}
	pretty, _ := json.Marshal(data)
	fmt.Printf("[%s] %s\n", env.Type, string(pretty))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gesturectl - Control the gesturebrainz daemon via IPC

Usage:
  gesturectl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /run/gesturebrainz.sock)
  -ws URL         WebSocket URL for listen (default: ws://127.0.0.1:8090/ws)

Commands:
  tap <x> <y>                          Synthetic single tap
  double-tap <x> <y>                   Synthetic double tap
  long-press <x> <y> [hold-ms]         Press and hold (default 700ms)
  swipe <x1> <y1> <x2> <y2> [dur-ms]   Swipe between two points (default 300ms)
  inject <type> [confidence]           Inject an external gesture hypothesis
  position <ms>                        Report the playback position
  geometry <width> <height>            Update the touch surface dimensions
  replay <file.jsonl>                  Replay a recorded pointer trace
  listen                               Tail the daemon's event feed
  help, -h, --help                     Show this help message

Examples:
  gesturectl double-tap 640 360
  gesturectl swipe 200 360 1000 360 500
  gesturectl inject pinch_zoom 0.95
  gesturectl -socket /tmp/gb.sock tap 100 100
  gesturectl -ws ws://192.168.1.50:8090/ws listen
`)
}
