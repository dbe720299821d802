//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// epollWaitMs bounds a single epoll_wait so the reader can notice
// context cancellation between bursts of input.
const epollWaitMs = 500

// runInputReader reads from the touch devices using epoll, assembles
// frames into pointer samples and forwards them to the brain.
//
// One goroutine serves all devices; the kernel wakes it only when events
// are available. Each device gets its own frame assembler so interleaved
// reports cannot corrupt one another.
func runInputReader(ctx context.Context, files []*os.File, msgs chan<- brainMsg, logger *slog.Logger) error {
	if len(files) == 0 {
		return fmt.Errorf("no input devices provided")
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File)
	assemblers := make(map[int]*touchAssembler)

	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[fd] = f
		assemblers[fd] = &touchAssembler{}

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add fd=%d: %w", fd, err)
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			logger.Debug("input reader stopping (context canceled)")
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMs)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f := fdToFile[fd]

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s (fd=%d)", f.Name(), fd)
			}

			if _, err := f.Read(buf); err != nil {
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}

			reader.Reset(buf)
			var ev inputEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				// Skip malformed events
				continue
			}

			sample, ok := assemblers[fd].feed(ev, time.Now())
			if !ok {
				continue
			}

			select {
			case msgs <- pointerMsg{Sample: sample}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// openInputDevices opens every configured touch device for reading.
// On failure it closes whatever was already open.
func openInputDevices(paths []string) ([]*os.File, error) {
	files := make([]*os.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(ExpandPath(p))
		if err != nil {
			for _, open := range files {
				open.Close()
			}
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}
