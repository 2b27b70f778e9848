// Package scansource implements the parent half of the isolated scan
// worker (C1): spawning the child process, exchanging framed messages over
// its pipes, and exposing a mutex-guarded "latest frame" view that never
// blocks a crashed or stalled child from taking down the host process.
package scansource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyva-rover/roverbrain/internal/roverrors"
	"github.com/hyva-rover/roverbrain/internal/scanio"
)

// StartTimeout bounds how long Start waits for the child's started
// handshake.
const StartTimeout = 15 * time.Second

// killGrace is how long Stop waits after SIGTERM before escalating to
// SIGKILL.
const killGrace = 2 * time.Second

// Source is the parent-side handle to an isolated LiDAR worker process.
type Source struct {
	command []string
	log     zerolog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	latest *scanio.Frame
	err    error

	done chan struct{}
}

// New builds a Source that will run command (argv[0] is the binary path)
// when Start is called.
func New(command []string, log zerolog.Logger) *Source {
	return &Source{
		command: command,
		log:     log,
	}
}

// Start spawns the child worker and waits up to StartTimeout for its
// started handshake. On timeout, unexpected message, or child exit, it
// tears everything down and returns false.
func (s *Source) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	childCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(childCtx, s.command[0], s.command[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		s.log.Error().Err(err).Msg("scansource: stdout pipe")
		return false
	}
	if err := cmd.Start(); err != nil {
		cancel()
		s.log.Error().Err(err).Msg("scansource: start child")
		return false
	}

	s.mu.Lock()
	s.cmd = cmd
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	reader := bufio.NewReader(stdout)

	handshake := make(chan bool, 1)
	go s.readLoop(childCtx, reader, handshake)

	select {
	case ok := <-handshake:
		if !ok {
			s.teardown()
			return false
		}
		return true
	case <-time.After(StartTimeout):
		s.log.Error().Msg("scansource: handshake timeout")
		s.teardown()
		return false
	}
}

// readLoop drains framed messages from the child until it exits or the
// context is cancelled: started and error messages resolve the handshake
// channel, scan messages overwrite the latest-frame slot. Any message other
// than started or error before the handshake fails it.
func (s *Source) readLoop(ctx context.Context, r *bufio.Reader, handshake chan<- bool) {
	defer close(s.done)
	started := false
	for {
		msg, err := scanio.ReadMessage(ctx, r)
		if err != nil {
			if err == io.EOF {
				s.log.Warn().Msg("scansource: child closed stdout")
			} else {
				s.log.Error().Err(err).Msg("scansource: read message")
			}
			s.mu.Lock()
			s.err = fmt.Errorf("%w: %v", roverrors.ErrDeviceFault, err)
			s.mu.Unlock()
			if !started {
				handshake <- false
			}
			return
		}

		if !started && msg.Type != scanio.MsgStarted && msg.Type != scanio.MsgError {
			s.log.Error().Str("type", string(msg.Type)).Msg("scansource: unexpected message before handshake")
			handshake <- false
			return
		}

		switch msg.Type {
		case scanio.MsgStarted:
			if !started {
				started = true
				handshake <- true
			}
		case scanio.MsgScan:
			if msg.Scan == nil {
				continue
			}
			s.publish(*msg.Scan)
		case scanio.MsgError:
			s.mu.Lock()
			s.err = fmt.Errorf("%w: %s", roverrors.ErrDeviceFault, msg.Error)
			s.mu.Unlock()
			s.log.Error().Str("msg", msg.Error).Msg("scansource: worker error")
			if !started {
				handshake <- false
			}
			return
		}
	}
}

// publish updates the latest-frame slot. Control loops only ever want the
// newest frame, so older ones are simply overwritten rather than queued.
func (s *Source) publish(f scanio.Frame) {
	s.mu.Lock()
	s.latest = &f
	s.mu.Unlock()
}

// LatestFrame returns the most recent frame, or (Frame{}, false) if none
// has arrived yet.
func (s *Source) LatestFrame() (scanio.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return scanio.Frame{}, false
	}
	return *s.latest, true
}

// Err returns the last fatal error reported by the worker, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop signals the child to exit, escalating from SIGTERM to SIGKILL after
// killGrace, and waits for the reader loop to finish.
func (s *Source) Stop() {
	s.teardown()
}

func (s *Source) teardown() {
	s.mu.Lock()
	cmd := s.cmd
	cancel := s.cancel
	done := s.done
	s.cmd = nil
	s.cancel = nil
	s.mu.Unlock()

	if cmd == nil {
		return
	}
	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(killGrace):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-exited
	}

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
